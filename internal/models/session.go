package models

import "time"

// SessionStatus is the lifecycle state of a mentorship session
type SessionStatus string

const (
	SessionConfirmed SessionStatus = "confirmed"
	SessionCancelled SessionStatus = "cancelled"
)

// MentorshipSession is the commercial record of a booking. It does not
// point back at the slot it was carved from.
type MentorshipSession struct {
	ID                  string        `json:"id"`
	MentorID            string        `json:"mentorId"`
	StudentID           string        `json:"studentId"`
	SubjectID           string        `json:"subjectId"`
	StartsAt            time.Time     `json:"startsAt"`
	DurationMinutes     int           `json:"durationMinutes"`
	Price               int           `json:"price"`
	Currency            string        `json:"currency"`
	Paid                bool          `json:"paid"`
	PaymentReference    string        `json:"paymentReference,omitempty"`
	ParticipantCount    int           `json:"participantCount"`
	ParticipantContacts []string      `json:"participantContacts"`
	Description         string        `json:"description,omitempty"`
	Modality            Modality      `json:"modality"`
	Location            Location      `json:"location,omitempty"`
	Status              SessionStatus `json:"status"`
	CancelledAt         *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// Clone returns a deep copy
func (s *MentorshipSession) Clone() *MentorshipSession {
	if s == nil {
		return nil
	}
	c := *s
	c.ParticipantContacts = append([]string(nil), s.ParticipantContacts...)
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// BookingRequest is the student's choice within a slot. It is never persisted.
type BookingRequest struct {
	SlotID              string   `json:"slotId" binding:"required,uuid"`
	SubjectID           string   `json:"subjectId" binding:"required,uuid"`
	StartTime           string   `json:"startTime" binding:"required,hhmm"`
	EndTime             string   `json:"endTime" binding:"required,hhmm"`
	ParticipantCount    int      `json:"participantCount" binding:"required,min=1,max=50"`
	ParticipantContacts []string `json:"participantContacts" binding:"omitempty,max=50,dive,email"`
	Description         string   `json:"description" binding:"max=2000"`
	// PaymentMethod is an opaque token from the payment provider's client SDK
	PaymentMethod string `json:"paymentMethod" binding:"max=255"`
}

// PriceQuote is the price of a duration and modality
type PriceQuote struct {
	DurationMinutes int      `json:"durationMinutes"`
	Modality        Modality `json:"modality"`
	Price           int      `json:"price"`
	Currency        string   `json:"currency"`
}
