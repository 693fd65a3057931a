package models

import (
	"encoding/json"
	"time"
)

// JobKind selects the outbox handler
type JobKind string

const (
	JobNotifyMentor JobKind = "notify_mentor"
	JobStudentEmail JobKind = "booking_email_student"
	JobMentorEmail  JobKind = "booking_email_mentor"
	JobBookingEvent JobKind = "booking_event"
)

// JobStatus of an outbox job
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobDead    JobStatus = "dead"
)

// OutboxJob is a side effect recorded in the booking transaction and
// delivered after commit
type OutboxJob struct {
	ID            int64           `json:"id"`
	Kind          JobKind         `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        JobStatus       `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MentorNotificationPayload drives the in-app "new session" notification
type MentorNotificationPayload struct {
	MentorID    string    `json:"mentorId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	SessionID   string    `json:"sessionId"`
	StartsAt    time.Time `json:"startsAt"`
	SubjectName string    `json:"subjectName"`
}

// BookingEmailPayload holds everything the confirmation emails show. Each
// recipient gets its own job carrying the same payload.
type BookingEmailPayload struct {
	SessionID           string   `json:"sessionId"`
	MentorContact       Contact  `json:"mentorContact"`
	StudentContact      Contact  `json:"studentContact"`
	SubjectName         string   `json:"subjectName"`
	Date                string   `json:"date"`
	Time                string   `json:"time"`
	DurationMinutes     int      `json:"durationMinutes"`
	ParticipantCount    int      `json:"participantCount"`
	ParticipantContacts []string `json:"participantContacts"`
	Description         string   `json:"description,omitempty"`
	Modality            Modality `json:"modality"`
	Location            Location `json:"location,omitempty"`
	Price               int      `json:"price"`
	Currency            string   `json:"currency"`
}

// BookingEventType names a published session lifecycle event
type BookingEventType string

const (
	EventSessionConfirmed BookingEventType = "session.confirmed"
	EventSessionCancelled BookingEventType = "session.cancelled"
)

// BookingEvent is published to the configured broker
type BookingEvent struct {
	Type            BookingEventType `json:"type"`
	SessionID       string           `json:"sessionId"`
	MentorID        string           `json:"mentorId"`
	StudentID       string           `json:"studentId"`
	SubjectID       string           `json:"subjectId"`
	StartsAt        time.Time        `json:"startsAt"`
	DurationMinutes int              `json:"durationMinutes"`
	Price           int              `json:"price"`
	Currency        string           `json:"currency"`
	Modality        Modality         `json:"modality"`
	Location        Location         `json:"location,omitempty"`
	OccurredAt      time.Time        `json:"occurredAt"`
}

// Notification is an in-app message shown to a mentor
type Notification struct {
	ID        string    `json:"id"`
	MentorID  string    `json:"mentorId"`
	SessionID string    `json:"sessionId,omitempty"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
