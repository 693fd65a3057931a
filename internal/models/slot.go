package models

import (
	"fmt"
	"time"

	"github.com/mentorium/mentorium-api/internal/timeofday"
)

// Modality is how a session is delivered
type Modality string

const (
	ModalityVirtual  Modality = "virtual"
	ModalityInPerson Modality = "in_person"
)

// Valid reports whether m is a known modality
func (m Modality) Valid() bool {
	return m == ModalityVirtual || m == ModalityInPerson
}

// Location is where an in-person session takes place
type Location string

const (
	LocationMentorHome Location = "mentor_home"
	LocationCampus     Location = "campus"
)

// Valid reports whether l is a known location
func (l Location) Valid() bool {
	return l == LocationMentorHome || l == LocationCampus
}

// Label is the human-readable location name used in user-facing messages
func (l Location) Label() string {
	switch l {
	case LocationMentorHome:
		return "the mentor's home"
	case LocationCampus:
		return "campus"
	default:
		return string(l)
	}
}

// SlotStatus is the bookability of an availability slot
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
)

// AvailabilitySlot is a mentor-owned, date-stamped time range.
// Slots are never edited in place: booking replaces one slot with up to
// three new rows.
type AvailabilitySlot struct {
	ID              string     `json:"id"`
	MentorID        string     `json:"mentorId"`
	Date            string     `json:"date"`      // YYYY-MM-DD
	StartTime       string     `json:"startTime"` // HH:MM
	EndTime         string     `json:"endTime"`   // HH:MM
	DurationMinutes int        `json:"durationMinutes"`
	Modality        Modality   `json:"modality"`
	Location        Location   `json:"location,omitempty"`
	MaxParticipants int        `json:"maxParticipants"`
	Status          SlotStatus `json:"status"`
	ReservedBy      *string    `json:"reservedBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Range returns the slot's time range in minutes
func (s *AvailabilitySlot) Range() (timeofday.Range, error) {
	return timeofday.ParseRange(s.StartTime, s.EndTime)
}

// IsAvailable reports whether the slot can still be booked
func (s *AvailabilitySlot) IsAvailable() bool {
	return s.Status == SlotAvailable && s.ReservedBy == nil
}

// Clone returns a deep copy
func (s *AvailabilitySlot) Clone() *AvailabilitySlot {
	if s == nil {
		return nil
	}
	c := *s
	if s.ReservedBy != nil {
		v := *s.ReservedBy
		c.ReservedBy = &v
	}
	return &c
}

// Validate checks the row-level invariants
func (s *AvailabilitySlot) Validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("slot %s: invalid date %q", s.ID, s.Date)
	}
	r, err := s.Range()
	if err != nil {
		return fmt.Errorf("slot %s: %w", s.ID, err)
	}
	if s.DurationMinutes != r.Duration() {
		return fmt.Errorf("slot %s: duration %d does not match range %s", s.ID, s.DurationMinutes, r)
	}
	if !s.Modality.Valid() {
		return fmt.Errorf("slot %s: unknown modality %q", s.ID, s.Modality)
	}
	if s.Modality == ModalityInPerson && !s.Location.Valid() {
		return fmt.Errorf("slot %s: in-person slot needs a location", s.ID)
	}
	if s.Modality == ModalityVirtual && s.Location != "" {
		return fmt.Errorf("slot %s: virtual slot cannot have a location", s.ID)
	}
	if s.MaxParticipants < 1 {
		return fmt.Errorf("slot %s: max participants must be at least 1", s.ID)
	}
	switch s.Status {
	case SlotAvailable:
		if s.ReservedBy != nil {
			return fmt.Errorf("slot %s: available slot cannot have a reserving party", s.ID)
		}
	case SlotReserved:
		if s.ReservedBy == nil || *s.ReservedBy == "" {
			return fmt.Errorf("slot %s: reserved slot needs a reserving party", s.ID)
		}
	default:
		return fmt.Errorf("slot %s: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// DateLayout is the calendar date format used across the API
const DateLayout = "2006-01-02"

// SlotFilter narrows ListAvailable. MentorID is optional.
type SlotFilter struct {
	MentorID string
	From     string // YYYY-MM-DD, inclusive
	To       string // YYYY-MM-DD, inclusive
}
