package services

import (
	"context"

	"github.com/mentorium/mentorium-api/internal/models"
)

// BookingServiceInterface defines the booking use case
type BookingServiceInterface interface {
	Book(ctx context.Context, studentID string, req *models.BookingRequest) (*models.MentorshipSession, error)
}

// SessionServiceInterface defines session reads and cancellation
type SessionServiceInterface interface {
	Get(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error)
	Cancel(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error)
}

// CalendarServiceInterface defines availability reads
type CalendarServiceInterface interface {
	Calendar(ctx context.Context, from, to string) (*models.Calendar, error)
	MentorSlots(ctx context.Context, mentorID, from, to string) ([]*models.AvailabilitySlot, error)
}

// PricingServiceInterface defines price quotes
type PricingServiceInterface interface {
	Quote(durationMinutes int, modality models.Modality) (*models.PriceQuote, error)
}

// Kicker wakes the outbox dispatcher after a commit
type Kicker interface {
	Kick()
}
