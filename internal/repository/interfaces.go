package repository

import (
	"context"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
)

// SlotStore is the availability store. Slots are only ever inserted and
// deleted; a booking replaces one row with up to three.
type SlotStore interface {
	// GetByID fetches a slot, ErrSlotNotFound if missing
	GetByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)

	// DeleteAvailable deletes the slot only while it is still available and
	// returns the deleted row. ErrSlotNotAvailable if it was already taken.
	DeleteAvailable(ctx context.Context, id string) (*models.AvailabilitySlot, error)

	// Insert stores a new slot row
	Insert(ctx context.Context, slot *models.AvailabilitySlot) error

	// ListAvailable returns available slots in the filter's date range,
	// ordered by date and start time
	ListAvailable(ctx context.Context, filter models.SlotFilter) ([]*models.AvailabilitySlot, error)

	// PriorInPersonSlot returns the mentor's latest reserved in-person slot on
	// date that ends at or before the given HH:MM, or nil if there is none
	PriorInPersonSlot(ctx context.Context, mentorID, date, before string) (*models.AvailabilitySlot, error)
}

// SessionStore holds mentorship sessions. Sessions are never deleted.
type SessionStore interface {
	Create(ctx context.Context, session *models.MentorshipSession) error
	GetByID(ctx context.Context, id string) (*models.MentorshipSession, error)

	// UpdateStatus moves a session from one status to another.
	// ErrSessionStatusConflict if the session is not in the from status.
	UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus, at time.Time) (*models.MentorshipSession, error)
}

// DirectoryStore reads mentors, students and subjects
type DirectoryStore interface {
	GetMentor(ctx context.Context, id string) (*models.Contact, error)
	GetStudent(ctx context.Context, id string) (*models.Contact, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	MentorTeaches(ctx context.Context, mentorID, subjectID string) (bool, error)

	// SubjectsForMentors maps mentor ID to the subjects they teach
	SubjectsForMentors(ctx context.Context, mentorIDs []string) (map[string][]models.Subject, error)

	// ListMentors maps mentor ID to contact for the given IDs
	ListMentors(ctx context.Context, ids []string) (map[string]models.Contact, error)
}

// NotificationStore holds in-app notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// OutboxStore is the durable queue for post-commit side effects
type OutboxStore interface {
	// Enqueue marshals payload to JSON and stores a pending job
	Enqueue(ctx context.Context, kind models.JobKind, payload any) (int64, error)

	// ClaimDue leases up to limit due jobs and increments their attempt count
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]*models.OutboxJob, error)

	MarkDone(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, next time.Time, lastErr string) error
	MarkDead(ctx context.Context, id int64, lastErr string) error
}

// TxManager runs fn in a transaction. Stores called with the ctx passed to
// fn take part in it. A non-nil error from fn rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	_ SlotStore         = (*SlotRepository)(nil)
	_ SessionStore      = (*SessionRepository)(nil)
	_ DirectoryStore    = (*DirectoryRepository)(nil)
	_ NotificationStore = (*NotificationRepository)(nil)
	_ OutboxStore       = (*OutboxRepository)(nil)
	_ TxManager         = (*PgTxManager)(nil)
)
