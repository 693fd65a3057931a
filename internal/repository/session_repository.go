package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/internal/models"
	"go.uber.org/zap"
)

const sessionColumns = `
	id::text, mentor_id::text, student_id::text, subject_id::text, starts_at,
	duration_minutes, price, currency, paid, COALESCE(payment_reference, ''),
	participant_count, participant_contacts, COALESCE(description, ''),
	modality, COALESCE(location, ''), status, cancelled_at, created_at`

// SessionRepository is the PostgreSQL session store
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*models.MentorshipSession, error) {
	var s models.MentorshipSession
	var modality, location, status string
	err := row.Scan(
		&s.ID, &s.MentorID, &s.StudentID, &s.SubjectID, &s.StartsAt,
		&s.DurationMinutes, &s.Price, &s.Currency, &s.Paid, &s.PaymentReference,
		&s.ParticipantCount, &s.ParticipantContacts, &s.Description,
		&modality, &location, &status, &s.CancelledAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Modality = models.Modality(modality)
	s.Location = models.Location(location)
	s.Status = models.SessionStatus(status)
	return &s, nil
}

// Create inserts a session
func (r *SessionRepository) Create(ctx context.Context, s *models.MentorshipSession) error {
	start := time.Now()
	query := `
		INSERT INTO mentorship_sessions (
			id, mentor_id, student_id, subject_id, starts_at, duration_minutes,
			price, currency, paid, payment_reference, participant_count,
			participant_contacts, description, modality, location, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11,
			$12, NULLIF($13, ''), $14, NULLIF($15, ''), $16, $17
		)
	`

	contacts := s.ParticipantContacts
	if contacts == nil {
		contacts = []string{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.ID, s.MentorID, s.StudentID, s.SubjectID, s.StartsAt, s.DurationMinutes,
		s.Price, s.Currency, s.Paid, s.PaymentReference, s.ParticipantCount,
		contacts, s.Description, string(s.Modality), string(s.Location), string(s.Status), s.CreatedAt,
	)
	observe("createSession", start, err, zap.String("session_id", s.ID))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID fetches a session
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.MentorshipSession, error) {
	start := time.Now()
	query := `SELECT ` + sessionColumns + ` FROM mentorship_sessions WHERE id = $1`

	s, err := scanSession(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("getSession", start, nil)
		return nil, ErrSessionNotFound
	}
	observe("getSession", start, err, zap.String("session_id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return s, nil
}

// UpdateStatus is a conditional transition; cancelled_at is stamped on cancel
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus, at time.Time) (*models.MentorshipSession, error) {
	start := time.Now()
	q := conn(ctx, r.pool)
	query := `
		UPDATE mentorship_sessions
		SET status = $3::text,
		    cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END
		WHERE id = $1 AND status = $2::text
		RETURNING ` + sessionColumns

	s, err := scanSession(q.QueryRow(ctx, query, id, string(from), string(to), at))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("updateSessionStatus", start, nil, zap.String("session_id", id))

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM mentorship_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return nil, ErrSessionNotFound
		}
		return nil, ErrSessionStatusConflict
	}
	observe("updateSessionStatus", start, err, zap.String("session_id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}
	return s, nil
}
