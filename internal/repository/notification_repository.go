package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/internal/models"
	"go.uber.org/zap"
)

// NotificationRepository stores in-app notifications
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification; a zero CreatedAt defaults to now. Inserting
// an ID that already exists is a no-op, so redelivered jobs do not duplicate.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	start := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO notifications (id, mentor_id, session_id, kind, title, body, read, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		n.ID, n.MentorID, n.SessionID, n.Kind, n.Title, n.Body, n.Read, n.CreatedAt)
	observe("createNotification", start, err, zap.String("mentor_id", n.MentorID))
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
