package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/internal/models"
	"go.uber.org/zap"
)

// OutboxRepository is the PostgreSQL outbox. Jobs are claimed with
// FOR UPDATE SKIP LOCKED so several API replicas can poll concurrently.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Enqueue stores a pending job in the ctx transaction, if any
func (r *OutboxRepository) Enqueue(ctx context.Context, kind models.JobKind, payload any) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	start := time.Now()
	var id int64
	err = conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO outbox_jobs (kind, payload) VALUES ($1, $2) RETURNING id`,
		string(kind), body,
	).Scan(&id)
	observe("enqueueOutboxJob", start, err, zap.String("kind", string(kind)))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue outbox job: %w", err)
	}
	return id, nil
}

// ClaimDue leases due jobs for lease and bumps their attempt counter
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]*models.OutboxJob, error) {
	start := time.Now()
	query := `
		UPDATE outbox_jobs
		SET attempts = attempts + 1,
		    locked_until = now() + make_interval(secs => $2::double precision),
		    updated_at = now()
		WHERE id IN (
			SELECT id FROM outbox_jobs
			WHERE status = 'pending'
			  AND next_attempt_at <= now()
			  AND (locked_until IS NULL OR locked_until < now())
			ORDER BY next_attempt_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, status, attempts, next_attempt_at, COALESCE(last_error, ''), created_at
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, limit, lease.Seconds())
	if err != nil {
		observe("claimOutboxJobs", start, err)
		return nil, fmt.Errorf("failed to claim outbox jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.OutboxJob, 0)
	for rows.Next() {
		var j models.OutboxJob
		var kind, status string
		var payload []byte
		if err := rows.Scan(&j.ID, &kind, &payload, &status, &j.Attempts, &j.NextAttemptAt, &j.LastError, &j.CreatedAt); err != nil {
			observe("claimOutboxJobs", start, err)
			return nil, fmt.Errorf("failed to scan outbox job: %w", err)
		}
		j.Kind = models.JobKind(kind)
		j.Status = models.JobStatus(status)
		j.Payload = payload
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		observe("claimOutboxJobs", start, err)
		return nil, fmt.Errorf("error iterating outbox jobs: %w", err)
	}

	observe("claimOutboxJobs", start, nil, zap.Int("count", len(jobs)))
	return jobs, nil
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id int64) error {
	return r.update(ctx, "completeOutboxJob",
		`UPDATE outbox_jobs SET status = 'done', locked_until = NULL, updated_at = now() WHERE id = $1`, id)
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id int64, next time.Time, lastErr string) error {
	return r.update(ctx, "retryOutboxJob",
		`UPDATE outbox_jobs SET next_attempt_at = $2, last_error = $3, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id, next, lastErr)
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id int64, lastErr string) error {
	return r.update(ctx, "deadLetterOutboxJob",
		`UPDATE outbox_jobs SET status = 'dead', last_error = $2, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id, lastErr)
}

func (r *OutboxRepository) update(ctx context.Context, operation, query string, args ...any) error {
	start := time.Now()
	_, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	observe(operation, start, err)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	return nil
}
