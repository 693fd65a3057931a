package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
)

// NotificationStore is the in-memory notification store
type NotificationStore struct {
	s *Store
}

func (v *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	c := *n
	if c.CreatedAt.IsZero() {
		c.CreatedAt = v.s.now().UTC()
	}
	return v.s.write(ctx, false, func(st *state) error {
		for _, existing := range st.notifications {
			if existing.ID == c.ID {
				return nil
			}
		}
		st.notifications = append(st.notifications, &c)
		return nil
	})
}

// ForMentor returns a mentor's notifications in insertion order
func (v *NotificationStore) ForMentor(mentorID string) []models.Notification {
	out := make([]models.Notification, 0)
	v.s.locked(func(st *state) {
		for _, n := range st.notifications {
			if n.MentorID == mentorID {
				out = append(out, *n)
			}
		}
	})
	return out
}

// OutboxStore is the in-memory outbox
type OutboxStore struct {
	s *Store
}

func (v *OutboxStore) Enqueue(ctx context.Context, kind models.JobKind, payload any) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	now := v.s.now().UTC()

	var id int64
	err = v.s.write(ctx, false, func(st *state) error {
		st.nextJobID++
		id = st.nextJobID
		st.jobs[id] = &models.OutboxJob{
			ID:            id,
			Kind:          kind,
			Payload:       body,
			Status:        models.JobPending,
			NextAttemptAt: now,
			CreatedAt:     now,
		}
		return nil
	})
	return id, err
}

// ClaimDue has no lease bookkeeping: the store is single-process, and a
// claimed job is pushed past the lease so a concurrent poll skips it
func (v *OutboxStore) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]*models.OutboxJob, error) {
	now := v.s.now().UTC()
	claimed := make([]*models.OutboxJob, 0)

	err := v.s.write(ctx, false, func(st *state) error {
		due := make([]*models.OutboxJob, 0)
		for _, j := range st.jobs {
			if j.Status == models.JobPending && !j.NextAttemptAt.After(now) {
				due = append(due, j)
			}
		}
		sort.Slice(due, func(i, k int) bool {
			if !due[i].NextAttemptAt.Equal(due[k].NextAttemptAt) {
				return due[i].NextAttemptAt.Before(due[k].NextAttemptAt)
			}
			return due[i].ID < due[k].ID
		})
		if limit > 0 && len(due) > limit {
			due = due[:limit]
		}
		for _, j := range due {
			next := *j
			next.Attempts++
			next.NextAttemptAt = now.Add(lease)
			st.jobs[j.ID] = &next
			c := next
			claimed = append(claimed, &c)
		}
		return nil
	})
	return claimed, err
}

func (v *OutboxStore) MarkDone(ctx context.Context, id int64) error {
	return v.update(ctx, id, func(j *models.OutboxJob) { j.Status = models.JobDone })
}

func (v *OutboxStore) MarkRetry(ctx context.Context, id int64, next time.Time, lastErr string) error {
	return v.update(ctx, id, func(j *models.OutboxJob) {
		j.NextAttemptAt = next
		j.LastError = lastErr
	})
}

func (v *OutboxStore) MarkDead(ctx context.Context, id int64, lastErr string) error {
	return v.update(ctx, id, func(j *models.OutboxJob) {
		j.Status = models.JobDead
		j.LastError = lastErr
	})
}

func (v *OutboxStore) update(ctx context.Context, id int64, fn func(j *models.OutboxJob)) error {
	return v.s.write(ctx, false, func(st *state) error {
		j, ok := st.jobs[id]
		if !ok {
			return fmt.Errorf("outbox job %d not found", id)
		}
		next := *j
		fn(&next)
		st.jobs[id] = &next
		return nil
	})
}

// Jobs returns every job ordered by ID
func (v *OutboxStore) Jobs() []models.OutboxJob {
	out := make([]models.OutboxJob, 0)
	v.s.locked(func(st *state) {
		for _, j := range st.jobs {
			out = append(out, *j)
		}
	})
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}
