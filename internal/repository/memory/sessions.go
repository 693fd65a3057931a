package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
)

// SessionStore is the in-memory session store
type SessionStore struct {
	s *Store
}

func (v *SessionStore) Create(ctx context.Context, session *models.MentorshipSession) error {
	return v.s.write(ctx, false, func(st *state) error {
		if _, exists := st.sessions[session.ID]; exists {
			return apperrors.ConflictError("session already exists")
		}
		st.sessions[session.ID] = session.Clone()
		return nil
	})
}

func (v *SessionStore) GetByID(ctx context.Context, id string) (*models.MentorshipSession, error) {
	var session *models.MentorshipSession
	v.s.read(ctx, func(st *state) { session = st.sessions[id].Clone() })
	if session == nil {
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

func (v *SessionStore) UpdateStatus(ctx context.Context, id string, from, to models.SessionStatus, at time.Time) (*models.MentorshipSession, error) {
	var updated *models.MentorshipSession
	err := v.s.write(ctx, false, func(st *state) error {
		current, ok := st.sessions[id]
		if !ok {
			return repository.ErrSessionNotFound
		}
		if current.Status != from {
			return repository.ErrSessionStatusConflict
		}
		next := current.Clone()
		next.Status = to
		if to == models.SessionCancelled {
			t := at
			next.CancelledAt = &t
		}
		st.sessions[id] = next
		updated = next.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// All returns every session ordered by creation time
func (v *SessionStore) All() []*models.MentorshipSession {
	out := make([]*models.MentorshipSession, 0)
	v.s.locked(func(st *state) {
		for _, s := range st.sessions {
			out = append(out, s.Clone())
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
