package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/mentorium/mentorium-api/pkg/httpclient"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/trigger"
	"go.uber.org/zap"
)

// SessionService reads and cancels mentorship sessions. Cancelling does
// not give the time back to the mentor's availability.
type SessionService struct {
	stores     repository.Stores
	kicker     Kicker
	config     *config.Config
	httpClient httpclient.Client
	now        func() time.Time
}

// NewSessionService creates a new session service. kicker may be nil.
func NewSessionService(stores repository.Stores, kicker Kicker, cfg *config.Config, httpClient httpclient.Client) *SessionService {
	return &SessionService{
		stores:     stores,
		kicker:     kicker,
		config:     cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Get returns a session visible to identity
func (s *SessionService) Get(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParticipant(identity, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel moves a confirmed session to cancelled
func (s *SessionService) Cancel(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error) {
	session, err := s.Get(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionConfirmed {
		metrics.SessionCancellations.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidTransition, session.Status)
	}

	now := s.now().UTC()
	var cancelled *models.MentorshipSession
	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		cancelled, err = s.stores.Sessions.UpdateStatus(ctx, sessionID, models.SessionConfirmed, models.SessionCancelled, now)
		if err != nil {
			return err
		}
		_, err = s.stores.Outbox.Enqueue(ctx, models.JobBookingEvent, bookingEvent(models.EventSessionCancelled, cancelled, now))
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionStatusConflict) {
			metrics.SessionCancellations.WithLabelValues("invalid_transition").Inc()
			return nil, fmt.Errorf("%w: session changed concurrently", ErrInvalidTransition)
		}
		metrics.SessionCancellations.WithLabelValues("error").Inc()
		logger.Error("Failed to cancel session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	metrics.SessionCancellations.WithLabelValues("success").Inc()
	logger.Info("Session cancelled",
		zap.String("session_id", sessionID),
		zap.String("cancelled_by", identity.UserID),
		zap.String("role", string(identity.Role)))

	if s.kicker != nil {
		s.kicker.Kick()
	}
	trigger.CallAsync(s.config.EventTriggers.SessionCancelledTriggerURL, sessionID, s.httpClient)
	return cancelled, nil
}

func authorizeParticipant(identity *models.Identity, session *models.MentorshipSession) error {
	if identity == nil {
		return apperrors.ErrUnauthorized
	}
	switch identity.Role {
	case models.RoleStudent:
		if identity.UserID == session.StudentID {
			return nil
		}
	case models.RoleMentor:
		if identity.UserID == session.MentorID {
			return nil
		}
	}
	return apperrors.AccessDeniedError("not a participant of this session")
}

var _ SessionServiceInterface = (*SessionService)(nil)
