package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository/memory"
	"github.com/mentorium/mentorium-api/internal/services"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookedSession(t *testing.T) (*memory.Store, *models.MentorshipSession) {
	t.Helper()
	store := seededStore()
	store.AddSlot(virtualSlot("slot-1", "09:00", "11:00", 120))
	session, err := newBookingService(t, store, bookingDeps{}).
		Book(context.Background(), studentID, bookingRequest("slot-1", "09:00", "11:00"))
	require.NoError(t, err)
	return store, session
}

func TestSessionService_Get(t *testing.T) {
	store, session := bookedSession(t)
	svc := services.NewSessionService(store.Stores(), nil, testConfig(), http.DefaultClient)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity *models.Identity
		wantErr  error
	}{
		{"student", &models.Identity{UserID: studentID, Role: models.RoleStudent}, nil},
		{"mentor", &models.Identity{UserID: mentorID, Role: models.RoleMentor}, nil},
		{"other student", &models.Identity{UserID: student2ID, Role: models.RoleStudent}, apperrors.ErrAccessDenied},
		{"student id used as mentor", &models.Identity{UserID: studentID, Role: models.RoleMentor}, apperrors.ErrAccessDenied},
		{"anonymous", nil, apperrors.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.identity, session.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, session.ID, got.ID)
		})
	}

	_, err := svc.Get(ctx, &models.Identity{UserID: studentID, Role: models.RoleStudent}, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionService_Cancel(t *testing.T) {
	store, session := bookedSession(t)
	kicker := new(MockKicker)
	kicker.On("Kick").Return()
	svc := services.NewSessionService(store.Stores(), kicker, testConfig(), http.DefaultClient)
	student := &models.Identity{UserID: studentID, Role: models.RoleStudent}
	slotsBefore := store.Slots().All(mentorID, testDate)

	cancelled, err := svc.Cancel(context.Background(), student, session.ID)

	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, slotsBefore, store.Slots().All(mentorID, testDate), "cancelling does not restore availability")

	jobs := store.Outbox().Jobs()
	last := jobs[len(jobs)-1]
	assert.Equal(t, models.JobBookingEvent, last.Kind)
	var event models.BookingEvent
	require.NoError(t, json.Unmarshal(last.Payload, &event))
	assert.Equal(t, models.EventSessionCancelled, event.Type)
	kicker.AssertNumberOfCalls(t, "Kick", 1)

	_, err = svc.Cancel(context.Background(), student, session.ID)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestSessionService_CancelByStranger(t *testing.T) {
	store, session := bookedSession(t)
	svc := services.NewSessionService(store.Stores(), nil, testConfig(), http.DefaultClient)

	_, err := svc.Cancel(context.Background(), &models.Identity{UserID: mentor2ID, Role: models.RoleMentor}, session.ID)

	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
	stored, err := store.Sessions().GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionConfirmed, stored.Status)
}
