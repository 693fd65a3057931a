package realtime_test

import (
	"context"
	"testing"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/realtime"
	"github.com/mentorium/mentorium-api/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFeed_FiresOnCommittedSlotChanges(t *testing.T) {
	store := memory.New()
	store.AddSlot(&models.AvailabilitySlot{
		ID: "slot-1", MentorID: "mentor-1", Date: "2026-03-02",
		StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60,
		Modality: models.ModalityVirtual, MaxParticipants: 1, Status: models.SlotAvailable,
	})
	feed := realtime.NewLocalFeed(store.OnChange)
	var changes []realtime.Change
	feed.OnChange(func(c realtime.Change) { changes = append(changes, c) })

	_, err := store.Slots().DeleteAvailable(context.Background(), "slot-1")

	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "commit", changes[0].Op)
	assert.True(t, feed.IsConnected())
}

func TestLocalFeed_IgnoresRolledBackChanges(t *testing.T) {
	store := memory.New()
	feed := realtime.NewLocalFeed(store.OnChange)
	fired := 0
	feed.OnChange(func(realtime.Change) { fired++ })

	err := store.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := store.Slots().DeleteAvailable(ctx, "missing")
		return err
	})

	assert.Error(t, err)
	assert.Zero(t, fired)
}
