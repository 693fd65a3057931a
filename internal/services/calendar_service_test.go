package services_test

import (
	"context"
	"testing"

	"github.com/mentorium/mentorium-api/internal/cache"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/internal/services"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	slotA := virtualSlot("a", "09:00", "10:00", 60)
	slotB := virtualSlot("b", "13:00", "15:00", 120)
	slotC := virtualSlot("c", "09:00", "10:00", 60)
	slotC.MentorID = mentor2ID
	slotD := virtualSlot("d", "11:00", "12:00", 60)
	slotD.Date = "2026-03-04"

	subjects := map[string][]models.Subject{
		mentorID: {{ID: subjectID, Name: "Calculus"}, {ID: subject2ID, Name: "Physics"}},
	}
	mentors := map[string]models.Contact{
		mentorID:  {ID: mentorID, Name: "Ana Torres"},
		mentor2ID: {ID: mentor2ID, Name: "Luis Vega"},
	}

	cal, err := services.Project("2026-03-02", "2026-03-04",
		[]*models.AvailabilitySlot{slotB, slotA, slotC, slotD}, subjects, mentors)

	require.NoError(t, err)
	require.Len(t, cal.Days, 3)

	day := cal.Days[0]
	assert.Equal(t, "2026-03-02", day.Date)
	assert.Equal(t, 2, day.PairCount, "one mentor, two subjects; the mentor without subjects is left out")
	require.Len(t, day.Options, 4)
	assert.Equal(t, "a", day.Options[0].Slot.ID)
	assert.Equal(t, "Calculus", day.Options[0].SubjectName)
	assert.Equal(t, "Ana Torres", day.Options[0].MentorName)
	assert.Equal(t, "a", day.Options[1].Slot.ID)
	assert.Equal(t, "Physics", day.Options[1].SubjectName)
	assert.Equal(t, "b", day.Options[2].Slot.ID)

	assert.Equal(t, "2026-03-03", cal.Days[1].Date)
	assert.Zero(t, cal.Days[1].PairCount)
	assert.Empty(t, cal.Days[1].Options)

	assert.Equal(t, 2, cal.Days[2].PairCount)
	assert.Len(t, cal.Days[2].Options, 2)
}

func TestProject_SkipsReservedAndOutOfRangeSlots(t *testing.T) {
	reservedBy := studentID
	reserved := virtualSlot("r", "09:00", "10:00", 60)
	reserved.Status = models.SlotReserved
	reserved.ReservedBy = &reservedBy
	outside := virtualSlot("o", "09:00", "10:00", 60)
	outside.Date = "2026-04-01"
	subjects := map[string][]models.Subject{mentorID: {{ID: subjectID, Name: "Calculus"}}}

	cal, err := services.Project(testDate, testDate, []*models.AvailabilitySlot{reserved, outside}, subjects, nil)

	require.NoError(t, err)
	require.Len(t, cal.Days, 1)
	assert.Empty(t, cal.Days[0].Options)
}

func TestCalendar_UsesCacheUntilInvalidated(t *testing.T) {
	store := seededStore()
	store.AddSlot(virtualSlot("a", "09:00", "10:00", 60))
	svc := newCalendarService(store)
	ctx := context.Background()

	first, err := svc.Calendar(ctx, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	require.Len(t, first.Days, 7)
	assert.Equal(t, 2, first.Days[1].PairCount)

	store.AddSlot(virtualSlot("b", "11:00", "12:00", 60))
	cached, err := svc.Calendar(ctx, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Same(t, first, cached)

	svc.Invalidate()
	fresh, err := svc.Calendar(ctx, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Len(t, fresh.Days[1].Options, 4)
}

// racingSlotStore runs afterList once, after the wrapped store has answered
// ListAvailable and before the caller sees the result
type racingSlotStore struct {
	repository.SlotStore
	afterList func()
}

func (s *racingSlotStore) ListAvailable(ctx context.Context, filter models.SlotFilter) ([]*models.AvailabilitySlot, error) {
	slots, err := s.SlotStore.ListAvailable(ctx, filter)
	if s.afterList != nil {
		fn := s.afterList
		s.afterList = nil
		fn()
	}
	return slots, err
}

func TestCalendar_BookingCommittedDuringProjectionIsNotCached(t *testing.T) {
	store := seededStore()
	store.AddSlot(virtualSlot("slot-1", "09:00", "11:00", 120))
	ctx := context.Background()
	cfg := testConfig()
	booking := newBookingService(t, store, bookingDeps{})

	stores := store.Stores()
	racing := &racingSlotStore{SlotStore: stores.Slots}
	stores.Slots = racing
	svc := services.NewCalendarService(stores, cache.NewCalendarCache(cfg.Cache.CalendarTTLSeconds, false), cfg)
	store.OnChange(svc.Invalidate)

	racing.afterList = func() {
		_, err := booking.Book(ctx, studentID, bookingRequest("slot-1", "09:00", "11:00"))
		require.NoError(t, err)
	}
	stale, err := svc.Calendar(ctx, testDate, testDate)
	require.NoError(t, err)
	assert.Len(t, stale.Days[0].Options, 2, "the projection in flight still reflects the earlier read")

	fresh, err := svc.Calendar(ctx, testDate, testDate)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Zero(t, fresh.Days[0].PairCount)
	assert.Empty(t, fresh.Days[0].Options)
}

func TestCalendar_RejectsBadRanges(t *testing.T) {
	svc := newCalendarService(seededStore())
	tests := []struct {
		name, from, to string
	}{
		{"malformed from", "03/01/2026", "2026-03-07"},
		{"malformed to", "2026-03-01", "tomorrow"},
		{"to before from", "2026-03-07", "2026-03-01"},
		{"too long", "2026-01-01", "2026-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Calendar(context.Background(), tt.from, tt.to)
			assert.ErrorIs(t, err, services.ErrInvalidDateRange)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestMentorSlots(t *testing.T) {
	store := seededStore()
	store.AddSlot(virtualSlot("a", "09:00", "10:00", 60))
	other := virtualSlot("b", "09:00", "10:00", 60)
	other.MentorID = mentor2ID
	store.AddSlot(other)
	svc := newCalendarService(store)

	slots, err := svc.MentorSlots(context.Background(), mentorID, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "a", slots[0].ID)

	_, err = svc.MentorSlots(context.Background(), "unknown", "2026-03-01", "2026-03-07")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
