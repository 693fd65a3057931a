package services_test

import (
	"net/http"
	"testing"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/cache"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/payment"
	"github.com/mentorium/mentorium-api/internal/repository/memory"
	"github.com/mentorium/mentorium-api/internal/services"
	"github.com/mentorium/mentorium-api/pkg/lock"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/stretchr/testify/require"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

const (
	mentorID   = "6f1c2a7e-0000-4000-8000-000000000001"
	mentor2ID  = "6f1c2a7e-0000-4000-8000-000000000002"
	studentID  = "6f1c2a7e-0000-4000-8000-000000000101"
	student2ID = "6f1c2a7e-0000-4000-8000-000000000102"
	subjectID  = "6f1c2a7e-0000-4000-8000-000000000201"
	subject2ID = "6f1c2a7e-0000-4000-8000-000000000202"
	testDate   = "2026-03-02"
)

func testConfig() *config.Config {
	return &config.Config{
		Booking: config.BookingConfig{
			MinDurationMinutes:    60,
			MinFragmentMinutes:    60,
			LocationBufferMinutes: 30,
			RateVirtual:           430,
			RateInPerson:          630,
			Currency:              "MXN",
			Timezone:              "America/Mexico_City",
			LockTTLSeconds:        30,
			MaxCalendarRangeDays:  62,
		},
		Cache: config.CacheConfig{CalendarTTLSeconds: 60},
	}
}

// seededStore has two mentors, two students and two subjects. Only the
// first mentor teaches anything.
func seededStore() *memory.Store {
	store := memory.New()
	store.AddMentor(models.Contact{ID: mentorID, Name: "Ana Torres", Email: "ana@example.com"})
	store.AddMentor(models.Contact{ID: mentor2ID, Name: "Luis Vega", Email: "luis@example.com"})
	store.AddStudent(models.Contact{ID: studentID, Name: "Sofia Ruiz", Email: "sofia@example.com"})
	store.AddStudent(models.Contact{ID: student2ID, Name: "Diego Paz", Email: "diego@example.com"})
	store.AddSubject(models.Subject{ID: subjectID, Name: "Calculus"})
	store.AddSubject(models.Subject{ID: subject2ID, Name: "Physics"})
	store.AssignSubject(mentorID, subjectID)
	store.AssignSubject(mentorID, subject2ID)
	return store
}

func virtualSlot(id, start, end string, duration int) *models.AvailabilitySlot {
	return &models.AvailabilitySlot{
		ID:              id,
		MentorID:        mentorID,
		Date:            testDate,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: duration,
		Modality:        models.ModalityVirtual,
		MaxParticipants: 3,
		Status:          models.SlotAvailable,
	}
}

func inPersonSlot(id, start, end string, duration int, loc models.Location) *models.AvailabilitySlot {
	slot := virtualSlot(id, start, end, duration)
	slot.Modality = models.ModalityInPerson
	slot.Location = loc
	return slot
}

func bookingRequest(slotID, start, end string) *models.BookingRequest {
	return &models.BookingRequest{
		SlotID:              slotID,
		SubjectID:           subjectID,
		StartTime:           start,
		EndTime:             end,
		ParticipantCount:    1,
		ParticipantContacts: []string{"sofia@example.com"},
		Description:         "Derivatives review",
	}
}

type bookingDeps struct {
	gateway payment.Gateway
	locker  lock.Locker
	kicker  services.Kicker
}

func newBookingService(t *testing.T, store *memory.Store, deps bookingDeps) *services.BookingService {
	t.Helper()
	if deps.gateway == nil {
		deps.gateway = payment.NewStubGateway()
	}
	cfg := testConfig()
	svc, err := services.NewBookingService(
		store.Stores(),
		services.NewPricingService(cfg),
		deps.gateway,
		deps.locker,
		deps.kicker,
		cfg,
		http.DefaultClient,
	)
	require.NoError(t, err)
	return svc
}

func newCalendarService(store *memory.Store) *services.CalendarService {
	cfg := testConfig()
	return services.NewCalendarService(store.Stores(), cache.NewCalendarCache(cfg.Cache.CalendarTTLSeconds, false), cfg)
}
