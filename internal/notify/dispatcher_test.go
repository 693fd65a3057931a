package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/notify"
	"github.com/mentorium/mentorium-api/internal/repository/memory"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/mailer"
	"github.com/mentorium/mentorium-api/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := logger.Initialize(logger.Config{Level: "debug", Environment: "development"}); err != nil {
		panic(err)
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
	// failures counts down the sends to fail per address
	failures map[string]int
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.failures[msg.To] > 0 {
		s.failures[msg.To]--
		return errors.New("mail API returned 503")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		out = append(out, msg.To)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingArchiver struct {
	keys []string
}

func (a *recordingArchiver) PutJSON(_ context.Context, key string, _ any) error {
	a.keys = append(a.keys, key)
	return nil
}

// immediate retries with no backoff so tests can poll again right away
func testConfig(maxAttempts int) notify.Config {
	return notify.Config{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  maxAttempts,
		Lease:        time.Minute,
		Backoff:      retry.Config{InitialDelay: 0, Multiplier: 1},
	}
}

func enqueueBooking(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	startsAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := store.Outbox().Enqueue(ctx, models.JobNotifyMentor, models.MentorNotificationPayload{
		MentorID: "mentor-1", StudentID: "student-1", StudentName: "Sofia Ruiz",
		SessionID: "session-1", StartsAt: startsAt, SubjectName: "Calculus",
	})
	require.NoError(t, err)
	emails := models.BookingEmailPayload{
		SessionID:        "session-1",
		MentorContact:    models.Contact{ID: "mentor-1", Name: "Ana Torres", Email: "ana@example.com"},
		StudentContact:   models.Contact{ID: "student-1", Name: "Sofia Ruiz", Email: "sofia@example.com"},
		SubjectName:      "Calculus",
		Date:             "2026-03-02",
		Time:             "09:00-10:00",
		DurationMinutes:  60,
		ParticipantCount: 1,
		Modality:         models.ModalityInPerson,
		Location:         models.LocationCampus,
		Price:            630,
		Currency:         "MXN",
	}
	_, err = store.Outbox().Enqueue(ctx, models.JobStudentEmail, emails)
	require.NoError(t, err)
	_, err = store.Outbox().Enqueue(ctx, models.JobMentorEmail, emails)
	require.NoError(t, err)
	_, err = store.Outbox().Enqueue(ctx, models.JobBookingEvent, models.BookingEvent{
		Type: models.EventSessionConfirmed, SessionID: "session-1", StartsAt: startsAt,
	})
	require.NoError(t, err)
}

func TestProcessDue_DeliversEveryKind(t *testing.T) {
	store := memory.New()
	enqueueBooking(t, store)
	sender := &recordingSender{}
	pub := &recordingPublisher{}
	d := notify.NewDispatcher(store.Outbox(), testConfig(3), nil)
	d.RegisterDefaults(store.Notifications(), sender, pub)

	n, err := d.ProcessDue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	for _, job := range store.Outbox().Jobs() {
		assert.Equal(t, models.JobDone, job.Status, "job %d", job.ID)
	}

	notes := store.Notifications().ForMentor("mentor-1")
	require.Len(t, notes, 1)
	assert.Equal(t, "session-1", notes[0].SessionID)
	assert.Contains(t, notes[0].Body, "Sofia Ruiz booked Calculus")

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "sofia@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Text, "in person, campus")
	assert.Contains(t, sender.sent[0].Text, "630 MXN")
	assert.Equal(t, "ana@example.com", sender.sent[1].To)

	assert.Contains(t, sender.sent[1].Text, "Sofia Ruiz (sofia@example.com) booked a session")

	assert.Equal(t, 1, pub.count())
}

func TestProcessDue_MentorEmailFailureDoesNotResendStudentEmail(t *testing.T) {
	store := memory.New()
	enqueueBooking(t, store)
	sender := &recordingSender{failures: map[string]int{"ana@example.com": 1}}
	d := notify.NewDispatcher(store.Outbox(), testConfig(3), nil)
	d.RegisterDefaults(store.Notifications(), sender, &recordingPublisher{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := d.ProcessDue(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"sofia@example.com", "ana@example.com"}, sender.recipients())
	for _, job := range store.Outbox().Jobs() {
		assert.Equal(t, models.JobDone, job.Status, "job %d", job.ID)
		if job.Kind == models.JobMentorEmail {
			assert.Equal(t, 2, job.Attempts)
		} else {
			assert.Equal(t, 1, job.Attempts)
		}
	}
}

func TestNotifyMentorHandler_RedeliveryDoesNotDuplicate(t *testing.T) {
	store := memory.New()
	enqueueBooking(t, store)
	job := store.Outbox().Jobs()[0]
	handler := notify.NotifyMentorHandler(store.Notifications())

	require.NoError(t, handler(context.Background(), &job))
	require.NoError(t, handler(context.Background(), &job))

	assert.Len(t, store.Notifications().ForMentor("mentor-1"), 1)
}

func TestProcessDue_RetriesThenDeadLetters(t *testing.T) {
	store := memory.New()
	_, err := store.Outbox().Enqueue(context.Background(), models.JobMentorEmail, models.BookingEmailPayload{SessionID: "s1"})
	require.NoError(t, err)
	sender := &recordingSender{err: errors.New("mail API returned 503")}
	archiver := &recordingArchiver{}
	d := notify.NewDispatcher(store.Outbox(), testConfig(3), archiver)
	d.Register(models.JobMentorEmail, notify.MentorEmailHandler(sender))
	ctx := context.Background()

	_, err = d.ProcessDue(ctx)
	require.NoError(t, err)
	job := store.Outbox().Jobs()[0]
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Contains(t, job.LastError, "503")

	_, err = d.ProcessDue(ctx)
	require.NoError(t, err)
	_, err = d.ProcessDue(ctx)
	require.NoError(t, err)

	job = store.Outbox().Jobs()[0]
	assert.Equal(t, models.JobDead, job.Status)
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, []string{"outbox/booking_email_mentor/1.json"}, archiver.keys)

	n, err := d.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "dead jobs are not claimed again")
}

func TestProcessDue_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.JobKind
		payload any
	}{
		{"malformed payload", models.JobBookingEvent, "not an object"},
		{"unknown kind", models.JobKind("sms"), map[string]string{"to": "+520000000000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			_, err := store.Outbox().Enqueue(context.Background(), tt.kind, tt.payload)
			require.NoError(t, err)
			d := notify.NewDispatcher(store.Outbox(), testConfig(5), nil)
			d.Register(models.JobBookingEvent, notify.BookingEventHandler(&recordingPublisher{}))

			_, err = d.ProcessDue(context.Background())

			require.NoError(t, err)
			job := store.Outbox().Jobs()[0]
			assert.Equal(t, models.JobDead, job.Status)
			assert.Equal(t, 1, job.Attempts)
		})
	}
}

func TestRun_KickDeliversPromptly(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	cfg := testConfig(3)
	cfg.PollInterval = time.Hour
	d := notify.NewDispatcher(store.Outbox(), cfg, nil)
	d.Register(models.JobBookingEvent, notify.BookingEventHandler(pub))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	_, err := store.Outbox().Enqueue(context.Background(), models.JobBookingEvent, models.BookingEvent{SessionID: "s1"})
	require.NoError(t, err)
	d.Kick()
	d.Kick()

	assert.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
