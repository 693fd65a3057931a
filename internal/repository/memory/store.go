// Package memory is an in-process implementation of the repository
// interfaces, used in offline mode and in tests. Transactions are
// serialised and roll back by restoring a snapshot. Reads outside a
// transaction see the last committed state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"go.uber.org/zap"
)

type txMarker struct{}

type state struct {
	slots          map[string]*models.AvailabilitySlot
	sessions       map[string]*models.MentorshipSession
	mentors        map[string]models.Contact
	students       map[string]models.Contact
	subjects       map[string]models.Subject
	mentorSubjects map[string]map[string]bool
	notifications  []*models.Notification
	jobs           map[int64]*models.OutboxJob
	nextJobID      int64
}

func newState() *state {
	return &state{
		slots:          make(map[string]*models.AvailabilitySlot),
		sessions:       make(map[string]*models.MentorshipSession),
		mentors:        make(map[string]models.Contact),
		students:       make(map[string]models.Contact),
		subjects:       make(map[string]models.Subject),
		mentorSubjects: make(map[string]map[string]bool),
		jobs:           make(map[int64]*models.OutboxJob),
	}
}

// clone copies the maps; stored values are never mutated in place so
// sharing the pointers is safe
func (st *state) clone() *state {
	c := newState()
	for k, v := range st.slots {
		c.slots[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.mentors {
		c.mentors[k] = v
	}
	for k, v := range st.students {
		c.students[k] = v
	}
	for k, v := range st.subjects {
		c.subjects[k] = v
	}
	for k, v := range st.mentorSubjects {
		set := make(map[string]bool, len(v))
		for s := range v {
			set[s] = true
		}
		c.mentorSubjects[k] = set
	}
	c.notifications = append(c.notifications, st.notifications...)
	for k, v := range st.jobs {
		c.jobs[k] = v
	}
	c.nextJobID = st.nextJobID
	return c
}

// Store holds all offline data
type Store struct {
	txMu sync.Mutex // held for the whole of a transaction or a single write
	mu   sync.Mutex // guards data and committed
	data *state
	// committed is the state as of the start of the open transaction, nil
	// when none is open. Readers outside the transaction see it instead of
	// uncommitted writes.
	committed *state

	// slotsChanged is set by slot writes inside a transaction and fired on commit
	slotsChanged bool
	listenersMu  sync.Mutex
	listeners    []func()

	now func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// OnChange registers fn to run after every committed slot change
func (s *Store) OnChange(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) fireChange() {
	s.listenersMu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// write runs fn as a single-statement transaction unless ctx already carries one
func (s *Store) write(ctx context.Context, slotChange bool, fn func(st *state) error) error {
	if inTx(ctx) {
		s.mu.Lock()
		err := fn(s.data)
		if err == nil && slotChange {
			s.slotsChanged = true
		}
		s.mu.Unlock()
		return err
	}

	s.txMu.Lock()
	s.mu.Lock()
	err := fn(s.data)
	s.mu.Unlock()
	s.txMu.Unlock()

	if err == nil && slotChange {
		s.fireChange()
	}
	return err
}

func (s *Store) locked(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// read runs fn against the state visible to ctx: the transaction's own
// writes inside a transaction, the last committed state outside one
func (s *Store) read(ctx context.Context, fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data
	if !inTx(ctx) && s.committed != nil {
		st = s.committed
	}
	fn(st)
}

// WithinTx implements repository.TxManager
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	s.mu.Lock()
	snapshot := s.data.clone()
	s.committed = snapshot
	s.slotsChanged = false
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txMarker{}, true))

	s.mu.Lock()
	changed := s.slotsChanged
	if err != nil {
		s.data = snapshot
		changed = false
	}
	s.slotsChanged = false
	s.committed = nil
	s.mu.Unlock()
	s.txMu.Unlock()

	if changed {
		s.fireChange()
	}
	return err
}

// Slots returns the availability store view
func (s *Store) Slots() *SlotStore { return &SlotStore{s: s} }

// Sessions returns the session store view
func (s *Store) Sessions() *SessionStore { return &SessionStore{s: s} }

// Directory returns the directory view
func (s *Store) Directory() *DirectoryStore { return &DirectoryStore{s: s} }

// Notifications returns the notification store view
func (s *Store) Notifications() *NotificationStore { return &NotificationStore{s: s} }

// Outbox returns the outbox view
func (s *Store) Outbox() *OutboxStore { return &OutboxStore{s: s} }

// Stores returns every view bundled for the services
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Slots:         s.Slots(),
		Sessions:      s.Sessions(),
		Directory:     s.Directory(),
		Notifications: s.Notifications(),
		Outbox:        s.Outbox(),
		Tx:            s,
	}
}

// Seeding helpers. They bypass transactions and change hooks.

func (s *Store) AddMentor(c models.Contact) {
	s.locked(func(st *state) { st.mentors[c.ID] = c })
}

func (s *Store) AddStudent(c models.Contact) {
	s.locked(func(st *state) { st.students[c.ID] = c })
}

func (s *Store) AddSubject(sub models.Subject) {
	s.locked(func(st *state) { st.subjects[sub.ID] = sub })
}

// AssignSubject records that mentorID teaches subjectID
func (s *Store) AssignSubject(mentorID, subjectID string) {
	s.locked(func(st *state) {
		set, ok := st.mentorSubjects[mentorID]
		if !ok {
			set = make(map[string]bool)
			st.mentorSubjects[mentorID] = set
		}
		set[subjectID] = true
	})
}

// AddSlot stores a copy of slot
func (s *Store) AddSlot(slot *models.AvailabilitySlot) {
	s.locked(func(st *state) { st.slots[slot.ID] = slot.Clone() })
}

// Seed is the offline seed file layout
type Seed struct {
	Mentors        []models.Contact           `json:"mentors"`
	Students       []models.Contact           `json:"students"`
	Subjects       []models.Subject           `json:"subjects"`
	MentorSubjects []MentorSubject            `json:"mentorSubjects"`
	Slots          []*models.AvailabilitySlot `json:"slots"`
}

type MentorSubject struct {
	MentorID  string `json:"mentorId"`
	SubjectID string `json:"subjectId"`
}

// Apply loads seed data; invalid slots are rejected
func (s *Store) Apply(seed Seed) error {
	for _, slot := range seed.Slots {
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("invalid seed slot: %w", err)
		}
	}
	for _, m := range seed.Mentors {
		s.AddMentor(m)
	}
	for _, st := range seed.Students {
		s.AddStudent(st)
	}
	for _, sub := range seed.Subjects {
		s.AddSubject(sub)
	}
	for _, ms := range seed.MentorSubjects {
		s.AssignSubject(ms.MentorID, ms.SubjectID)
	}
	for _, slot := range seed.Slots {
		s.AddSlot(slot)
	}
	return nil
}

// LoadSeedFile reads a JSON seed file into the store
func (s *Store) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := s.Apply(seed); err != nil {
		return err
	}
	logger.Info("Loaded offline seed data",
		zap.String("path", path),
		zap.Int("mentors", len(seed.Mentors)),
		zap.Int("slots", len(seed.Slots)))
	return nil
}

var (
	_ repository.TxManager         = (*Store)(nil)
	_ repository.SlotStore         = (*SlotStore)(nil)
	_ repository.SessionStore      = (*SessionStore)(nil)
	_ repository.DirectoryStore    = (*DirectoryStore)(nil)
	_ repository.NotificationStore = (*NotificationStore)(nil)
	_ repository.OutboxStore       = (*OutboxStore)(nil)
)

func sortSlots(slots []*models.AvailabilitySlot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.MentorID < b.MentorID
	})
}
