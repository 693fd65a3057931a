package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/cache"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"go.uber.org/zap"
)

// CalendarService projects available slots into a per-day calendar
type CalendarService struct {
	slots     repository.SlotStore
	directory repository.DirectoryStore
	cache     *cache.CalendarCache
	maxDays   int
}

// NewCalendarService creates a new calendar service
func NewCalendarService(stores repository.Stores, calendarCache *cache.CalendarCache, cfg *config.Config) *CalendarService {
	return &CalendarService{
		slots:     stores.Slots,
		directory: stores.Directory,
		cache:     calendarCache,
		maxDays:   cfg.Booking.MaxCalendarRangeDays,
	}
}

// Calendar returns every bookable (mentor, subject, slot) between from and
// to inclusive, grouped by day
func (s *CalendarService) Calendar(ctx context.Context, from, to string) (*models.Calendar, error) {
	if _, _, err := s.parseRange(from, to); err != nil {
		return nil, err
	}
	if cal, ok := s.cache.Get(from, to); ok {
		return cal, nil
	}

	generation := s.cache.Generation()
	slots, err := s.slots.ListAvailable(ctx, models.SlotFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}

	mentorIDs := distinctMentors(slots)
	subjects, err := s.directory.SubjectsForMentors(ctx, mentorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentor subjects: %w", err)
	}
	mentors, err := s.directory.ListMentors(ctx, mentorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentors: %w", err)
	}

	cal, err := Project(from, to, slots, subjects, mentors)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cal, generation)

	logger.Debug("Calendar projected",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("slots", len(slots)),
		zap.Int("mentors", len(mentorIDs)))
	return cal, nil
}

// MentorSlots returns one mentor's available slots in the range
func (s *CalendarService) MentorSlots(ctx context.Context, mentorID, from, to string) ([]*models.AvailabilitySlot, error) {
	if _, _, err := s.parseRange(from, to); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetMentor(ctx, mentorID); err != nil {
		return nil, err
	}
	return s.slots.ListAvailable(ctx, models.SlotFilter{MentorID: mentorID, From: from, To: to})
}

// Invalidate drops cached calendars. Registered as an availability change callback.
func (s *CalendarService) Invalidate() {
	s.cache.Flush()
}

func (s *CalendarService) parseRange(from, to string) (time.Time, time.Time, error) {
	start, end, err := parseDateRange(from, to)
	if err != nil {
		return start, end, err
	}
	if days := int(end.Sub(start).Hours()/24) + 1; s.maxDays > 0 && days > s.maxDays {
		return start, end, fmt.Errorf("%w: at most %d days", ErrInvalidDateRange, s.maxDays)
	}
	return start, end, nil
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidDateRange)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidDateRange)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", ErrInvalidDateRange)
	}
	return start, end, nil
}

// Project groups slots by day. Every day of the range is present, empty
// days included. A slot yields one option per subject its mentor teaches;
// mentors without subjects are not bookable and are left out.
func Project(from, to string, slots []*models.AvailabilitySlot, subjects map[string][]models.Subject, mentors map[string]models.Contact) (*models.Calendar, error) {
	start, end, err := parseDateRange(from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.CalendarDay)
	cal := &models.Calendar{From: from, To: to}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		cal.Days = append(cal.Days, models.CalendarDay{Date: date, Options: []models.CalendarOption{}})
	}
	for i := range cal.Days {
		byDate[cal.Days[i].Date] = &cal.Days[i]
	}

	ordered := append([]*models.AvailabilitySlot(nil), slots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		return ordered[i].StartTime < ordered[j].StartTime
	})

	pairs := make(map[string]map[string]bool)
	for _, slot := range ordered {
		day, ok := byDate[slot.Date]
		if !ok || !slot.IsAvailable() {
			continue
		}
		for _, subject := range subjects[slot.MentorID] {
			day.Options = append(day.Options, models.CalendarOption{
				MentorID:    slot.MentorID,
				MentorName:  mentors[slot.MentorID].Name,
				SubjectID:   subject.ID,
				SubjectName: subject.Name,
				Slot:        slot,
			})
			if pairs[slot.Date] == nil {
				pairs[slot.Date] = make(map[string]bool)
			}
			pairs[slot.Date][slot.MentorID+"|"+subject.ID] = true
		}
	}
	for i := range cal.Days {
		cal.Days[i].PairCount = len(pairs[cal.Days[i].Date])
	}
	return cal, nil
}

func distinctMentors(slots []*models.AvailabilitySlot) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, slot := range slots {
		if !seen[slot.MentorID] {
			seen[slot.MentorID] = true
			ids = append(ids, slot.MentorID)
		}
	}
	sort.Strings(ids)
	return ids
}

var _ CalendarServiceInterface = (*CalendarService)(nil)
