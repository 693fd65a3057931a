package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/partition"
	"github.com/mentorium/mentorium-api/internal/payment"
	"github.com/mentorium/mentorium-api/internal/pricing"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/internal/timeofday"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/mentorium/mentorium-api/pkg/httpclient"
	"github.com/mentorium/mentorium-api/pkg/lock"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/tracing"
	"github.com/mentorium/mentorium-api/pkg/trigger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingService carves a student's chosen range out of a mentor's
// availability and records the paid session
type BookingService struct {
	stores     repository.Stores
	engine     *partition.Engine
	calculator *pricing.Calculator
	payments   payment.Gateway
	locker     lock.Locker
	kicker     Kicker
	config     *config.Config
	httpClient httpclient.Client
	location   *time.Location
	now        func() time.Time
}

// NewBookingService creates a new booking service. kicker may be nil.
func NewBookingService(
	stores repository.Stores,
	pricingService *PricingService,
	payments payment.Gateway,
	locker lock.Locker,
	kicker Kicker,
	cfg *config.Config,
	httpClient httpclient.Client,
) (*BookingService, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load booking timezone: %w", err)
	}
	if locker == nil {
		locker = lock.NoopLocker{}
	}

	return &BookingService{
		stores:     stores,
		engine:     partition.NewEngine(stores.Slots, cfg.Booking.MinFragmentMinutes),
		calculator: pricingService.Calculator(),
		payments:   payments,
		locker:     locker,
		kicker:     kicker,
		config:     cfg,
		httpClient: httpClient,
		location:   loc,
		now:        time.Now,
	}, nil
}

// bookingContext is everything validated before money moves
type bookingContext struct {
	slot      *models.AvailabilitySlot
	requested timeofday.Range
	mentor    *models.Contact
	student   *models.Contact
	subject   *models.Subject
	price     int
}

// Book runs one booking attempt end to end
func (s *BookingService) Book(ctx context.Context, studentID string, req *models.BookingRequest) (*models.MentorshipSession, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "booking.Book",
		attribute.String("slot.id", req.SlotID),
		attribute.String("student.id", studentID),
	)

	attempt := newBookingAttempt(req.SlotID, studentID)
	session, err := s.book(ctx, attempt, studentID, req)
	tracing.EndSpan(span, err)

	outcome := bookingOutcome(err)
	metrics.BookingAttempts.WithLabelValues(outcome).Inc()
	metrics.BookingDuration.WithLabelValues(outcome).Observe(metrics.MeasureDuration(start))

	if err != nil {
		logger.Warn("Booking failed",
			zap.String("slot_id", req.SlotID),
			zap.String("student_id", studentID),
			zap.String("outcome", outcome),
			zap.Error(err))
		return nil, err
	}

	logger.Info("Booking confirmed",
		zap.String("session_id", session.ID),
		zap.String("slot_id", req.SlotID),
		zap.String("mentor_id", session.MentorID),
		zap.String("student_id", studentID),
		zap.Int("duration_minutes", session.DurationMinutes),
		zap.Int("price", session.Price))
	return session, nil
}

func (s *BookingService) book(ctx context.Context, attempt *bookingAttempt, studentID string, req *models.BookingRequest) (*models.MentorshipSession, error) {
	attempt.to(StateValidating)

	requested, err := s.validateRequest(studentID, req)
	if err != nil {
		return nil, attempt.fail(err)
	}

	release, err := s.acquireSlotLock(ctx, req.SlotID)
	if err != nil {
		return nil, attempt.fail(err)
	}
	defer release()

	bc, err := s.validateAvailability(ctx, studentID, req, requested)
	if err != nil {
		return nil, attempt.fail(err)
	}

	receipt, err := s.charge(ctx, studentID, req, bc)
	if err != nil {
		return nil, attempt.fail(err)
	}

	attempt.to(StatePartitioning)
	var session *models.MentorshipSession
	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.engine.SplitAndReserve(ctx, bc.slot, partition.Request{
			Start:           requested.StartString(),
			End:             requested.EndString(),
			DurationMinutes: requested.Duration(),
			ReservedBy:      studentID,
		}); err != nil {
			return err
		}

		attempt.to(StateSessionCreating)
		var err error
		if session, err = s.newSession(studentID, req, bc, receipt); err != nil {
			return err
		}
		if err := s.stores.Sessions.Create(ctx, session); err != nil {
			logger.Error("Failed to create session", zap.String("slot_id", bc.slot.ID), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrSessionCreateFailed, err)
		}
		return s.enqueueSideEffects(ctx, session, bc)
	})
	if err != nil {
		reportRollbackFailure(bc.slot, err)
		s.refund(ctx, receipt)
		return nil, attempt.fail(err)
	}

	attempt.to(StateNotifying)
	s.notifyAfterCommit(session)
	attempt.to(StateDone)

	return session, nil
}

// validateRequest checks everything that can be checked without the store
func (s *BookingService) validateRequest(studentID string, req *models.BookingRequest) (timeofday.Range, error) {
	if studentID == "" {
		return timeofday.Range{}, invalidBooking("student is required")
	}
	if req.SlotID == "" || req.SubjectID == "" {
		return timeofday.Range{}, invalidBooking("slot and subject are required")
	}
	requested, err := timeofday.ParseRange(req.StartTime, req.EndTime)
	if err != nil {
		return timeofday.Range{}, invalidBooking(err.Error())
	}
	if requested.Duration() < s.config.Booking.MinDurationMinutes {
		return timeofday.Range{}, invalidBooking(fmt.Sprintf("sessions must be at least %d minutes", s.config.Booking.MinDurationMinutes))
	}
	if req.ParticipantCount < 1 {
		return timeofday.Range{}, invalidBooking("at least one participant is required")
	}
	if len(req.ParticipantContacts) > req.ParticipantCount {
		return timeofday.Range{}, invalidBooking("more participant contacts than participants")
	}
	return requested, nil
}

func (s *BookingService) acquireSlotLock(ctx context.Context, slotID string) (func(), error) {
	ttl := time.Duration(s.config.Booking.LockTTLSeconds) * time.Second
	release, err := s.locker.Acquire(ctx, "slot:"+slotID, ttl)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, &SlotNoLongerAvailableError{SlotID: slotID, Reason: "another booking is in progress"}
	}
	// the conditional delete still guards the slot
	logger.Warn("Slot lock unavailable, continuing without it", zap.String("slot_id", slotID), zap.Error(err))
	return func() {}, nil
}

// validateAvailability re-reads the slot and checks it still fits the request
func (s *BookingService) validateAvailability(ctx context.Context, studentID string, req *models.BookingRequest, requested timeofday.Range) (*bookingContext, error) {
	slot, err := s.stores.Slots.GetByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &SlotNoLongerAvailableError{SlotID: req.SlotID, Reason: "slot no longer exists"}
		}
		return nil, fmt.Errorf("failed to fetch slot: %w", err)
	}
	if !slot.IsAvailable() {
		return nil, &SlotNoLongerAvailableError{SlotID: slot.ID, Reason: "slot is " + string(slot.Status)}
	}

	slotRange, err := slot.Range()
	if err != nil {
		return nil, fmt.Errorf("stored slot %s is malformed: %w", slot.ID, err)
	}
	if !timeofday.Contains(slotRange, requested) {
		return nil, &partition.SlotUnavailableError{
			SlotID: slot.ID,
			Reason: fmt.Sprintf("%s is outside %s", requested, slotRange),
		}
	}
	if req.ParticipantCount > slot.MaxParticipants {
		return nil, invalidBooking(fmt.Sprintf("this slot allows at most %d participants", slot.MaxParticipants))
	}

	teaches, err := s.stores.Directory.MentorTeaches(ctx, slot.MentorID, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check mentor subjects: %w", err)
	}
	if !teaches {
		return nil, invalidBooking("the mentor does not teach this subject")
	}

	bc := &bookingContext{slot: slot, requested: requested}
	if bc.mentor, err = s.stores.Directory.GetMentor(ctx, slot.MentorID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InternalError(fmt.Sprintf("slot %s references unknown mentor %s", slot.ID, slot.MentorID))
		}
		return nil, fmt.Errorf("failed to load mentor: %w", err)
	}
	if bc.student, err = s.stores.Directory.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, invalidBooking("unknown student")
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if bc.subject, err = s.stores.Directory.GetSubject(ctx, req.SubjectID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, invalidBooking("unknown subject")
		}
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}

	if slot.Modality == models.ModalityInPerson {
		if err := s.checkLocationBuffer(ctx, slot, requested); err != nil {
			return nil, err
		}
	}

	bc.price = s.calculator.PriceFor(requested.Duration(), slot.Modality)
	return bc, nil
}

// checkLocationBuffer rejects back-to-back in-person sessions at different
// locations without enough travel time between them
func (s *BookingService) checkLocationBuffer(ctx context.Context, slot *models.AvailabilitySlot, requested timeofday.Range) error {
	prior, err := s.stores.Slots.PriorInPersonSlot(ctx, slot.MentorID, slot.Date, requested.StartString())
	if err != nil {
		return fmt.Errorf("failed to look up prior session: %w", err)
	}
	if prior == nil || prior.Location == slot.Location {
		return nil
	}
	priorEnd, err := timeofday.ToMinutes(prior.EndTime)
	if err != nil {
		return fmt.Errorf("stored slot %s is malformed: %w", prior.ID, err)
	}

	gap := requested.Start - priorEnd
	if gap < s.config.Booking.LocationBufferMinutes {
		return &LocationTransitionError{
			From:            prior.Location,
			To:              slot.Location,
			GapMinutes:      gap,
			RequiredMinutes: s.config.Booking.LocationBufferMinutes,
		}
	}
	return nil
}

func (s *BookingService) charge(ctx context.Context, studentID string, req *models.BookingRequest, bc *bookingContext) (*payment.Receipt, error) {
	receipt, err := s.payments.Charge(ctx, payment.Charge{
		Amount:        bc.price,
		Currency:      s.calculator.Currency(),
		Description:   fmt.Sprintf("%s with %s on %s at %s", bc.subject.Name, bc.mentor.Name, bc.slot.Date, bc.requested.StartString()),
		PaymentMethod: req.PaymentMethod,
		// one charge per student, slot and range however often the request is retried
		IdempotencyKey: fmt.Sprintf("booking:%s:%s:%s", studentID, bc.slot.ID, bc.requested),
		Metadata: map[string]string{
			"slot_id":    bc.slot.ID,
			"mentor_id":  bc.slot.MentorID,
			"student_id": studentID,
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
		}
		return nil, fmt.Errorf("failed to charge: %w", err)
	}
	return receipt, nil
}

// refund releases the charge of a booking that did not commit
func (s *BookingService) refund(ctx context.Context, receipt *payment.Receipt) {
	if receipt == nil || receipt.Reference == "" {
		return
	}
	if err := s.payments.Refund(context.WithoutCancel(ctx), receipt.Reference); err != nil {
		logger.Critical("Failed to refund charge of rolled back booking",
			zap.String("payment_reference", receipt.Reference),
			zap.Error(err))
	}
}

func (s *BookingService) newSession(studentID string, req *models.BookingRequest, bc *bookingContext, receipt *payment.Receipt) (*models.MentorshipSession, error) {
	startsAt, err := time.ParseInLocation(models.DateLayout+" 15:04", bc.slot.Date+" "+bc.requested.StartString(), s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid slot date %q", ErrSessionCreateFailed, bc.slot.Date)
	}

	contacts := append([]string{}, req.ParticipantContacts...)
	return &models.MentorshipSession{
		ID:                  uuid.NewString(),
		MentorID:            bc.slot.MentorID,
		StudentID:           studentID,
		SubjectID:           bc.subject.ID,
		StartsAt:            startsAt,
		DurationMinutes:     bc.requested.Duration(),
		Price:               bc.price,
		Currency:            s.calculator.Currency(),
		Paid:                receipt.Paid,
		PaymentReference:    receipt.Reference,
		ParticipantCount:    req.ParticipantCount,
		ParticipantContacts: contacts,
		Description:         req.Description,
		Modality:            bc.slot.Modality,
		Location:            bc.slot.Location,
		Status:              models.SessionConfirmed,
		CreatedAt:           s.now().UTC(),
	}, nil
}

// enqueueSideEffects records the notification, emails and event in the
// booking transaction so they are delivered if and only if it commits
func (s *BookingService) enqueueSideEffects(ctx context.Context, session *models.MentorshipSession, bc *bookingContext) error {
	emails := models.BookingEmailPayload{
		SessionID:           session.ID,
		MentorContact:       *bc.mentor,
		StudentContact:      *bc.student,
		SubjectName:         bc.subject.Name,
		Date:                bc.slot.Date,
		Time:                bc.requested.String(),
		DurationMinutes:     session.DurationMinutes,
		ParticipantCount:    session.ParticipantCount,
		ParticipantContacts: session.ParticipantContacts,
		Description:         session.Description,
		Modality:            session.Modality,
		Location:            session.Location,
		Price:               session.Price,
		Currency:            session.Currency,
	}
	jobs := []struct {
		kind    models.JobKind
		payload any
	}{
		{models.JobNotifyMentor, models.MentorNotificationPayload{
			MentorID:    session.MentorID,
			StudentID:   session.StudentID,
			StudentName: bc.student.Name,
			SessionID:   session.ID,
			StartsAt:    session.StartsAt,
			SubjectName: bc.subject.Name,
		}},
		// one job per recipient so a failing address never resends the other
		{models.JobStudentEmail, emails},
		{models.JobMentorEmail, emails},
		{models.JobBookingEvent, bookingEvent(models.EventSessionConfirmed, session, session.CreatedAt)},
	}

	for _, job := range jobs {
		if _, err := s.stores.Outbox.Enqueue(ctx, job.kind, job.payload); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", job.kind, err)
		}
	}
	return nil
}

// reportRollbackFailure raises an alert when the booking transaction could
// not be rolled back. A failure that rolled back cleanly left nothing behind.
func reportRollbackFailure(slot *models.AvailabilitySlot, err error) {
	var rollback *repository.RollbackError
	if !errors.As(err, &rollback) {
		return
	}
	fields := []zap.Field{
		zap.String("slot_id", slot.ID),
		zap.String("mentor_id", slot.MentorID),
		zap.String("date", slot.Date),
		zap.String("range", slot.StartTime+"-"+slot.EndTime),
		zap.NamedError("rollback_error", rollback.RollbackErr),
		zap.Error(rollback.Cause),
	}
	var partial *partition.PartialPartitionError
	if errors.As(err, &partial) {
		fields = append(fields, zap.Strings("completed", partial.Completed))
	}
	logger.Critical("Booking transaction failed to roll back", fields...)
}

func (s *BookingService) notifyAfterCommit(session *models.MentorshipSession) {
	if s.kicker != nil {
		s.kicker.Kick()
	}
	trigger.CallAsync(s.config.EventTriggers.SessionCreatedTriggerURL, session.ID, s.httpClient)
}

func bookingEvent(eventType models.BookingEventType, session *models.MentorshipSession, at time.Time) models.BookingEvent {
	return models.BookingEvent{
		Type:            eventType,
		SessionID:       session.ID,
		MentorID:        session.MentorID,
		StudentID:       session.StudentID,
		SubjectID:       session.SubjectID,
		StartsAt:        session.StartsAt,
		DurationMinutes: session.DurationMinutes,
		Price:           session.Price,
		Currency:        session.Currency,
		Modality:        session.Modality,
		Location:        session.Location,
		OccurredAt:      at,
	}
}

// bookingOutcome is the metric label for a finished attempt
func bookingOutcome(err error) string {
	var (
		slotGone    *SlotNoLongerAvailableError
		unavailable *partition.SlotUnavailableError
		location    *LocationTransitionError
		partial     *partition.PartialPartitionError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &slotGone), errors.As(err, &unavailable):
		return "unavailable"
	case errors.As(err, &location):
		return "location_conflict"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrInvalidBooking):
		return "invalid"
	case errors.As(err, &partial):
		return "partial_partition"
	default:
		return "failed"
	}
}

// UserMessage maps a booking error to the text shown to the student
func UserMessage(err error) string {
	var (
		slotGone    *SlotNoLongerAvailableError
		unavailable *partition.SlotUnavailableError
		location    *LocationTransitionError
	)
	switch {
	case errors.As(err, &location):
		return location.Error()
	case errors.As(err, &slotGone), errors.As(err, &unavailable):
		return MsgSlotUnavailable
	default:
		return MsgBookingFailed
	}
}

var _ BookingServiceInterface = (*BookingService)(nil)
