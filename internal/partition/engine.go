package partition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/timeofday"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the slice of the availability store the engine writes through.
// DeleteAvailable must be a conditional delete: it removes the row only
// while it is still available and returns the removed row.
type Store interface {
	DeleteAvailable(ctx context.Context, slotID string) (*models.AvailabilitySlot, error)
	Insert(ctx context.Context, slot *models.AvailabilitySlot) error
}

// Request is the sub-range to reserve
type Request struct {
	Start           string
	End             string
	DurationMinutes int
	ReservedBy      string
}

// Result holds the rows written by a successful partition. Leading and
// Trailing are nil when their fragment was discarded.
type Result struct {
	Reserved *models.AvailabilitySlot
	Leading  *models.AvailabilitySlot
	Trailing *models.AvailabilitySlot
	Plan     Plan
}

// Engine replaces an available slot with its reserved sub-range and the
// remainder fragments that are long enough to keep. Call it inside a
// transaction: it performs a claim and up to three inserts.
type Engine struct {
	store       Store
	minFragment int
	newID       func() string
	now         func() time.Time
}

func NewEngine(store Store, minFragment int) *Engine {
	if minFragment <= 0 {
		minFragment = MinFragmentMinutes
	}
	return &Engine{
		store:       store,
		minFragment: minFragment,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// SplitAndReserve carves req out of original
func (e *Engine) SplitAndReserve(ctx context.Context, original *models.AvailabilitySlot, req Request) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "partition.SplitAndReserve",
		attribute.String("slot.id", original.ID),
		attribute.String("slot.date", original.Date),
	)
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if req.ReservedBy == "" {
		err = apperrors.InvalidInputError("reservedBy", "is required")
		return nil, err
	}
	requested, err := timeofday.ParseRange(req.Start, req.End)
	if err != nil {
		err = apperrors.InvalidInputError("range", err.Error())
		return nil, err
	}
	if req.DurationMinutes != 0 && req.DurationMinutes != requested.Duration() {
		err = apperrors.InvalidInputError("durationMinutes", "does not match the requested range")
		return nil, err
	}

	if _, err = e.plan(original, requested); err != nil {
		return nil, err
	}

	claimed, err := e.store.DeleteAvailable(ctx, original.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
			err = &SlotUnavailableError{SlotID: original.ID, Reason: "already taken"}
		}
		return nil, err
	}

	// the claimed row is authoritative; the caller's copy may be stale
	plan, err := e.plan(claimed, requested)
	if err != nil {
		err = e.partial(claimed, []string{"claim"}, err)
		return nil, err
	}

	result := &Result{Plan: plan}
	completed := []string{"claim"}
	now := e.now().UTC()

	if plan.KeepLeading {
		result.Leading = e.fragment(claimed, plan.Leading, now)
		if err = e.store.Insert(ctx, result.Leading); err != nil {
			err = e.partial(claimed, completed, err)
			return nil, err
		}
		completed = append(completed, "leading:"+result.Leading.ID)
	}

	reserved := e.fragment(claimed, plan.Requested, now)
	reserved.Status = models.SlotReserved
	reservedBy := req.ReservedBy
	reserved.ReservedBy = &reservedBy
	if err = e.store.Insert(ctx, reserved); err != nil {
		err = e.partial(claimed, completed, err)
		return nil, err
	}
	result.Reserved = reserved
	completed = append(completed, "reserved:"+reserved.ID)

	if plan.KeepTrailing {
		result.Trailing = e.fragment(claimed, plan.Trailing, now)
		if err = e.store.Insert(ctx, result.Trailing); err != nil {
			err = e.partial(claimed, completed, err)
			return nil, err
		}
	}

	recordFragments(claimed, plan)
	return result, nil
}

func (e *Engine) plan(slot *models.AvailabilitySlot, requested timeofday.Range) (Plan, error) {
	if !slot.IsAvailable() {
		return Plan{}, &SlotUnavailableError{SlotID: slot.ID, Reason: "slot is " + string(slot.Status)}
	}
	original, err := slot.Range()
	if err != nil {
		return Plan{}, &SlotUnavailableError{SlotID: slot.ID, Reason: err.Error()}
	}
	plan, err := NewPlan(original, requested, e.minFragment)
	if err != nil {
		return Plan{}, &SlotUnavailableError{SlotID: slot.ID, Reason: err.Error()}
	}
	return plan, nil
}

// fragment clones the slot's mentor, date, modality, location and capacity onto r
func (e *Engine) fragment(src *models.AvailabilitySlot, r timeofday.Range, now time.Time) *models.AvailabilitySlot {
	return &models.AvailabilitySlot{
		ID:              e.newID(),
		MentorID:        src.MentorID,
		Date:            src.Date,
		StartTime:       r.StartString(),
		EndTime:         r.EndString(),
		DurationMinutes: r.Duration(),
		Modality:        src.Modality,
		Location:        src.Location,
		MaxParticipants: src.MaxParticipants,
		Status:          models.SlotAvailable,
		CreatedAt:       now,
	}
}

func (e *Engine) partial(original *models.AvailabilitySlot, completed []string, cause error) error {
	metrics.PartitionFailures.Inc()
	logger.Error("Slot partition failed after claim",
		zap.String("slot_id", original.ID),
		zap.String("mentor_id", original.MentorID),
		zap.String("date", original.Date),
		zap.String("range", original.StartTime+"-"+original.EndTime),
		zap.Strings("completed", completed),
		zap.Error(cause))
	return &PartialPartitionError{
		SlotID:    original.ID,
		Original:  original.Clone(),
		Completed: append([]string(nil), completed...),
		Cause:     cause,
	}
}

func recordFragments(slot *models.AvailabilitySlot, plan Plan) {
	record := func(position string, r timeofday.Range, kept bool) {
		if r.Duration() == 0 {
			return
		}
		result := "kept"
		if !kept {
			result = "discarded"
		}
		metrics.PartitionFragments.WithLabelValues(position, result).Inc()
	}
	record("leading", plan.Leading, plan.KeepLeading)
	record("trailing", plan.Trailing, plan.KeepTrailing)

	if plan.DiscardedMinutes > 0 {
		metrics.PartitionDiscardedMinutes.Add(float64(plan.DiscardedMinutes))
		logger.Info("Discarded short availability fragments",
			zap.String("slot_id", slot.ID),
			zap.String("mentor_id", slot.MentorID),
			zap.String("date", slot.Date),
			zap.Int("discarded_minutes", plan.DiscardedMinutes))
	}
}
