package services

import (
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"go.uber.org/zap"
)

// BookingState is a step of a single booking attempt
type BookingState string

const (
	StateIdle            BookingState = "idle"
	StateValidating      BookingState = "validating"
	StatePartitioning    BookingState = "partitioning"
	StateSessionCreating BookingState = "session_creating"
	StateNotifying       BookingState = "notifying"
	StateDone            BookingState = "done"
	StateFailed          BookingState = "failed"
)

var bookingTransitions = map[BookingState][]BookingState{
	StateIdle:            {StateValidating},
	StateValidating:      {StatePartitioning, StateFailed},
	StatePartitioning:    {StateSessionCreating, StateFailed},
	StateSessionCreating: {StateNotifying, StateFailed},
	// notification problems never fail a booking
	StateNotifying: {StateDone},
}

// CanTransition reports whether a booking attempt may move from one state to another
func CanTransition(from, to BookingState) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// bookingAttempt tracks one Book call through its states
type bookingAttempt struct {
	slotID    string
	studentID string
	state     BookingState
	reason    string
}

func newBookingAttempt(slotID, studentID string) *bookingAttempt {
	return &bookingAttempt{slotID: slotID, studentID: studentID, state: StateIdle}
}

func (a *bookingAttempt) to(next BookingState) {
	if !CanTransition(a.state, next) {
		logger.Error("Illegal booking state transition",
			zap.String("slot_id", a.slotID),
			zap.String("from", string(a.state)),
			zap.String("to", string(next)))
		return
	}
	logger.Debug("Booking state changed",
		zap.String("slot_id", a.slotID),
		zap.String("student_id", a.studentID),
		zap.String("from", string(a.state)),
		zap.String("to", string(next)))
	metrics.BookingStateTransitions.WithLabelValues(string(next)).Inc()
	a.state = next
}

// fail moves the attempt to Failed and returns err unchanged
func (a *bookingAttempt) fail(err error) error {
	a.reason = err.Error()
	a.to(StateFailed)
	return err
}
