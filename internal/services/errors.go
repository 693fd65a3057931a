package services

import (
	"errors"
	"fmt"

	"github.com/mentorium/mentorium-api/internal/models"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
)

// User-facing booking messages
const (
	MsgSlotUnavailable = "This time is no longer available, please choose another time."
	MsgBookingFailed   = "Booking failed, please try again."
)

var (
	// ErrInvalidBooking wraps every request validation failure
	ErrInvalidBooking = fmt.Errorf("invalid booking: %w", apperrors.ErrInvalidInput)

	// ErrPaymentDeclined is returned when the charge is refused
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrSessionCreateFailed means the session row could not be written;
	// the surrounding transaction has been rolled back
	ErrSessionCreateFailed = fmt.Errorf("session creation failed: %w", apperrors.ErrInternal)

	// ErrInvalidTransition is returned for a status change the session cannot make
	ErrInvalidTransition = apperrors.ConflictError("invalid session status transition")

	// ErrInvalidDateRange is returned for malformed or oversized calendar ranges
	ErrInvalidDateRange = fmt.Errorf("invalid date range: %w", apperrors.ErrInvalidInput)
)

func invalidBooking(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidBooking, reason)
}

// SlotNoLongerAvailableError means the slot was taken or removed between
// the student picking it and the booking being processed
type SlotNoLongerAvailableError struct {
	SlotID string
	Reason string
}

func (e *SlotNoLongerAvailableError) Error() string {
	return fmt.Sprintf("slot %s no longer available: %s", e.SlotID, e.Reason)
}

func (e *SlotNoLongerAvailableError) Unwrap() error {
	return apperrors.ErrConflict
}

// LocationTransitionError means the mentor cannot get from the previous
// in-person session to the new one in time
type LocationTransitionError struct {
	From            models.Location
	To              models.Location
	GapMinutes      int
	RequiredMinutes int
}

func (e *LocationTransitionError) Error() string {
	return fmt.Sprintf("Not enough time to travel from %s to %s: %d minutes between sessions, at least %d required.",
		e.From.Label(), e.To.Label(), e.GapMinutes, e.RequiredMinutes)
}

func (e *LocationTransitionError) Unwrap() error {
	return apperrors.ErrConflict
}
