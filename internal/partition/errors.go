package partition

import (
	"fmt"
	"strings"

	"github.com/mentorium/mentorium-api/internal/models"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
)

// SlotUnavailableError means the requested range is not inside an available slot
type SlotUnavailableError struct {
	SlotID string
	Reason string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot %s unavailable: %s", e.SlotID, e.Reason)
}

func (e *SlotUnavailableError) Unwrap() error {
	return apperrors.ErrConflict
}

// PartialPartitionError means a write failed after the original slot was
// claimed. Completed lists the steps that had succeeded, in order, so the
// row set can be reconciled by hand if the surrounding transaction could
// not roll back.
type PartialPartitionError struct {
	SlotID    string
	Original  *models.AvailabilitySlot
	Completed []string
	Cause     error
}

func (e *PartialPartitionError) Error() string {
	return fmt.Sprintf("partial partition of slot %s after [%s]: %v",
		e.SlotID, strings.Join(e.Completed, ", "), e.Cause)
}

func (e *PartialPartitionError) Unwrap() []error {
	return []error{e.Cause, apperrors.ErrInternal}
}
