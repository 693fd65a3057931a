package repository

import (
	"fmt"

	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
)

var (
	ErrSlotNotFound     = apperrors.NotFoundError("slot")
	ErrSlotNotAvailable = apperrors.ConflictError("slot is no longer available")

	ErrSessionNotFound       = apperrors.NotFoundError("session")
	ErrSessionStatusConflict = apperrors.ConflictError("session status changed")

	ErrMentorNotFound  = apperrors.NotFoundError("mentor")
	ErrStudentNotFound = apperrors.NotFoundError("student")
	ErrSubjectNotFound = apperrors.NotFoundError("subject")
)

// RollbackError is returned when a transaction failed and rolling it back
// failed too, so some of its writes may have persisted
type RollbackError struct {
	Cause       error
	RollbackErr error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Cause, e.RollbackErr)
}

func (e *RollbackError) Unwrap() []error {
	return []error{e.Cause, apperrors.ErrInternal}
}
