package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/services"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondBindError reports a request that failed binding or validation
func respondBindError(c *gin.Context, err error) {
	if details := ParseValidationErrors(err); len(details) > 0 {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details, err)
		return
	}
	respondError(c, http.StatusBadRequest, "Invalid request body", err)
}

// respondBookingError maps a booking failure to a status and the message
// shown to the student. Failures are logged where they happen.
func respondBookingError(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrInternal):
		respondError(c, http.StatusInternalServerError, services.MsgBookingFailed, err)
	case errors.Is(err, services.ErrPaymentDeclined):
		respondError(c, http.StatusPaymentRequired, "Payment was declined, please use another payment method.", err)
	case apperrors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, services.UserMessage(err), err)
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid booking", err.Error(), err)
	default:
		respondError(c, http.StatusInternalServerError, services.MsgBookingFailed, err)
	}
}

// respondServiceError maps the shared error kinds to HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found", err)
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
	case apperrors.Is(err, apperrors.ErrAccessDenied):
		respondError(c, http.StatusForbidden, "Forbidden", err)
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request", err.Error(), err)
	case apperrors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, "Conflict", err)
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
