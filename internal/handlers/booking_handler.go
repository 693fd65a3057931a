package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/middleware"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/services"
)

type BookingHandler struct {
	service services.BookingServiceInterface
}

func NewBookingHandler(service services.BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// Book handles POST /api/v1/bookings for the authenticated student
func (h *BookingHandler) Book(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.service.Book(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}
