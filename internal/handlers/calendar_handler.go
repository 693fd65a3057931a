package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/services"
)

type CalendarHandler struct {
	service services.CalendarServiceInterface
}

func NewCalendarHandler(service services.CalendarServiceInterface) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// GetCalendar handles GET /api/v1/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		respondError(c, http.StatusBadRequest, "from and to are required", nil)
		return
	}

	calendar, err := h.service.Calendar(c.Request.Context(), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, calendar)
}

// GetMentorSlots handles GET /api/v1/mentors/:id/slots
func (h *CalendarHandler) GetMentorSlots(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		respondError(c, http.StatusBadRequest, "from and to are required", nil)
		return
	}

	slots, err := h.service.MentorSlots(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
