package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/services"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func calendarRouter(service *MockCalendarService) *gin.Engine {
	handler := NewCalendarHandler(service)
	router := gin.New()
	router.GET("/api/v1/calendar", handler.GetCalendar)
	router.GET("/api/v1/mentors/:id/slots", handler.GetMentorSlots)
	return router
}

func TestCalendarHandler_GetCalendar(t *testing.T) {
	service := new(MockCalendarService)
	service.On("Calendar", mock.Anything, "2026-03-02", "2026-03-03").Return(&models.Calendar{
		From: "2026-03-02",
		To:   "2026-03-03",
		Days: []models.CalendarDay{
			{Date: "2026-03-02", PairCount: 1, Options: []models.CalendarOption{{MentorID: "m1", SubjectID: "s1"}}},
			{Date: "2026-03-03", Options: []models.CalendarOption{}},
		},
	}, nil)

	w := httptest.NewRecorder()
	calendarRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/calendar?from=2026-03-02&to=2026-03-03", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pairCount":1`)
	assert.Contains(t, w.Body.String(), `"date":"2026-03-03"`)
}

func TestCalendarHandler_GetCalendar_BadRange(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
	}{
		{"missing to", "from=2026-03-02", nil},
		{"reversed", "from=2026-03-05&to=2026-03-01", fmt.Errorf("%w: from is after to", services.ErrInvalidDateRange)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockCalendarService)
			if tt.err != nil {
				service.On("Calendar", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			w := httptest.NewRecorder()
			calendarRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/calendar?"+tt.query, http.NoBody))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCalendarHandler_GetMentorSlots(t *testing.T) {
	service := new(MockCalendarService)
	service.On("MentorSlots", mock.Anything, "m1", "2026-03-02", "2026-03-02").Return([]*models.AvailabilitySlot{
		{ID: "slot-1", MentorID: "m1", Date: "2026-03-02", StartTime: "09:00", EndTime: "12:00", Status: models.SlotAvailable},
	}, nil)

	w := httptest.NewRecorder()
	calendarRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/mentors/m1/slots?from=2026-03-02&to=2026-03-02", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"slot-1"`)
}

func TestCalendarHandler_GetMentorSlots_UnknownMentor(t *testing.T) {
	service := new(MockCalendarService)
	service.On("MentorSlots", mock.Anything, "nobody", "2026-03-02", "2026-03-02").Return(nil, apperrors.NotFoundError("mentor"))

	w := httptest.NewRecorder()
	calendarRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/mentors/nobody/slots?from=2026-03-02&to=2026-03-02", http.NoBody))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
