package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/models"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pricingRouter(service *MockPricingService) *gin.Engine {
	router := gin.New()
	router.GET("/api/v1/price", NewPricingHandler(service).GetPrice)
	return router
}

func TestPricingHandler_GetPrice(t *testing.T) {
	service := new(MockPricingService)
	service.On("Quote", 90, models.ModalityInPerson).
		Return(&models.PriceQuote{DurationMinutes: 90, Modality: models.ModalityInPerson, Price: 945, Currency: "MXN"}, nil)

	w := httptest.NewRecorder()
	pricingRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/price?duration=90&modality=in_person", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"durationMinutes":90,"modality":"in_person","price":945,"currency":"MXN"}`, w.Body.String())
}

func TestPricingHandler_GetPrice_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing duration", "modality=virtual"},
		{"unknown modality", "duration=60&modality=hybrid"},
		{"duration not a number", "duration=abc&modality=virtual"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockPricingService)

			w := httptest.NewRecorder()
			pricingRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/price?"+tt.query, http.NoBody))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			service.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
		})
	}
}

func TestPricingHandler_GetPrice_BelowMinimum(t *testing.T) {
	service := new(MockPricingService)
	service.On("Quote", 30, models.ModalityVirtual).
		Return(nil, apperrors.InvalidInputError("duration", "sessions must be at least 60 minutes"))

	w := httptest.NewRecorder()
	pricingRouter(service).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/price?duration=30&modality=virtual", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least 60 minutes")
}
