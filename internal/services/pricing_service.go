package services

import (
	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/pricing"
	apperrors "github.com/mentorium/mentorium-api/pkg/errors"
	"github.com/mentorium/mentorium-api/pkg/metrics"
)

// PricingService quotes session prices from the configured rate table
type PricingService struct {
	calculator  *pricing.Calculator
	minDuration int
}

// NewPricingService builds the rate table from config
func NewPricingService(cfg *config.Config) *PricingService {
	rates := pricing.Rates{
		models.ModalityVirtual:  cfg.Booking.RateVirtual,
		models.ModalityInPerson: cfg.Booking.RateInPerson,
	}
	return &PricingService{
		calculator:  pricing.NewCalculator(rates, cfg.Booking.Currency),
		minDuration: cfg.Booking.MinDurationMinutes,
	}
}

// Calculator exposes the underlying rate table
func (s *PricingService) Calculator() *pricing.Calculator {
	return s.calculator
}

// Quote prices durationMinutes of the given modality
func (s *PricingService) Quote(durationMinutes int, modality models.Modality) (*models.PriceQuote, error) {
	if !modality.Valid() {
		return nil, apperrors.InvalidInputError("modality", "must be virtual or in_person")
	}
	if durationMinutes < s.minDuration {
		return nil, apperrors.InvalidInputError("duration", "is below the minimum session length")
	}
	quote := s.calculator.Quote(durationMinutes, modality)
	metrics.PriceQuotes.WithLabelValues(string(modality)).Inc()
	return &quote, nil
}

var _ PricingServiceInterface = (*PricingService)(nil)
