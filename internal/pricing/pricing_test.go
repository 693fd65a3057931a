package pricing_test

import (
	"testing"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/pricing"
	"github.com/stretchr/testify/assert"
)

func TestPriceFor(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultRates(), "MXN")

	tests := []struct {
		name     string
		duration int
		modality models.Modality
		want     int
	}{
		{"one hour virtual", 60, models.ModalityVirtual, 430},
		{"one hour in person", 60, models.ModalityInPerson, 630},
		{"ninety minutes in person", 90, models.ModalityInPerson, 945},
		{"ninety minutes virtual", 90, models.ModalityVirtual, 645},
		{"two hours virtual", 120, models.ModalityVirtual, 860},
		{"fifteen minutes virtual rounds", 15, models.ModalityVirtual, 108},
		{"zero duration", 0, models.ModalityVirtual, 0},
		{"negative duration", -30, models.ModalityInPerson, 0},
		{"unknown modality", 60, models.Modality("hybrid"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.PriceFor(tt.duration, tt.modality))
		})
	}
}

func TestPriceFor_LinearWhereExact(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultRates(), "MXN")
	// 430 and 630 are both divisible by 2, so half-hour multiples price exactly
	durations := []int{30, 60, 90, 120}

	for _, m := range []models.Modality{models.ModalityVirtual, models.ModalityInPerson} {
		for _, d1 := range durations {
			for _, d2 := range durations {
				sum := calc.PriceFor(d1, m) + calc.PriceFor(d2, m)
				assert.Equal(t, calc.PriceFor(d1+d2, m), sum, "modality %s, %d+%d", m, d1, d2)
			}
		}
	}
}

func TestPriceFor_DoublingAcrossDivisorsOfAnHour(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultRates(), "MXN")
	rates := pricing.DefaultRates()

	for _, m := range []models.Modality{models.ModalityVirtual, models.ModalityInPerson} {
		for _, d := range []int{1, 2, 3, 4, 5, 6, 10, 12, 15, 20, 30, 60} {
			single, double := calc.PriceFor(d, m), calc.PriceFor(2*d, m)
			if rates[m]*d%60 == 0 {
				assert.Equal(t, 2*single, double, "modality %s, %d minutes", m, d)
				continue
			}
			// each price rounds on its own, so a half unit can round up once
			assert.InDelta(t, 2*single, double, 1, "modality %s, %d minutes", m, d)
		}
	}

	assert.Equal(t, 108, calc.PriceFor(15, models.ModalityVirtual))
	assert.Equal(t, 215, calc.PriceFor(30, models.ModalityVirtual))
}

func TestNewCalculator_CopiesRates(t *testing.T) {
	rates := pricing.Rates{models.ModalityVirtual: 100}
	calc := pricing.NewCalculator(rates, "MXN")
	rates[models.ModalityVirtual] = 999

	assert.Equal(t, 100, calc.PriceFor(60, models.ModalityVirtual))
}

func TestQuote(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultRates(), "MXN")

	q := calc.Quote(90, models.ModalityInPerson)

	assert.Equal(t, models.PriceQuote{
		DurationMinutes: 90,
		Modality:        models.ModalityInPerson,
		Price:           945,
		Currency:        "MXN",
	}, q)
	assert.Equal(t, "MXN", calc.Currency())
}
