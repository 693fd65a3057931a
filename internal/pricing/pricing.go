package pricing

import (
	"math"

	"github.com/mentorium/mentorium-api/internal/models"
)

// Rates maps a modality to its hourly rate in whole currency units
type Rates map[models.Modality]int

// DefaultRates are the published hourly rates
func DefaultRates() Rates {
	return Rates{
		models.ModalityVirtual:  430,
		models.ModalityInPerson: 630,
	}
}

// Calculator prices sessions from a rate table. It is safe for concurrent use
// because the table is never mutated after construction.
type Calculator struct {
	rates    Rates
	currency string
}

// NewCalculator copies rates so later changes to the caller's map are not observed
func NewCalculator(rates Rates, currency string) *Calculator {
	copied := make(Rates, len(rates))
	for m, r := range rates {
		copied[m] = r
	}
	return &Calculator{rates: copied, currency: currency}
}

// PriceFor returns rate/60 * duration rounded half away from zero.
// Unknown modalities and non-positive durations price at 0.
func (c *Calculator) PriceFor(durationMinutes int, modality models.Modality) int {
	rate, ok := c.rates[modality]
	if !ok || durationMinutes <= 0 {
		return 0
	}
	// multiply before dividing so exact results stay exact
	return int(math.Round(float64(rate*durationMinutes) / 60))
}

// Rate returns the hourly rate for a modality
func (c *Calculator) Rate(modality models.Modality) (int, bool) {
	r, ok := c.rates[modality]
	return r, ok
}

func (c *Calculator) Currency() string {
	return c.currency
}

// Quote wraps PriceFor with the calculator's currency
func (c *Calculator) Quote(durationMinutes int, modality models.Modality) models.PriceQuote {
	return models.PriceQuote{
		DurationMinutes: durationMinutes,
		Modality:        modality,
		Price:           c.PriceFor(durationMinutes, modality),
		Currency:        c.currency,
	}
}
