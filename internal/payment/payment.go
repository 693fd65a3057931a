// Package payment charges students for booked sessions. The stub gateway
// is the default; Stripe is used when PAYMENT_PROVIDER=stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"go.uber.org/zap"
)

// ErrDeclined is returned when the provider refuses a charge
var ErrDeclined = errors.New("payment declined")

// Charge describes a single payment for a session
type Charge struct {
	Amount         int // whole currency units
	Currency       string
	Description    string
	PaymentMethod  string
	IdempotencyKey string
	Metadata       map[string]string
}

// Receipt is the provider's answer to a successful charge
type Receipt struct {
	Reference string
	Paid      bool
}

// Gateway is implemented by every payment provider
type Gateway interface {
	Charge(ctx context.Context, c Charge) (*Receipt, error)
	Refund(ctx context.Context, reference string) error
}

// New returns the gateway selected by cfg.Provider
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "stub":
		logger.Info("Using stub payment gateway")
		return NewStubGateway(), nil
	case "stripe":
		return NewStripeGateway(cfg.StripeSecretKey), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// StubGateway accepts every charge. Amount 0 is allowed.
type StubGateway struct{}

func NewStubGateway() *StubGateway {
	return &StubGateway{}
}

func (g *StubGateway) Charge(_ context.Context, c Charge) (*Receipt, error) {
	if c.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	ref := "stub_" + uuid.NewString()
	logger.Debug("Stub payment accepted",
		zap.String("reference", ref),
		zap.Int("amount", c.Amount),
		zap.String("currency", c.Currency))
	return &Receipt{Reference: ref, Paid: true}, nil
}

func (g *StubGateway) Refund(_ context.Context, reference string) error {
	logger.Debug("Stub payment refunded", zap.String("reference", reference))
	return nil
}

var (
	_ Gateway = (*StubGateway)(nil)
	_ Gateway = (*StripeGateway)(nil)
)
