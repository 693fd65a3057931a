package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mentorium/mentorium-api/pkg/circuitbreaker"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

// StripeGateway confirms a PaymentIntent synchronously for every charge
type StripeGateway struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeGateway{
		api:     api,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("stripe")),
	}
}

func (g *StripeGateway) Charge(ctx context.Context, c Charge) (*Receipt, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(c.Amount) * 100),
		Currency:      stripe.String(strings.ToLower(c.Currency)),
		Description:   stripe.String(c.Description),
		Confirm:       stripe.Bool(true),
		PaymentMethod: stripe.String(c.PaymentMethod),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if c.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(c.IdempotencyKey)
	}
	for k, v := range c.Metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	intent, err := circuitbreaker.Execute(g.breaker, func() (*stripe.PaymentIntent, error) {
		return g.api.PaymentIntents.New(params)
	})
	g.observe("charge", start, err)

	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, stripeErr.Msg)
		}
		logger.Error("Stripe charge failed", zap.Error(err))
		return nil, fmt.Errorf("stripe charge: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		logger.Warn("Stripe payment intent not settled",
			zap.String("payment_intent", intent.ID),
			zap.String("status", string(intent.Status)))
		// release any hold left on the card
		if _, cancelErr := g.api.PaymentIntents.Cancel(intent.ID, &stripe.PaymentIntentCancelParams{}); cancelErr != nil {
			logger.Warn("Failed to cancel payment intent", zap.String("payment_intent", intent.ID), zap.Error(cancelErr))
		}
		return nil, fmt.Errorf("%w: payment intent status %s", ErrDeclined, intent.Status)
	}

	return &Receipt{Reference: intent.ID, Paid: true}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, reference string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(reference)}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("refund-" + reference)

	start := time.Now()
	_, err := circuitbreaker.Execute(g.breaker, func() (*stripe.Refund, error) {
		return g.api.Refunds.New(params)
	})
	g.observe("refund", start, err)
	if err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	return nil
}

func (g *StripeGateway) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.ProviderRequestDuration.WithLabelValues("stripe", operation, status).Observe(duration)
	logger.LogAPICall("stripe", operation, status, duration)
}
