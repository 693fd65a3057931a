// Package events publishes booking lifecycle events to the configured broker.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"go.uber.org/zap"
)

// Publisher delivers booking events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
	Close() error
}

// New builds the publisher for cfg.Broker
func New(cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Broker) {
	case "", "none":
		return NopPublisher{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue), nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

// NopPublisher drops events after logging them
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, event models.BookingEvent) error {
	logger.Debug("Booking event dropped, no broker configured",
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", event.SessionID))
	return nil
}

func (NopPublisher) Close() error { return nil }

func observe(provider string, start time.Time, err error, event models.BookingEvent) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.ProviderRequestDuration.WithLabelValues(provider, "publish", status).Observe(duration)
	logger.LogAPICall(provider, "publish", status, duration,
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", event.SessionID))
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*RabbitPublisher)(nil)
)
