// Package mailer sends transactional email through an HTTP mail API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mentorium/mentorium-api/pkg/circuitbreaker"
	"github.com/mentorium/mentorium-api/pkg/httpclient"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Message is a plain-text transactional email
type Message struct {
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	Tags    []string `json:"tags,omitempty"`
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds the mail API settings
type Config struct {
	APIURL string
	APIKey string
	From   string
}

// StatusError is returned for non-2xx responses from the mail API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail API returned %d: %s", e.StatusCode, e.Body)
}

// Client posts messages as JSON to the configured API, guarded by a circuit
// breaker and retried on transient failures.
type Client struct {
	httpClient httpclient.Client
	apiURL     string
	apiKey     string
	from       string
	breaker    *gobreaker.CircuitBreaker
	retryCfg   retry.Config
}

// NewClient creates a mail API client
func NewClient(cfg Config, httpClient httpclient.Client) *Client {
	retryCfg := retry.MailerConfig()
	retryCfg.RetryableErrors = isRetryable

	return &Client{
		httpClient: httpClient,
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("mail-api")),
		retryCfg:   retryCfg,
	}
}

type sendRequest struct {
	From string `json:"from"`
	Message
}

// Send delivers msg. 4xx responses are not retried.
func (c *Client) Send(ctx context.Context, msg Message) error {
	start := time.Now()

	_, err := circuitbreaker.Execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, retry.Do(ctx, c.retryCfg, "mailer.send", func() error {
			return c.post(ctx, msg)
		})
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.ProviderRequestDuration.WithLabelValues("mail", "send", status).Observe(duration)
	logger.LogAPICall("mail", "send", status, duration,
		zap.String("to", maskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.Error(err),
	)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{From: c.from, Message: msg})
	if err != nil {
		return &retry.Permanent{Err: fmt.Errorf("failed to encode message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return &retry.Permanent{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
}

func isRetryable(err error) bool {
	if se, ok := err.(*StatusError); ok {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return retry.IsRetryable(err)
}

// LogSender writes emails to the log instead of sending them. Used when no
// mail API is configured (local development, offline mode).
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	logger.Info("Email (not sent, mail API disabled)",
		zap.String("to", maskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.Strings("tags", msg.Tags),
	)
	return nil
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
