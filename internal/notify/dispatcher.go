// Package notify delivers the side effects a booking records in its
// transaction: the mentor's in-app notification, the confirmation emails
// and the published booking event. Delivery is at least once.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/retry"
	"go.uber.org/zap"
)

// Handler delivers one job. Wrap an error in retry.Permanent to
// dead-letter the job without further attempts.
type Handler func(ctx context.Context, job *models.OutboxJob) error

// Archiver keeps a copy of dead jobs, e.g. in object storage
type Archiver interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// Config controls polling and retries
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Lease        time.Duration
	Backoff      retry.Config
}

// ConfigFrom converts the outbox settings
func ConfigFrom(cfg config.OutboxConfig) Config {
	return Config{
		PollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		Lease:        time.Duration(cfg.LeaseSeconds) * time.Second,
		Backoff:      retry.OutboxConfig(),
	}
}

// Dispatcher polls the outbox and runs the handler registered for each job kind
type Dispatcher struct {
	outbox   repository.OutboxStore
	archiver Archiver
	cfg      Config

	mu       sync.RWMutex
	handlers map[models.JobKind]Handler

	wake chan struct{}
	now  func() time.Time
}

// NewDispatcher creates a dispatcher. archiver may be nil.
func NewDispatcher(outbox repository.OutboxStore, cfg Config, archiver Archiver) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	return &Dispatcher{
		outbox:   outbox,
		archiver: archiver,
		cfg:      cfg,
		handlers: make(map[models.JobKind]Handler),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Register sets the handler for kind
func (d *Dispatcher) Register(kind models.JobKind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Kick wakes Run early. It never blocks.
func (d *Dispatcher) Kick() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run processes due jobs until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	logger.Info("Outbox dispatcher started",
		zap.Duration("poll_interval", d.cfg.PollInterval),
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Int("max_attempts", d.cfg.MaxAttempts))

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		d.drain(ctx)
		select {
		case <-ctx.Done():
			logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// drain keeps claiming while full batches come back
func (d *Dispatcher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := d.ProcessDue(ctx)
		if err != nil {
			logger.Error("Outbox poll failed", zap.Error(err))
			return
		}
		if n < d.cfg.BatchSize {
			return
		}
	}
}

// ProcessDue claims one batch of due jobs and delivers them. It returns the
// number of jobs claimed.
func (d *Dispatcher) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := d.outbox.ClaimDue(ctx, d.cfg.BatchSize, d.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("failed to claim outbox jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	metrics.OutboxBatchSize.Observe(float64(len(jobs)))

	for _, job := range jobs {
		d.process(ctx, job)
	}
	return len(jobs), nil
}

func (d *Dispatcher) process(ctx context.Context, job *models.OutboxJob) {
	d.mu.RLock()
	handler, ok := d.handlers[job.Kind]
	d.mu.RUnlock()

	var err error
	if !ok {
		err = &retry.Permanent{Err: fmt.Errorf("no handler for job kind %q", job.Kind)}
	} else {
		err = handler(ctx, job)
	}

	fields := []zap.Field{
		zap.Int64("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("attempt", job.Attempts),
	}

	if err == nil {
		if markErr := d.outbox.MarkDone(ctx, job.ID); markErr != nil {
			// the lease expires and the job is delivered again
			logger.Error("Failed to mark outbox job done", append(fields, zap.Error(markErr))...)
			return
		}
		metrics.OutboxJobs.WithLabelValues(string(job.Kind), "done").Inc()
		logger.Debug("Outbox job delivered", fields...)
		return
	}

	var permanent *retry.Permanent
	if errors.As(err, &permanent) || job.Attempts >= d.cfg.MaxAttempts {
		d.deadLetter(ctx, job, err, fields)
		return
	}

	next := d.now().Add(retry.Delay(job.Attempts-1, d.cfg.Backoff))
	if markErr := d.outbox.MarkRetry(ctx, job.ID, next, err.Error()); markErr != nil {
		logger.Error("Failed to reschedule outbox job", append(fields, zap.Error(markErr))...)
		return
	}
	metrics.OutboxJobs.WithLabelValues(string(job.Kind), "retry").Inc()
	logger.Warn("Outbox job failed, will retry",
		append(fields, zap.Time("next_attempt_at", next), zap.Error(err))...)
}

func (d *Dispatcher) deadLetter(ctx context.Context, job *models.OutboxJob, cause error, fields []zap.Field) {
	if err := d.outbox.MarkDead(ctx, job.ID, cause.Error()); err != nil {
		logger.Error("Failed to dead-letter outbox job", append(fields, zap.Error(err))...)
		return
	}
	metrics.OutboxJobs.WithLabelValues(string(job.Kind), "dead").Inc()
	logger.Error("Outbox job dead-lettered", append(fields, zap.Error(cause))...)

	if d.archiver == nil {
		return
	}
	dead := *job
	dead.Status = models.JobDead
	dead.LastError = cause.Error()
	key := fmt.Sprintf("outbox/%s/%d.json", job.Kind, job.ID)
	if err := d.archiver.PutJSON(ctx, key, dead); err != nil {
		logger.Warn("Failed to archive dead outbox job", append(fields, zap.String("key", key), zap.Error(err))...)
	}
}
