// Package realtime turns availability changes into in-process callbacks.
// In Postgres mode a trigger on availability_slots issues NOTIFY and the
// Listener holds a dedicated connection with LISTEN on that channel.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/retry"
	"go.uber.org/zap"
)

// Change is the payload of one availability notification
type Change struct {
	Op       string `json:"op"`
	MentorID string `json:"mentor_id"`
	Date     string `json:"date"`
}

// Callback runs for every change. Callbacks must not block.
type Callback func(Change)

// Listener subscribes to a Postgres notification channel
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	backoff retry.Config

	mu        sync.RWMutex
	callbacks []Callback
	connected atomic.Bool
}

func NewListener(pool *pgxpool.Pool, channel string) *Listener {
	return &Listener{
		pool:    pool,
		channel: channel,
		backoff: retry.ListenerConfig(),
	}
}

// OnChange registers fn
func (l *Listener) OnChange(fn Callback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

// IsConnected reports whether LISTEN is currently active
func (l *Listener) IsConnected() bool {
	return l.connected.Load()
}

// Run listens until ctx is cancelled, reconnecting with backoff. After each
// reconnect callbacks get a synthetic "resync" change because notifications
// sent while disconnected are lost.
func (l *Listener) Run(ctx context.Context) {
	attempt := 0
	first := true
	for ctx.Err() == nil {
		listened, err := l.listen(ctx, !first)
		first = false
		l.connected.Store(false)
		if ctx.Err() != nil {
			break
		}
		if listened {
			attempt = 0
		}

		delay := retry.Delay(attempt, l.backoff)
		attempt++
		logger.Warn("Availability listener disconnected, reconnecting",
			zap.String("channel", l.channel),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	logger.Info("Availability listener stopped", zap.String("channel", l.channel))
}

// listen reports whether LISTEN succeeded before the connection failed
func (l *Listener) listen(ctx context.Context, resync bool) (bool, error) {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	// a LISTENing connection must not go back to the pool
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.connected.Store(true)
	logger.Info("Listening for availability changes", zap.String("channel", l.channel))

	if resync {
		l.dispatch(Change{Op: "resync"}, "resync")
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		var change Change
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			logger.Warn("Malformed availability notification", zap.String("payload", n.Payload), zap.Error(err))
			change = Change{Op: "unknown"}
		}
		l.dispatch(change, "postgres")
	}
}

func (l *Listener) dispatch(change Change, source string) {
	metrics.RealtimeNotifications.WithLabelValues(source).Inc()
	l.mu.RLock()
	callbacks := append([]Callback(nil), l.callbacks...)
	l.mu.RUnlock()
	for _, fn := range callbacks {
		fn(change)
	}
}

// Source reports availability changes
type Source interface {
	OnChange(fn Callback)
	IsConnected() bool
}

// LocalFeed relays commit hooks of an in-process store. Used in offline mode.
type LocalFeed struct {
	mu        sync.RWMutex
	callbacks []Callback
}

// NewLocalFeed subscribes to register, e.g. memory.Store.OnChange
func NewLocalFeed(register func(func())) *LocalFeed {
	f := &LocalFeed{}
	register(func() {
		metrics.RealtimeNotifications.WithLabelValues("memory").Inc()
		f.mu.RLock()
		callbacks := append([]Callback(nil), f.callbacks...)
		f.mu.RUnlock()
		for _, fn := range callbacks {
			fn(Change{Op: "commit"})
		}
	})
	return f
}

func (f *LocalFeed) OnChange(fn Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, fn)
}

func (f *LocalFeed) IsConnected() bool { return true }

var (
	_ Source = (*Listener)(nil)
	_ Source = (*LocalFeed)(nil)
)
