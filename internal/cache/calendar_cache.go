package cache

import (
	"sync"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	calendarCacheName   = "calendar"
	calendarKeyPrefix   = "calendar:"
	calendarCleanupTick = time.Minute
)

// CalendarCache keeps projected calendars keyed by date range. It is
// flushed whenever availability changes, so the TTL only bounds staleness
// when change notifications are lost.
//
// Every Flush starts a new generation. A calendar projected from reads taken
// in an older generation is never stored.
type CalendarCache struct {
	cache    *gocache.Cache
	disabled bool

	mu         sync.Mutex
	generation uint64
}

// NewCalendarCache creates a calendar cache. ttlSeconds <= 0 disables it.
func NewCalendarCache(ttlSeconds int, disabled bool) *CalendarCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		disabled = true
	}
	return &CalendarCache{
		cache:    gocache.New(ttl, calendarCleanupTick),
		disabled: disabled,
	}
}

func calendarKey(from, to string) string {
	return calendarKeyPrefix + from + ":" + to
}

// Get returns the cached calendar for the range
func (c *CalendarCache) Get(from, to string) (*models.Calendar, bool) {
	if c.disabled {
		return nil, false
	}
	data, found := c.cache.Get(calendarKey(from, to))
	if !found {
		metrics.CacheMisses.WithLabelValues(calendarCacheName).Inc()
		return nil, false
	}
	cal, ok := data.(*models.Calendar)
	if !ok {
		logger.Error("Invalid calendar cache data type", zap.String("from", from), zap.String("to", to))
		c.cache.Delete(calendarKey(from, to))
		metrics.CacheMisses.WithLabelValues(calendarCacheName).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(calendarCacheName).Inc()
	return cal, true
}

// Generation identifies the current flush epoch. Read it before loading the
// data a calendar is projected from.
func (c *CalendarCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores a calendar with the default TTL if no flush happened since
// generation was read. It reports whether the calendar was stored.
func (c *CalendarCache) Set(cal *models.Calendar, generation uint64) bool {
	if c.disabled || cal == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		logger.Debug("Discarding calendar projected before a flush",
			zap.String("from", cal.From),
			zap.String("to", cal.To))
		return false
	}
	c.cache.SetDefault(calendarKey(cal.From, cal.To), cal)
	return true
}

// Flush drops every cached calendar and starts a new generation
func (c *CalendarCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.disabled {
		return
	}
	n := c.cache.ItemCount()
	c.cache.Flush()
	metrics.CacheInvalidations.WithLabelValues(calendarCacheName).Inc()
	logger.Debug("Calendar cache flushed", zap.Int("entries", n))
}

// Len is the number of cached ranges
func (c *CalendarCache) Len() int {
	return c.cache.ItemCount()
}
