package cache_test

import (
	"testing"

	"github.com/mentorium/mentorium-api/internal/cache"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Initialize(logger.Config{Level: "debug", Environment: "development"})
}

func TestCalendarCache_SetGetFlush(t *testing.T) {
	c := cache.NewCalendarCache(60, false)
	cal := &models.Calendar{From: "2026-03-01", To: "2026-03-07"}

	_, found := c.Get("2026-03-01", "2026-03-07")
	assert.False(t, found)

	assert.True(t, c.Set(cal, c.Generation()))
	got, found := c.Get("2026-03-01", "2026-03-07")
	require.True(t, found)
	assert.Same(t, cal, got)

	_, found = c.Get("2026-03-01", "2026-03-08")
	assert.False(t, found, "ranges are cached independently")

	c.Flush()
	assert.Equal(t, 0, c.Len())
	_, found = c.Get("2026-03-01", "2026-03-07")
	assert.False(t, found)
}

func TestCalendarCache_Disabled(t *testing.T) {
	for _, c := range []*cache.CalendarCache{
		cache.NewCalendarCache(60, true),
		cache.NewCalendarCache(0, false),
	} {
		assert.False(t, c.Set(&models.Calendar{From: "2026-03-01", To: "2026-03-07"}, c.Generation()))
		_, found := c.Get("2026-03-01", "2026-03-07")
		assert.False(t, found)
	}
}

func TestCalendarCache_SetAfterFlushIsDiscarded(t *testing.T) {
	c := cache.NewCalendarCache(60, false)
	generation := c.Generation()

	c.Flush()
	stored := c.Set(&models.Calendar{From: "2026-03-01", To: "2026-03-07"}, generation)

	assert.False(t, stored)
	_, found := c.Get("2026-03-01", "2026-03-07")
	assert.False(t, found)

	assert.True(t, c.Set(&models.Calendar{From: "2026-03-01", To: "2026-03-07"}, c.Generation()))
	_, found = c.Get("2026-03-01", "2026-03-07")
	assert.True(t, found)
}
