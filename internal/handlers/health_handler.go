package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	pingDB            func(ctx context.Context) error
	listenerConnected func() bool
}

// NewHealthHandler takes the store ping and the availability listener status.
// Either may be nil when the component is not in use.
func NewHealthHandler(pingDB func(ctx context.Context) error, listenerConnected func() bool) *HealthHandler {
	return &HealthHandler{
		pingDB:            pingDB,
		listenerConnected: listenerConnected,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	if h.pingDB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pingDB(ctx); err != nil {
			attachError(c, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}

	// a dropped listener only delays cache invalidation; report it without failing
	listener := "disabled"
	if h.listenerConnected != nil {
		listener = "connected"
		if !h.listenerConnected() {
			listener = "reconnecting"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"listener": listener,
	})
}
