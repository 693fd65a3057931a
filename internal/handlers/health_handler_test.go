package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_Healthcheck(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	tests := []struct {
		name      string
		ping      func(context.Context) error
		connected func() bool
		status    int
		body      string
	}{
		{"offline mode", nil, func() bool { return true }, http.StatusOK, `{"status":"ok","listener":"connected"}`},
		{"listener disabled", healthy, nil, http.StatusOK, `{"status":"ok","listener":"disabled"}`},
		{"listener reconnecting", healthy, func() bool { return false }, http.StatusOK, `{"status":"ok","listener":"reconnecting"}`},
		{
			"database down",
			func(context.Context) error { return errors.New("connection refused") },
			func() bool { return true },
			http.StatusServiceUnavailable,
			`{"status":"unavailable","reason":"database unreachable"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.ping, tt.connected)
			router := gin.New()
			router.GET("/api/healthcheck", handler.Healthcheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/api/healthcheck", http.NoBody))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "no-cache, no-store, max-age=0, must-revalidate", w.Header().Get("Cache-Control"))
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
