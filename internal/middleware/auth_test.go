package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSecret = "test-secret"
	testIssuer = "mentorium-api"
	testCookie = "mentorium_session"
)

func newTokenManager(ttl time.Duration) *jwt.TokenManager {
	return jwt.NewTokenManager(testSecret, testIssuer, ttl)
}

func identityRouter(handlerCalled *bool, seen **models.Identity) *gin.Engine {
	router := gin.New()
	router.Use(IdentityMiddleware(newTokenManager(time.Hour), testCookie))
	router.GET("/test", func(c *gin.Context) {
		*handlerCalled = true
		identity, err := GetIdentity(c)
		if err == nil && seen != nil {
			*seen = identity
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestIdentityMiddleware_BearerToken(t *testing.T) {
	token, err := newTokenManager(time.Hour).GenerateToken("student-1", "sofia@example.com", "Sofia Ruiz", "student")
	require.NoError(t, err)

	handlerCalled := false
	var identity *models.Identity
	router := identityRouter(&handlerCalled, &identity)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "student-1", identity.UserID)
	assert.Equal(t, models.RoleStudent, identity.Role)
	assert.Equal(t, "Sofia Ruiz", identity.Name)
}

func TestIdentityMiddleware_Cookie(t *testing.T) {
	token, err := newTokenManager(time.Hour).GenerateToken("mentor-1", "ana@example.com", "Ana Torres", "mentor")
	require.NoError(t, err)

	handlerCalled := false
	var identity *models.Identity
	router := identityRouter(&handlerCalled, &identity)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", http.NoBody)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	router.ServeHTTP(w, req)

	assert.True(t, handlerCalled)
	require.NotNil(t, identity)
	assert.Equal(t, models.RoleMentor, identity.Role)
}

func TestIdentityMiddleware_Rejects(t *testing.T) {
	expired, err := newTokenManager(-time.Minute).GenerateToken("student-1", "", "", "student")
	require.NoError(t, err)
	foreign, err := jwt.NewTokenManager("other-secret", testIssuer, time.Hour).GenerateToken("student-1", "", "", "student")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing token", "", "Unauthorized"},
		{"not a bearer header", "Basic dXNlcjpwYXNz", "Unauthorized"},
		{"garbage token", "Bearer not-a-jwt", "Unauthorized"},
		{"wrong secret", "Bearer " + foreign, "Unauthorized"},
		{"expired token", "Bearer " + expired, "Session expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			router := identityRouter(&handlerCalled, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.False(t, handlerCalled)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, w.Body.String())
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm := newTokenManager(time.Hour)
	studentToken, err := tm.GenerateToken("student-1", "", "", "student")
	require.NoError(t, err)
	mentorToken, err := tm.GenerateToken("mentor-1", "", "", "mentor")
	require.NoError(t, err)

	router := gin.New()
	router.POST("/bookings", IdentityMiddleware(tm, testCookie), RequireRole(models.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"student allowed", studentToken, http.StatusCreated},
		{"mentor forbidden", mentorToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/bookings", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireRole_WithoutIdentity(t *testing.T) {
	router := gin.New()
	router.GET("/test", RequireRole(models.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternalAPIAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		allowed    bool
	}{
		{"valid token", "internal-secret-token", "internal-secret-token", true},
		{"wrong token", "internal-secret-token", "wrong-token", false},
		{"missing token", "internal-secret-token", "", false},
		{"nothing configured", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			handlerCalled := false
			router.Use(InternalAPIAuthMiddleware(tt.configured))
			router.GET("/test", func(c *gin.Context) {
				handlerCalled = true
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			if tt.sent != "" {
				req.Header.Set("x-internal-api-token", tt.sent)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.allowed, handlerCalled)
			if !tt.allowed {
				assert.Equal(t, http.StatusUnauthorized, w.Code)
			}
		})
	}
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 0.001, 1)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(IdentityContextKey, &models.Identity{UserID: uid, Role: models.RoleStudent})
		}
		c.Next()
	}, rl.Middleware())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", http.NoBody)
		req.Header.Set("X-Test-User", user)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("student-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("student-1"))
	assert.Equal(t, http.StatusOK, send("student-2"), "another user from the same IP has its own bucket")
}
