package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restoledger/backend/internal/infrastructure/auth"
	"github.com/restoledger/backend/internal/infrastructure/config"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "caller-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "caller-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("oversize replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", MaxRequestIDLength+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func newJWT(secret string) *auth.JWTService {
	return auth.NewJWTService(config.AdminConfig{JWTSecret: secret, Issuer: "resto-ledger"})
}

func authRouter(svc *auth.JWTService) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequireRole(svc, auth.RoleAdmin, nil))
	r.GET("/", func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"subject":     claims.Subject,
			"ctx_subject": logger.GetSubject(c.Request.Context()),
		})
	})
	return r
}

func TestRequireRole(t *testing.T) {
	svc := newJWT("test-secret-at-least-32-bytes-long!!")
	admin, _, err := svc.Issue("ops@example.com", []string{auth.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	viewer, _, err := svc.Issue("viewer@example.com", []string{"viewer"}, time.Hour)
	require.NoError(t, err)
	foreign, _, err := newJWT("another-secret-at-least-32-bytes!!").Issue("x", []string{auth.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"admin", "Bearer " + admin, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
		{"wrong role", "Bearer " + viewer, http.StatusForbidden, dto.ErrCodeForbidden},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
	}
	r := authRouter(svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				info := decodeError(t, w)
				assert.Equal(t, tt.code, info.Code)
				assert.NotEmpty(t, info.RequestID)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "ops@example.com", body["subject"])
			assert.Equal(t, "ops@example.com", body["ctx_subject"])
		})
	}
}

func TestRequireRole_ExpiredToken(t *testing.T) {
	svc := newJWT("test-secret-at-least-32-bytes-long!!")
	token, _, err := svc.Issue("ops", []string{auth.RoleAdmin}, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenExpired, decodeError(t, w).Code)
}

func TestRequireRole_NoSecretConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	authRouter(newJWT("")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"date":"2024-03-05","x":1}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.clients["stale"] = &clientLimiter{lastSeen: now.Add(-time.Hour)}
	rl.clients["fresh"] = &clientLimiter{lastSeen: now}

	rl.prune(now)

	assert.NotContains(t, rl.clients, "stale")
	assert.Contains(t, rl.clients, "fresh")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RateLimit(NewRateLimiter(0.001, 1)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, w).Code)
}

func TestTracing(t *testing.T) {
	assert.Empty(t, Tracing("test", false))

	r := gin.New()
	r.Use(RequestID())
	r.Use(Tracing("test", true)...)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
