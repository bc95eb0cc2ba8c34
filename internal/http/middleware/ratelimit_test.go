package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/plans/draft", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, second.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Real-Ip", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
