package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRateLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, max, window)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, now := newTestRateLimiter(t, 3, time.Minute)
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow(ip)
		assert.True(t, allowed, "request %d should be allowed", i+1)
		*now = now.Add(10 * time.Second)
	}

	allowed, wait := rl.Allow(ip)
	assert.False(t, allowed, "4th request should be blocked")
	assert.Equal(t, 30*time.Second, wait)

	allowed, _ = rl.Allow("192.168.1.2")
	assert.True(t, allowed, "different IP should be allowed")

	*now = now.Add(31 * time.Second)
	allowed, _ = rl.Allow(ip)
	assert.True(t, allowed, "oldest request left the window")
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 1, time.Minute)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/events/1/waiting-list", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, post().Code)

	rr := post()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited.
	get := httptest.NewRequest("GET", "/api/events/1/availability", nil)
	get.RemoteAddr = "10.0.0.1:5555"
	getRR := httptest.NewRecorder()
	handler.ServeHTTP(getRR, get)
	assert.Equal(t, http.StatusOK, getRR.Code)
}

func TestRateLimit_KeysOnHost(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 1, time.Minute)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func(remoteAddr, forwardedFor string) int {
		req := httptest.NewRequest("POST", "/api/events/1/waiting-list", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("new connection from the same host", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post("203.0.113.7:40001", ""))
		assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:40002", ""))
		assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:40003", ""))
	})

	t.Run("spoofed forwarded header", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, post("198.51.100.4:5000", "1.1.1.1"))
		assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.4:5000", "2.2.2.2"))
		assert.Equal(t, http.StatusTooManyRequests, post("198.51.100.4:5000", "3.3.3.3"))
	})
}
