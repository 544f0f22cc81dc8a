package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsBurstThenBlocks(t *testing.T) {
	l := NewTokenBucketLimiter(30)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	l := NewTokenBucketLimiter(30)
	current := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	for i := 0; i < 60; i++ {
		l.Allow("1.2.3.4")
	}
	assert.False(t, l.Allow("1.2.3.4"))

	// Two minutes at 30/min restores 60 tokens.
	current = current.Add(2 * time.Minute)
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestTokenBucketIsolatesClients(t *testing.T) {
	l := NewTokenBucketLimiter(1)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	l.Allow("1.1.1.1")
	l.Allow("1.1.1.1")
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
}

func TestThrottleMutationsSkipsReads(t *testing.T) {
	l := NewTokenBucketLimiter(1)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	handler := ThrottleMutations(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the budget with writes.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/members", nil))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/members", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads still pass.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
