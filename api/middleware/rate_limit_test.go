package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	count := f.counts[scope]
	return count <= limit, count, nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := newFakeLimiter()
	mw := RateLimit(NewRateLimitPolicy("barcode-issue", 2, time.Minute), limiter, nil, http.MethodPost)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty-barcode", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if i == 2 && resp.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60 got %q", resp.Header().Get("Retry-After"))
		}
	}

	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if _, ok := limiter.counts["barcode-issue:user:user-1"]; !ok {
		t.Fatalf("expected per-user scope, got %v", limiter.counts)
	}
}

func TestRateLimitIgnoresOtherMethods(t *testing.T) {
	limiter := newFakeLimiter()
	mw := RateLimit(NewRateLimitPolicy("barcode-issue", 1, time.Minute), limiter, nil, http.MethodPost)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/loyalty-barcode", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected GET to pass, got %d", resp.Code)
		}
	}
	if len(limiter.counts) != 0 {
		t.Fatalf("GET should not be counted: %v", limiter.counts)
	}
}

func TestRateLimitSurfacesLimiterFailure(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	mw := RateLimit(NewRateLimitPolicy("barcode-issue", 1, time.Minute), limiter, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	mw := RateLimit(NewRateLimitPolicy("off", 0, time.Minute), newFakeLimiter(), nil)
	resp := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}
