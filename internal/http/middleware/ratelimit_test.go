package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedLimiter(rate float64, burst int) (*RateLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate, burst)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl, now := fixedLimiter(1, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("s1"); !ok {
			t.Fatalf("expected request %d within burst", i)
		}
	}
	ok, wait := rl.Allow("s1")
	if ok {
		t.Fatalf("expected third request to be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("unexpected wait %v", wait)
	}

	*now = now.Add(time.Second)
	if ok, _ := rl.Allow("s1"); !ok {
		t.Fatalf("expected a token after refill")
	}
	if ok, _ := rl.Allow("s2"); !ok {
		t.Fatalf("expected independent bucket per key")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	rl, now := fixedLimiter(1, 1)
	rl.Allow("old")
	*now = now.Add(time.Hour)
	rl.Allow("new")

	if n := rl.Evict(now.Add(-time.Minute)); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
}

func TestRateLimitMiddlewareKeysBySession(t *testing.T) {
	rl, _ := fixedLimiter(0.1, 1)
	h := RateLimit(rl)(okHandler(nil))

	send := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/order/o-1/payment/submit", nil)
		req = req.WithContext(WithSessionID(req.Context(), session))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("a"); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := send("a")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "10" {
		t.Fatalf("expected Retry-After 10, got %q", rec.Header().Get("Retry-After"))
	}
	if rec := send("b"); rec.Code != http.StatusOK {
		t.Fatalf("expected other session to pass, got %d", rec.Code)
	}
}
