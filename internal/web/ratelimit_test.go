package web

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	rl := newIPRateLimiter(60, 2)
	defer rl.stop()

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}
}

func TestIPRateLimiter_Evict(t *testing.T) {
	rl := newIPRateLimiter(60, 1)
	defer rl.stop()

	rl.allow("10.0.0.1")
	rl.evict(time.Now())
	if len(rl.visitors) != 1 {
		t.Fatalf("fresh visitor evicted")
	}

	rl.evict(time.Now().Add(visitorTTL + time.Second))
	if len(rl.visitors) != 0 {
		t.Errorf("stale visitor kept, have %d", len(rl.visitors))
	}
}

func TestIPRateLimiter_RetryAfter(t *testing.T) {
	tests := []struct {
		perMinute int
		want      int
	}{
		{perMinute: 1, want: 60},
		{perMinute: 30, want: 2},
		{perMinute: 600, want: 1},
		{perMinute: 0, want: 60},
	}
	for _, tt := range tests {
		rl := newIPRateLimiter(tt.perMinute, 1)
		if rl.retryAfter != tt.want {
			t.Errorf("perMinute=%d: retryAfter = %d, want %d", tt.perMinute, rl.retryAfter, tt.want)
		}
		rl.stop()
	}
}

func TestIPRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newIPRateLimiter(10, 1)
	rl.stop()
	rl.stop()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("clientIP = %q", got)
	}

	req.RemoteAddr = "203.0.113.9"
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("clientIP without port = %q", got)
	}
}
