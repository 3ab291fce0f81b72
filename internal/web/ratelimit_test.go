package web

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientLimiter_BurstThenRefill(t *testing.T) {
	cl := newClientLimiter(60) // one token per second, burst 60
	now := time.Now()

	for i := 0; i < 60; i++ {
		if !cl.allow("10.0.0.1", now) {
			t.Fatalf("request %d rejected within burst", i)
		}
	}
	if cl.allow("10.0.0.1", now) {
		t.Fatal("request over burst allowed")
	}
	if !cl.allow("10.0.0.2", now) {
		t.Fatal("other client should have its own bucket")
	}
	if !cl.allow("10.0.0.1", now.Add(time.Second)) {
		t.Fatal("token should refill after one second")
	}
}

func TestClientLimiter_Sweep(t *testing.T) {
	cl := newClientLimiter(10)
	now := time.Now()

	cl.allow("old", now)
	cl.allow("fresh", now.Add(visitorTTL))

	cl.sweep(now.Add(visitorTTL + time.Second))

	if got := cl.size(); got != 1 {
		t.Fatalf("size after sweep = %d, want 1", got)
	}
}

func TestNewClientLimiter_NonPositive(t *testing.T) {
	cl := newClientLimiter(0)
	if cl.burst != 1 {
		t.Errorf("burst = %d, want 1", cl.burst)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		if got := clientKey(req); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
