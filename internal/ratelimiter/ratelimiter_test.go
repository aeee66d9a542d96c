package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestNew verifies limiter creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond float64
		burst             int
		wantNil           bool
		wantBurst         int
	}{
		{name: "standard rate", requestsPerSecond: 100, burst: 200, wantBurst: 200},
		{name: "burst defaults to rate", requestsPerSecond: 50, burst: 0, wantBurst: 50},
		{name: "fractional rate gets burst of one", requestsPerSecond: 0.5, burst: 0, wantBurst: 1},
		{name: "unlimited (zero rate)", requestsPerSecond: 0, burst: 10, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			if tt.wantNil {
				if limiter != nil {
					t.Fatal("expected nil limiter for unlimited rate")
				}
				return
			}
			if limiter == nil {
				t.Fatal("New() returned nil")
			}
			if got := limiter.limiter.Burst(); got != tt.wantBurst {
				t.Errorf("burst = %d, want %d", got, tt.wantBurst)
			}
		})
	}
}

// TestWaitEnforcesBurst verifies that the burst is served immediately and
// the next request has to wait for a token.
func TestWaitEnforcesBurst(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		err := limiter.Wait(ctx)
		cancel()
		if err != nil {
			t.Fatalf("request %d should be allowed (within burst): %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("request should be rate-limited after burst exhausted")
	}
}

// TestLimit verifies the reported sustained rate.
func TestLimit(t *testing.T) {
	if got := New(25, 5).Limit(); got != 25 {
		t.Fatalf("Limit() = %v, want 25", got)
	}
}

// TestNilLimiter verifies that a nil limiter never blocks.
func TestNilLimiter(t *testing.T) {
	var limiter *RateLimiter

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait() = %v", err)
	}
	if limiter.Limit() != 0 {
		t.Fatalf("nil limiter Limit() = %v, want 0", limiter.Limit())
	}
}

// TestWaitCancelled verifies that Wait() honours context cancellation.
func TestWaitCancelled(t *testing.T) {
	limiter := New(1, 1)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first request should be allowed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected Wait() to fail when the token cannot arrive before the deadline")
	}
}
