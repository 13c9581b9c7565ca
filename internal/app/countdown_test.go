package app_test

import (
	"sync/atomic"
	"testing"
	"time"

	"gatemaster/internal/app"
)

func TestCountdownExpiresOnce(t *testing.T) {
	var expired atomic.Int32
	var lastTick atomic.Int64
	c := app.NewCountdown(t0.Add(3*time.Second), 3*time.Second, time.Second,
		func(left time.Duration) { lastTick.Store(int64(left)) },
		func() { expired.Add(1) },
	)

	ticks := make(chan time.Time, 8)
	ticks <- t0.Add(time.Second)
	ticks <- t0.Add(2 * time.Second)
	ticks <- t0.Add(3 * time.Second)
	ticks <- t0.Add(4 * time.Second)
	c.Drive(ticks)

	if expired.Load() != 1 {
		t.Fatalf("expected a single expiry, got %d", expired.Load())
	}
	if !c.Expired() || c.Remaining() != 0 || time.Duration(lastTick.Load()) != 0 {
		t.Fatalf("expected zero remaining after expiry, got %s", c.Remaining())
	}
	if len(ticks) != 1 {
		t.Fatalf("expected loop to stop at expiry, %d ticks unread", len(ticks))
	}
}

func TestCountdownStopPreventsExpiry(t *testing.T) {
	var expired atomic.Int32
	c := app.NewCountdown(t0.Add(time.Second), time.Second, time.Second, nil, func() { expired.Add(1) })

	ticks := make(chan time.Time, 1)
	go c.Drive(ticks)
	c.Stop()
	c.Stop()
	ticks <- t0.Add(time.Minute)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("countdown did not stop")
	}
	if expired.Load() != 0 {
		t.Fatalf("stopped countdown must not expire")
	}
	if c.Remaining() != time.Second {
		t.Fatalf("expected untouched remaining, got %s", c.Remaining())
	}
}

func TestCountdownWithRealTicker(t *testing.T) {
	fired := make(chan struct{})
	c := app.NewCountdown(time.Now().Add(30*time.Millisecond), 30*time.Millisecond, 5*time.Millisecond, nil, func() { close(fired) })
	c.Start()
	defer c.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never expired")
	}
}
