package app

import (
	"sync"
	"time"
)

// Countdown tracks time left until a fixed deadline. OnTick receives the
// remaining time on every tick; onExpire fires at most once, and never after Stop.
type Countdown struct {
	deadline time.Time
	step     time.Duration
	onTick   func(remaining time.Duration)
	onExpire func()

	mu        sync.Mutex
	remaining time.Duration
	stopped   bool
	expired   bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewCountdown(deadline time.Time, total, step time.Duration, onTick func(time.Duration), onExpire func()) *Countdown {
	if step <= 0 {
		step = time.Second
	}
	if onTick == nil {
		onTick = func(time.Duration) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}
	return &Countdown{
		deadline:  deadline,
		step:      step,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: total,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the countdown off a real ticker.
func (c *Countdown) Start() {
	ticker := time.NewTicker(c.step)
	go func() {
		defer ticker.Stop()
		c.Drive(ticker.C)
	}()
}

// Drive runs the countdown off the given tick source and returns once the
// deadline passes, Stop is called or ticks is closed. Each tick value is
// taken as the current time.
func (c *Countdown) Drive(ticks <-chan time.Time) {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case now, ok := <-ticks:
			if !ok {
				return
			}
			left := c.deadline.Sub(now)
			if left < 0 {
				left = 0
			}

			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.remaining = left
			fire := left == 0 && !c.expired
			if fire {
				c.expired = true
			}
			c.mu.Unlock()

			c.onTick(left)
			if fire {
				c.onExpire()
				return
			}
		}
	}
}

// Remaining is the time left as of the last tick.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the deadline was reached.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Stop halts the countdown. It is safe to call from onExpire and more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once the tick loop has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
