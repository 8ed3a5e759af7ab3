package progress

import (
	"sync"
	"time"
)

// Countdown delivers one tick per second with the remaining
// whole-second count, monotonically decreasing. The count always
// reaches exactly 0 before the expiry callback fires. After Cancel
// returns, neither callback is invoked again.
type Countdown struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

// StartCountdown begins a one-second-resolution countdown.
func StartCountdown(seconds int, onTick func(remaining int), onExpire func()) *Countdown {
	return startCountdown(seconds, time.Second, onTick, onExpire)
}

func startCountdown(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	c := &Countdown{done: make(chan struct{})}
	go c.run(seconds, interval, onTick, onExpire)
	return c
}

func (c *Countdown) run(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	remaining := seconds
	for remaining > 0 {
		select {
		case <-ticker.C:
			remaining--
			n := remaining
			if !c.deliver(func() {
				if onTick != nil {
					onTick(n)
				}
			}) {
				return
			}
		case <-c.done:
			return
		}
	}

	c.deliver(func() {
		if onExpire != nil {
			onExpire()
		}
	})
}

// deliver runs fn under the countdown lock so a concurrent Cancel
// cannot return while a callback is still in flight.
func (c *Countdown) deliver(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return false
	}
	fn()
	return true
}

// Cancel stops the countdown. Guaranteed: no tick and no expiry
// callback is delivered after Cancel returns.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	if !c.cancelled {
		c.cancelled = true
		close(c.done)
	}
	c.mu.Unlock()
}

// TimerOwner scopes countdowns to one logical owner (a test attempt,
// a session). Starting a new countdown cancels the previous one.
type TimerOwner struct {
	mu     sync.Mutex
	active *Countdown
}

func (o *TimerOwner) Start(seconds int, onTick func(remaining int), onExpire func()) *Countdown {
	return o.start(seconds, time.Second, onTick, onExpire)
}

func (o *TimerOwner) start(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		o.active.Cancel()
	}
	o.active = startCountdown(seconds, interval, onTick, onExpire)
	return o.active
}

// Stop cancels the active countdown, if any.
func (o *TimerOwner) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		o.active.Cancel()
		o.active = nil
	}
}
