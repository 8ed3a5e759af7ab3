package progress

import (
	"sync"
	"testing"
	"time"
)

func TestCountdownTicksDownToZeroThenExpires(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	expired := make(chan struct{})

	startCountdown(3, time.Millisecond,
		func(remaining int) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(expired) },
	)

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("countdown never expired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 {
		t.Fatalf("got %d ticks, want 3", len(ticks))
	}
	for i, r := range ticks {
		want := 2 - i
		if r != want {
			t.Errorf("tick %d: remaining = %d, want %d", i, r, want)
		}
	}
	if ticks[len(ticks)-1] != 0 {
		t.Errorf("last tick = %d, want exactly 0 before expiry", ticks[len(ticks)-1])
	}
}

func TestCountdownCancelStopsDelivery(t *testing.T) {
	var mu sync.Mutex
	fired := false

	c := startCountdown(5, time.Millisecond, nil, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	c.Cancel()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Fatal("onExpire fired after Cancel")
	}
}

func TestCountdownCancelIsIdempotent(t *testing.T) {
	c := startCountdown(5, time.Millisecond, nil, nil)
	c.Cancel()
	c.Cancel()
}

func TestTimerOwnerReplacesActiveCountdown(t *testing.T) {
	var o TimerOwner

	firstExpired := make(chan struct{})
	o.start(1, 5*time.Millisecond, nil, func() { close(firstExpired) })

	secondExpired := make(chan struct{})
	o.start(1, 5*time.Millisecond, nil, func() { close(secondExpired) })

	select {
	case <-secondExpired:
	case <-time.After(time.Second):
		t.Fatal("replacement countdown never expired")
	}

	select {
	case <-firstExpired:
		t.Fatal("first countdown expired after being replaced")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTimerOwnerStop(t *testing.T) {
	var o TimerOwner
	expired := make(chan struct{})
	o.start(1, 5*time.Millisecond, nil, func() { close(expired) })
	o.Stop()

	select {
	case <-expired:
		t.Fatal("countdown expired after owner stopped it")
	case <-time.After(20 * time.Millisecond):
	}
}
