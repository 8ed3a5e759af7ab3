package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"photoschool_backend/internal/progress"
)

func TestControllerRegistrationSingleWinner(t *testing.T) {
	s := &TestService{running: make(map[string]*progress.AttemptController)}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl := progress.NewAttemptController(progress.AttemptConfig{TestID: "t1"})
			if s.registerController("attempt-1", ctrl) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&wins); got != 1 {
		t.Fatalf("%d controllers registered for one attempt, want 1", got)
	}

	s.dropController("attempt-1")
	if !s.registerController("attempt-1", progress.NewAttemptController(progress.AttemptConfig{TestID: "t1"})) {
		t.Fatal("registration refused after the slot was dropped")
	}
}

func TestDraftDroppedOnceAttemptFinalized(t *testing.T) {
	ctrl := progress.NewAttemptController(progress.AttemptConfig{
		TestID:           "t1",
		TimeLimitMinutes: 1,
		Questions:        []progress.Question{{ID: 1, Kind: progress.KindOpen}},
	})
	if err := ctrl.Start(time.Now().Add(-2 * time.Minute)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ctrl.State() != progress.StateCompleted {
		t.Fatal("attempt resumed past its deadline still running")
	}

	// No repository is wired: a draft write that is not dropped for a
	// finalized attempt dereferences it and panics.
	s := &TestService{}
	s.saveDraft(ctrl, "attempt-1", ctrl.Answers())
}
