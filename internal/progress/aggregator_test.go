package progress

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (s *recordingSink) MarkLessonComplete(lessonID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, lessonID)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestEmptyLessonCompletesOnOpen(t *testing.T) {
	sink := &recordingSink{}
	a := NewAggregator(7, LessonFeatures{}, sink, nil)

	if !a.Completed() {
		t.Fatal("lesson with no interactive elements not complete on open")
	}
	if sink.count() != 1 {
		t.Fatalf("persistence called %d times, want 1", sink.count())
	}
}

func TestVideoAndQuestionsScenario(t *testing.T) {
	sink := &recordingSink{}
	a := NewAggregator(7, LessonFeatures{HasVideo: true, HasQuestions: true}, sink, nil)

	a.VideoProgress(89)
	a.QuestionsSubmitted()
	if a.Completed() {
		t.Fatal("lesson complete at 89% video, want incomplete")
	}
	if sink.count() != 0 {
		t.Fatalf("persistence called %d times before completion", sink.count())
	}

	a.VideoProgress(91)
	if !a.Completed() {
		t.Fatal("lesson not complete after crossing the video threshold")
	}
	if sink.count() != 1 {
		t.Fatalf("persistence called %d times, want exactly 1", sink.count())
	}

	// Later signals must not re-invoke persistence or revert state.
	a.VideoProgress(95)
	a.QuestionsSubmitted()
	if sink.count() != 1 {
		t.Fatalf("persistence re-invoked after completion: %d calls", sink.count())
	}
	if !a.Completed() {
		t.Fatal("completion reverted by a later signal")
	}
}

func TestAllFourSignalsRequired(t *testing.T) {
	features := LessonFeatures{HasVideo: true, HasQuestions: true, HasAssignment: true, HasTest: true}
	feeds := []struct {
		name string
		feed func(a *Aggregator)
	}{
		{"video", func(a *Aggregator) { a.VideoProgress(93) }},
		{"questions", func(a *Aggregator) { a.QuestionsSubmitted() }},
		{"assignment", func(a *Aggregator) { a.AssignmentSubmitted() }},
		{"test", func(a *Aggregator) { a.TestCompleted() }},
	}

	// Leaving out any one signal keeps the lesson incomplete.
	for skip := range feeds {
		sink := &recordingSink{}
		a := NewAggregator(1, features, sink, nil)
		for i, f := range feeds {
			if i != skip {
				f.feed(a)
			}
		}
		if a.Completed() {
			t.Errorf("lesson complete without the %s signal", feeds[skip].name)
		}
	}

	sink := &recordingSink{}
	a := NewAggregator(1, features, sink, nil)
	for _, f := range feeds {
		f.feed(a)
	}
	if !a.Completed() {
		t.Fatal("lesson incomplete with all four signals")
	}
	if sink.count() != 1 {
		t.Fatalf("persistence called %d times, want 1", sink.count())
	}
}

func TestPercentLessVideoCompletion(t *testing.T) {
	sink := &recordingSink{}
	a := NewAggregator(3, LessonFeatures{HasVideo: true}, sink, nil)

	// An embedded player only reports a finished event, no percent.
	a.VideoEnded()
	if !a.Completed() {
		t.Fatal("percent-less completion not accepted for the video signal")
	}
}

func TestSinkFailureKeepsLocalCompletionAndRetries(t *testing.T) {
	sink := &recordingSink{err: errors.New("network down")}
	a := NewAggregator(9, LessonFeatures{HasVideo: true}, sink, nil)

	a.VideoProgress(95)
	if !a.Completed() {
		t.Fatal("local completion rolled back on persistence failure")
	}
	if sink.count() != 0 {
		t.Fatal("failed sink recorded a call")
	}

	// Next signal retries the failed write once the sink recovers.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	a.VideoProgress(99)
	if sink.count() != 1 {
		t.Fatalf("persistence retried %d times after recovery, want 1", sink.count())
	}

	// A successful write is not repeated.
	a.VideoEnded()
	if sink.count() != 1 {
		t.Fatalf("persistence called %d times, want 1", sink.count())
	}
}

func TestRestoredCompletionNeverRefiresSink(t *testing.T) {
	doneAt := time.Now().Add(-time.Hour)
	sink := &recordingSink{}
	a := NewAggregator(7, LessonFeatures{HasVideo: true, HasQuestions: true}, sink, nil)
	a.RestoreCompleted(doneAt)

	// Replaying stored signals, and any report arriving after the
	// lesson finished, must leave persistence untouched.
	a.VideoEnded()
	a.QuestionsSubmitted()
	a.VideoProgress(100)

	if sink.count() != 0 {
		t.Fatalf("persistence invoked %d times on a restored completion, want 0", sink.count())
	}
	if !a.Completed() {
		t.Fatal("restored aggregator not complete")
	}
	if at, ok := a.CompletedAt(); !ok || !at.Equal(doneAt) {
		t.Fatalf("completion time %v, want restored %v", at, doneAt)
	}
}

func TestVideoPercentClampedAndMonotonic(t *testing.T) {
	a := NewAggregator(1, LessonFeatures{HasVideo: true}, nil, nil)
	a.VideoProgress(150)
	if got := a.VideoPercent(); got != 100 {
		t.Errorf("percent = %v, want clamped to 100", got)
	}
	a.VideoProgress(40)
	if got := a.VideoPercent(); got != 100 {
		t.Errorf("percent dropped to %v after a lower report, want 100 kept", got)
	}
}
