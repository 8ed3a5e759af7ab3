package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// VideoDoneThreshold is the watched percentage at which the video
// signal counts as done.
const VideoDoneThreshold = 90.0

// CompletionSink persists the completion decision. It is the only
// outbound call the aggregator makes.
type CompletionSink interface {
	MarkLessonComplete(lessonID uint) error
}

// CompletionSinkFunc adapts a function to a CompletionSink.
type CompletionSinkFunc func(lessonID uint) error

func (f CompletionSinkFunc) MarkLessonComplete(lessonID uint) error { return f(lessonID) }

// LessonFeatures declares which interactive elements a lesson has. A
// missing feature makes its signal vacuously true.
type LessonFeatures struct {
	HasVideo      bool
	HasQuestions  bool
	HasAssignment bool
	HasTest       bool
}

// LessonSignals is a snapshot of the four partial signals.
type LessonSignals struct {
	VideoDone      bool `json:"videoDone"`
	QuestionsDone  bool `json:"questionsDone"`
	AssignmentDone bool `json:"assignmentDone"`
	TestDone       bool `json:"testDone"`
}

// Aggregator decides, from independent partial signals, whether a
// lesson counts as finished, and persists that decision once. The
// completed flag is terminal: later signals, a late assignment grade
// or a revision request never revert it.
type Aggregator struct {
	mu        sync.Mutex
	lessonID  uint
	features  LessonFeatures
	signals   LessonSignals
	percent   float64
	completed bool
	doneAt    time.Time
	persisted bool
	sink      CompletionSink
	log       *zap.Logger
}

// NewAggregator builds the aggregator and evaluates immediately, so a
// lesson with no interactive elements at all completes on open with
// zero signal updates. That case needs no special-casing: it falls out
// of the conjunction of four vacuously true predicates.
func NewAggregator(lessonID uint, features LessonFeatures, sink CompletionSink, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Aggregator{
		lessonID: lessonID,
		features: features,
		signals: LessonSignals{
			VideoDone:      !features.HasVideo,
			QuestionsDone:  !features.HasQuestions,
			AssignmentDone: !features.HasAssignment,
			TestDone:       !features.HasTest,
		},
		sink: sink,
		log:  log,
	}
	a.mu.Lock()
	a.evaluateLocked()
	a.mu.Unlock()
	return a
}

// RestoreCompleted seeds the aggregator from a row whose completion is
// already persisted. The sink fired when that row was first written;
// replayed signals after a restore never reach it again.
func (a *Aggregator) RestoreCompleted(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completed = true
	a.persisted = true
	if !at.IsZero() {
		a.doneAt = at
	} else if a.doneAt.IsZero() {
		a.doneAt = time.Now()
	}
}

// VideoProgress records a watched percentage from local media. The
// video signal flips once the percentage reaches the threshold.
func (a *Aggregator) VideoProgress(percent float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	if percent > a.percent {
		a.percent = percent
	}
	if percent >= VideoDoneThreshold {
		a.signals.VideoDone = true
	}
	a.evaluateLocked()
}

// VideoEnded handles an end-of-media event, including the percent-less
// completion an embedded player reports.
func (a *Aggregator) VideoEnded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals.VideoDone = true
	a.evaluateLocked()
}

// QuestionsSubmitted marks the one-time practice-answer submission.
func (a *Aggregator) QuestionsSubmitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals.QuestionsDone = true
	a.evaluateLocked()
}

// AssignmentSubmitted marks that a submission exists. Grading status
// is irrelevant to this signal.
func (a *Aggregator) AssignmentSubmitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals.AssignmentDone = true
	a.evaluateLocked()
}

// TestCompleted marks the test attempt reaching Completed, whether by
// manual submit or auto-submit.
func (a *Aggregator) TestCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals.TestDone = true
	a.evaluateLocked()
}

func (a *Aggregator) evaluateLocked() {
	if a.completed {
		// Local completion already stands. If the sink call failed
		// earlier, retry on this re-evaluation; a success is never
		// repeated.
		if !a.persisted {
			a.persistLocked()
		}
		return
	}
	if a.signals.VideoDone && a.signals.QuestionsDone && a.signals.AssignmentDone && a.signals.TestDone {
		a.completed = true
		a.doneAt = time.Now()
		a.persistLocked()
	}
}

func (a *Aggregator) persistLocked() {
	if a.sink == nil {
		a.persisted = true
		return
	}
	if err := a.sink.MarkLessonComplete(a.lessonID); err != nil {
		// Optimistic local transition: the lesson stays complete,
		// the write is retried on the next signal.
		a.log.Error("mark lesson complete failed",
			zap.Uint("lessonID", a.lessonID),
			zap.Error(err))
		a.persisted = false
		return
	}
	a.persisted = true
}

func (a *Aggregator) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

func (a *Aggregator) CompletedAt() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doneAt, a.completed
}

func (a *Aggregator) VideoPercent() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.percent
}

func (a *Aggregator) Signals() LessonSignals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signals
}
