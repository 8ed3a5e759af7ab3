package progress

import (
	"math"
	"sort"
	"sync"
	"time"
)

type AttemptState int

const (
	StateNotStarted AttemptState = iota
	StateRunning
	StateCompleted
)

func (s AttemptState) String() string {
	switch s {
	case StateRunning:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// AttemptResult is handed to the completion callback when the attempt
// finalizes, whether by manual submission or timer expiry.
type AttemptResult struct {
	TestID           string
	Answers          []Answer
	StartedAt        time.Time
	CompletedAt      time.Time
	TimeSpentMinutes int
	Expired          bool
}

type AttemptConfig struct {
	TestID           string
	TimeLimitMinutes int
	Questions        []Question
	// Existing pre-fills answers when resuming an attempt.
	Existing []Answer
	// OnTick receives the remaining whole seconds while running.
	OnTick func(remaining int)
	// OnCompleted fires exactly once, after the state transition. The
	// attempt is already read-only by then; persistence failures in
	// the callback must not roll it back.
	OnCompleted func(AttemptResult)
}

// AttemptController owns one running test attempt: the clock, the
// answers and the single completion transition. All answer mutation is
// delegated through it, and every entry point shares one completed
// guard, so an expiry racing a manual submit resolves to a no-op for
// whichever arrives second.
type AttemptController struct {
	mu        sync.Mutex
	cfg       AttemptConfig
	collector *Collector
	state     AttemptState
	startedAt time.Time
	result    AttemptResult
	deadline  time.Time
	score     *int
	passed    *bool
	timer     TimerOwner

	// tick interval override for tests; zero means one second.
	tickEvery time.Duration
}

func NewAttemptController(cfg AttemptConfig) *AttemptController {
	return &AttemptController{
		cfg:       cfg,
		collector: NewCollector(cfg.Questions, cfg.Existing, DefaultAttachmentPolicy()),
		state:     StateNotStarted,
	}
}

// Start enters Running. startedAt may lie in the past when resuming;
// the countdown then covers only the seconds still left. An attempt
// resumed past its deadline expires immediately.
func (a *AttemptController) Start(startedAt time.Time) error {
	a.mu.Lock()
	if a.state == StateCompleted {
		a.mu.Unlock()
		return ErrAttemptCompleted
	}
	if a.state == StateRunning {
		a.mu.Unlock()
		return nil
	}

	a.state = StateRunning
	a.startedAt = startedAt

	if a.cfg.TimeLimitMinutes <= 0 {
		a.mu.Unlock()
		return nil
	}

	total := a.cfg.TimeLimitMinutes * 60
	remaining := total - int(time.Since(startedAt).Seconds())
	if remaining <= 0 {
		a.mu.Unlock()
		a.expire()
		return nil
	}

	a.deadline = startedAt.Add(time.Duration(total) * time.Second)
	interval := a.tickEvery
	if interval <= 0 {
		interval = time.Second
	}
	a.mu.Unlock()

	// Started outside the attempt lock: the countdown holds its own
	// lock while delivering callbacks, and expire needs the attempt
	// lock, so the two must never be taken in the opposite order.
	a.timer.start(remaining, interval, a.cfg.OnTick, a.expire)
	return nil
}

// State returns the current lifecycle state.
func (a *AttemptController) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Remaining reports the whole seconds left on a timed running attempt.
// The second return is false for untimed attempts.
func (a *AttemptController) Remaining() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.TimeLimitMinutes <= 0 {
		return 0, false
	}
	if a.state != StateRunning {
		return 0, true
	}
	left := int(time.Until(a.deadline).Seconds())
	if left < 0 {
		left = 0
	}
	return left, true
}

func (a *AttemptController) mutate(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateCompleted:
		return ErrAttemptCompleted
	case StateNotStarted:
		return ErrAttemptNotRunning
	}
	return fn()
}

func (a *AttemptController) SetText(questionID uint, text string) error {
	return a.mutate(func() error { return a.collector.SetText(questionID, text) })
}

func (a *AttemptController) ToggleOption(questionID uint, optionIndex int, allowMultiple bool) error {
	return a.mutate(func() error { return a.collector.ToggleOption(questionID, optionIndex, allowMultiple) })
}

func (a *AttemptController) AttachFiles(questionID uint, files []FileRef) (accepted []FileRef, rejected []RejectedFile, err error) {
	mErr := a.mutate(func() error {
		accepted, rejected, err = a.collector.AttachFiles(questionID, files)
		return err
	})
	if mErr != nil {
		return nil, nil, mErr
	}
	return accepted, rejected, err
}

func (a *AttemptController) RemoveFile(questionID uint, fileIndex int) error {
	return a.mutate(func() error { return a.collector.RemoveFile(questionID, fileIndex) })
}

// Submit finalizes the attempt after the required-answer check. A
// submit that loses the race against expiry is a silent no-op, not an
// error surfaced to the learner.
func (a *AttemptController) Submit() error {
	a.mu.Lock()
	if a.state == StateCompleted {
		a.mu.Unlock()
		return nil
	}
	if a.state != StateRunning {
		a.mu.Unlock()
		return ErrAttemptNotRunning
	}
	if !a.collector.AllRequiredAnswered() {
		a.mu.Unlock()
		return ErrRequiredUnanswered
	}
	res := a.finalizeLocked(false)
	a.mu.Unlock()
	a.timer.Stop()
	if a.cfg.OnCompleted != nil {
		a.cfg.OnCompleted(res)
	}
	return nil
}

// expire is the timer path: it must always succeed in producing a
// completed attempt, so the required-answer check is bypassed.
func (a *AttemptController) expire() {
	a.mu.Lock()
	if a.state != StateRunning {
		a.mu.Unlock()
		return
	}
	res := a.finalizeLocked(true)
	a.mu.Unlock()
	// No timer.Stop here: expire runs inside the countdown's own
	// delivery and the countdown terminates after it anyway.
	if a.cfg.OnCompleted != nil {
		a.cfg.OnCompleted(res)
	}
}

func (a *AttemptController) finalizeLocked(expired bool) AttemptResult {
	a.state = StateCompleted

	completedAt := time.Now()
	a.result = AttemptResult{
		TestID:           a.cfg.TestID,
		Answers:          a.collector.Answers(),
		StartedAt:        a.startedAt,
		CompletedAt:      completedAt,
		TimeSpentMinutes: int(math.Round(completedAt.Sub(a.startedAt).Minutes())),
		Expired:          expired,
	}
	return a.result
}

// RecordResult stores the score and pass flag supplied by the grading
// collaborator. The controller never sums points itself.
func (a *AttemptController) RecordResult(score int, passed bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateCompleted {
		return ErrAttemptNotComplete
	}
	a.score = &score
	a.passed = &passed
	return nil
}

func (a *AttemptController) Score() *int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score
}

func (a *AttemptController) Passed() *bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.passed
}

// Result returns the finalized attempt. Valid only once Completed.
func (a *AttemptController) Result() (AttemptResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateCompleted {
		return AttemptResult{}, ErrAttemptNotComplete
	}
	return a.result, nil
}

// Answers exposes the current answers; on a completed attempt these
// are the frozen submitted values.
func (a *AttemptController) Answers() []Answer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collector.Answers()
}

func (a *AttemptController) MissingRequired() []uint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collector.MissingRequired()
}

// Correctness reports per-question correctness on a completed attempt:
// order-independent set equality against the answer key, all or
// nothing. Open questions and questions without a key return nil.
func (a *AttemptController) Correctness(questionID uint) *bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateCompleted {
		return nil
	}
	i, ok := a.collector.index[questionID]
	if !ok {
		return nil
	}
	q := a.cfg.Questions[i]
	if q.Kind == KindOpen || len(q.Correct) == 0 {
		return nil
	}
	correct := EqualOptionSets(a.collector.answers[i].Selected, q.Correct)
	return &correct
}

// EqualOptionSets compares two option-index selections as sets.
func EqualOptionSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
