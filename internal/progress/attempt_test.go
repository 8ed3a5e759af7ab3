package progress

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testQuestions() []Question {
	return []Question{
		{ID: 10, Text: "Main feature of school photography?", Kind: KindSingleChoice,
			Options: []string{"A", "B", "C"}, Required: true, Points: 2, Correct: []int{1}},
		{ID: 11, Text: "Which factors matter?", Kind: KindMultipleChoice,
			Options: []string{"Time", "Age", "Weather", "Group size"}, Required: true, Points: 3, Correct: []int{0, 1, 3}},
		{ID: 12, Text: "Describe your approach", Kind: KindOpen, Required: true, Points: 5},
	}
}

func runningAttempt(t *testing.T, cfg AttemptConfig) *AttemptController {
	t.Helper()
	a := NewAttemptController(cfg)
	if err := a.Start(time.Now()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return a
}

func TestAttemptAnswersLengthInvariant(t *testing.T) {
	qs := testQuestions()
	a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: qs})

	if got := len(a.Answers()); got != len(qs) {
		t.Fatalf("answers length after start = %d, want %d", got, len(qs))
	}

	a.ToggleOption(10, 1, false)
	if got := len(a.Answers()); got != len(qs) {
		t.Fatalf("answers length after mutation = %d, want %d", got, len(qs))
	}

	a.SetText(12, "keep the kids engaged")
	a.ToggleOption(11, 0, true)
	if err := a.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := a.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got := len(res.Answers); got != len(qs) {
		t.Fatalf("answers length after completion = %d, want %d", got, len(qs))
	}
}

func TestSubmitRejectedWhenRequiredMissing(t *testing.T) {
	a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: testQuestions()})
	a.ToggleOption(10, 1, false)

	err := a.Submit()
	if !errors.Is(err, ErrRequiredUnanswered) {
		t.Fatalf("Submit err = %v, want ErrRequiredUnanswered", err)
	}
	if a.State() != StateRunning {
		t.Fatalf("state = %v after rejected submit, want Running", a.State())
	}
	missing := a.MissingRequired()
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want the two unanswered required questions", missing)
	}
}

func TestExpiryAlwaysCompletesEvenWithNoAnswers(t *testing.T) {
	done := make(chan AttemptResult, 1)
	a := NewAttemptController(AttemptConfig{
		TestID:           "t1",
		TimeLimitMinutes: 1,
		Questions:        testQuestions(),
		OnCompleted:      func(r AttemptResult) { done <- r },
	})
	a.tickEvery = time.Millisecond

	// Start far enough in the past that one tick interval expires it.
	if err := a.Start(time.Now().Add(-59 * time.Second)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var res AttemptResult
	select {
	case res = <-done:
	case <-time.After(time.Second):
		t.Fatal("attempt never auto-submitted on expiry")
	}

	if a.State() != StateCompleted {
		t.Fatalf("state = %v, want Completed", a.State())
	}
	if !res.Expired {
		t.Error("result not marked as expired")
	}
	if len(res.Answers) != len(testQuestions()) {
		t.Errorf("expired attempt kept %d answers, want one per question", len(res.Answers))
	}
}

func TestResumePastDeadlineExpiresImmediately(t *testing.T) {
	done := make(chan AttemptResult, 1)
	a := NewAttemptController(AttemptConfig{
		TestID:           "t1",
		TimeLimitMinutes: 1,
		Questions:        testQuestions(),
		OnCompleted:      func(r AttemptResult) { done <- r },
	})

	if err := a.Start(time.Now().Add(-2 * time.Minute)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case res := <-done:
		if !res.Expired {
			t.Error("result not marked as expired")
		}
	case <-time.After(time.Second):
		t.Fatal("overdue resumed attempt did not expire on start")
	}
}

func TestCompletedAttemptIsReadOnly(t *testing.T) {
	a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: testQuestions()})
	a.ToggleOption(10, 2, false)
	a.ToggleOption(11, 0, true)
	a.SetText(12, "answer")
	if err := a.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	before := a.Answers()

	if err := a.SetText(12, "changed"); !errors.Is(err, ErrAttemptCompleted) {
		t.Errorf("SetText after completion err = %v, want ErrAttemptCompleted", err)
	}
	if err := a.ToggleOption(10, 1, false); !errors.Is(err, ErrAttemptCompleted) {
		t.Errorf("ToggleOption after completion err = %v, want ErrAttemptCompleted", err)
	}
	// A second submit is the auto/manual race: silent no-op.
	if err := a.Submit(); err != nil {
		t.Errorf("second Submit err = %v, want nil no-op", err)
	}

	after := a.Answers()
	for i := range before {
		if before[i].Text != after[i].Text || !EqualOptionSets(before[i].Selected, after[i].Selected) {
			t.Fatalf("stored answers changed after completion: %v -> %v", before[i], after[i])
		}
	}
}

func TestCorrectnessIsSetEqualityAllOrNothing(t *testing.T) {
	tests := []struct {
		name     string
		selected map[uint][]int
		want     map[uint]*bool
	}{
		{
			name:     "wrong single choice",
			selected: map[uint][]int{10: {2}, 11: {0, 1, 3}},
			want:     map[uint]*bool{10: boolPtr(false), 11: boolPtr(true)},
		},
		{
			name:     "right single choice",
			selected: map[uint][]int{10: {1}, 11: {0, 1, 3}},
			want:     map[uint]*bool{10: boolPtr(true), 11: boolPtr(true)},
		},
		{
			name:     "partial overlap is not partial credit",
			selected: map[uint][]int{10: {1}, 11: {0, 1}},
			want:     map[uint]*bool{10: boolPtr(true), 11: boolPtr(false)},
		},
		{
			name:     "order independent",
			selected: map[uint][]int{10: {1}, 11: {3, 1, 0}},
			want:     map[uint]*bool{10: boolPtr(true), 11: boolPtr(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: testQuestions()})
			for qid, sel := range tt.selected {
				multi := qid == 11
				for _, idx := range sel {
					if err := a.ToggleOption(qid, idx, multi); err != nil {
						t.Fatalf("ToggleOption(%d, %d): %v", qid, idx, err)
					}
				}
			}
			a.SetText(12, "something")
			if err := a.Submit(); err != nil {
				t.Fatalf("Submit: %v", err)
			}

			for qid, want := range tt.want {
				got := a.Correctness(qid)
				if got == nil || *got != *want {
					t.Errorf("Correctness(%d) = %v, want %v", qid, got, *want)
				}
			}
			// Open questions never have automatic correctness.
			if got := a.Correctness(12); got != nil {
				t.Errorf("Correctness(open) = %v, want nil", *got)
			}
		})
	}
}

func TestSingleChoiceCannotHoldTwoSelections(t *testing.T) {
	a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: testQuestions()})
	a.ToggleOption(10, 1, false)
	a.ToggleOption(10, 2, false)

	answers := a.Answers()
	if len(answers[0].Selected) != 1 {
		t.Fatalf("single-choice selection = %v, impossible by construction", answers[0].Selected)
	}
}

func TestRecordResultOnlyAfterCompletion(t *testing.T) {
	a := runningAttempt(t, AttemptConfig{TestID: "t1", Questions: testQuestions()})

	if err := a.RecordResult(7, true); !errors.Is(err, ErrAttemptNotComplete) {
		t.Fatalf("RecordResult while running err = %v, want ErrAttemptNotComplete", err)
	}

	a.ToggleOption(10, 1, false)
	a.ToggleOption(11, 0, true)
	a.SetText(12, "x")
	a.Submit()

	if err := a.RecordResult(7, true); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if s := a.Score(); s == nil || *s != 7 {
		t.Errorf("Score = %v, want 7", s)
	}
	if p := a.Passed(); p == nil || !*p {
		t.Errorf("Passed = %v, want true", p)
	}
}

func TestManualSubmitRacingExpiry(t *testing.T) {
	var mu sync.Mutex
	completions := 0

	a := NewAttemptController(AttemptConfig{
		TestID:           "t1",
		TimeLimitMinutes: 1,
		Questions:        []Question{{ID: 1, Kind: KindOpen, Required: false}},
		OnCompleted: func(AttemptResult) {
			mu.Lock()
			completions++
			mu.Unlock()
		},
	})
	a.tickEvery = time.Millisecond
	a.Start(time.Now().Add(-59 * time.Second))

	// Hammer manual submits while the timer expires.
	for i := 0; i < 50; i++ {
		if err := a.Submit(); err != nil && !errors.Is(err, ErrAttemptNotRunning) {
			t.Fatalf("Submit: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for a.State() != StateCompleted {
		if time.Now().After(deadline) {
			t.Fatal("attempt never completed")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if completions != 1 {
		t.Fatalf("completion callback fired %d times, want exactly 1", completions)
	}
}

func boolPtr(b bool) *bool { return &b }
