// Package progress contains the lesson-completion and test-attempt
// runtime: countdown timers, answer collection, the attempt state
// machine, the lesson completion aggregator and the video tracker.
// It is deliberately free of gin/gorm so the services and the tests
// can drive it directly.
package progress

import "errors"

type QuestionKind string

const (
	KindOpen           QuestionKind = "open"
	KindSingleChoice   QuestionKind = "single_choice"
	KindMultipleChoice QuestionKind = "multiple_choice"
)

// Question is the read-only view of a published question. Correct
// holds the answer-key option indices for choice kinds; it stays empty
// for open questions and for payloads where the key is withheld.
type Question struct {
	ID       uint
	Text     string
	Kind     QuestionKind
	Options  []string
	Required bool
	Points   int
	Order    int
	Correct  []int
}

// FileRef points at a staged attachment. The actual upload happens in
// the storage layer; the runtime only validates and tracks references.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	URL         string `json:"url,omitempty"`
}

// Answer is the in-progress answer to one question. A collector holds
// exactly one Answer per question, index aligned with the question
// list, so required-field checks can index safely.
type Answer struct {
	QuestionID uint      `json:"questionId"`
	Text       string    `json:"text,omitempty"`
	Selected   []int     `json:"selected"`
	Files      []FileRef `json:"files,omitempty"`
}

var (
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrUnknownOption      = errors.New("option index out of range")
	ErrAttemptCompleted   = errors.New("attempt already completed")
	ErrAttemptNotRunning  = errors.New("attempt not running")
	ErrAttemptNotComplete = errors.New("attempt not completed yet")
	ErrRequiredUnanswered = errors.New("required questions unanswered")
	ErrFileTooLarge       = errors.New("file exceeds size limit")
	ErrFileType           = errors.New("file type not allowed")
	ErrBadVideoURL        = errors.New("video url is malformed")
)
