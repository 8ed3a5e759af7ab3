package model

import (
	"encoding/json"
	"time"
)

const (
	AttemptPending    = "pending"
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// LessonTest is a timed test attached to a lesson.
type LessonTest struct {
	UUIDBase
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	TimeLimit   int        `gorm:"default:0" json:"timeLimit"` // Minutes
	PassScore   int        `gorm:"default:0" json:"passScore"`
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatorID   uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (LessonTest) TableName() string {
	return "lesson_tests"
}

// TestQuestion belongs to a LessonTest. For choice questions Correct
// holds the key as a JSON array of option indexes; for open questions
// it stays empty and the answer is not auto-graded.
type TestQuestion struct {
	BaseModel
	TestID       string          `gorm:"index;type:varchar(36)" json:"testId"`
	QuestionType string          `gorm:"size:50;not null" json:"questionType"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	Correct      json.RawMessage `gorm:"type:json" json:"-"`
	Required     bool            `gorm:"default:false" json:"required"`
	Points       int             `gorm:"default:0" json:"points"`
	Order        int             `gorm:"column:sort_order;default:0" json:"order"`
	Explanation  string          `gorm:"type:text" json:"explanation"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// TestAttempt is one student's run at a test. The deadline is always
// derived from StartedAt plus the test's time limit, never stored,
// so a page reload cannot reset the clock.
type TestAttempt struct {
	UUIDBase
	TestID      string     `gorm:"index:idx_attempt_user_test,unique;type:varchar(36)" json:"testId"`
	UserID      uint       `gorm:"index:idx_attempt_user_test,unique;type:bigint unsigned" json:"userId"`
	Status      string     `gorm:"size:20;default:'in_progress'" json:"status"`
	Score       int        `gorm:"default:0" json:"score"`
	Passed      bool       `gorm:"default:false" json:"passed"`
	Expired     bool       `gorm:"default:false" json:"expired"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	TimeSpent   int        `gorm:"default:0" json:"timeSpent"` // Minutes
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// TestAttemptAnswer stores one graded answer inside an attempt.
type TestAttemptAnswer struct {
	UUIDBase
	AttemptID  string          `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID uint            `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string          `gorm:"type:text" json:"text"`
	Selected   json.RawMessage `gorm:"type:json" json:"selected,omitempty"`
	Files      json.RawMessage `gorm:"type:json" json:"files,omitempty"`
	IsCorrect  *bool           `json:"isCorrect,omitempty"`
	Score      int             `gorm:"default:0" json:"score"`
}

func (TestAttemptAnswer) TableName() string {
	return "test_attempt_answers"
}
