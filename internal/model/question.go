package model

import (
	"encoding/json"
	"time"
)

// PracticeQuestion is an in-lesson exercise. Options and Correct are
// JSON arrays; Correct holds option indexes and stays empty for open
// questions.
type PracticeQuestion struct {
	BaseModel
	LessonID     uint            `gorm:"index;type:bigint unsigned" json:"lessonId"`
	QuestionType string          `gorm:"size:50;not null" json:"questionType"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	Correct      json.RawMessage `gorm:"type:json" json:"-"`
	Required     bool            `gorm:"default:false" json:"required"`
	Points       int             `gorm:"default:0" json:"points"`
	Order        int             `gorm:"column:sort_order;default:0" json:"order"`
}

func (PracticeQuestion) TableName() string {
	return "practice_questions"
}

// PracticeSubmission is the one-time answer set for a lesson's
// practice questions.
type PracticeSubmission struct {
	UUIDBase
	LessonID    uint             `gorm:"index:idx_practice_user_lesson,unique;type:bigint unsigned" json:"lessonId"`
	UserID      uint             `gorm:"index:idx_practice_user_lesson,unique;type:bigint unsigned" json:"userId"`
	SubmittedAt *time.Time       `json:"submittedAt"`
	Answers     []PracticeAnswer `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (PracticeSubmission) TableName() string {
	return "practice_submissions"
}

// PracticeAnswer stores one answer. Selected is a JSON array of option
// indexes; Attachments is a JSON array of stored file references.
type PracticeAnswer struct {
	UUIDBase
	SubmissionID string          `gorm:"index;type:varchar(36)" json:"submissionId"`
	QuestionID   uint            `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text         string          `gorm:"type:text" json:"text"`
	Selected     json.RawMessage `gorm:"type:json" json:"selected,omitempty"`
	Attachments  json.RawMessage `gorm:"type:json" json:"attachments,omitempty"`
}

func (PracticeAnswer) TableName() string {
	return "practice_answers"
}
