package model

import (
	"encoding/json"
	"time"
)

const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
	SubmissionRevision  = "revision_requested"
)

// Assignment is a graded deliverable attached to a lesson, typically
// a photo set or an edited export.
type Assignment struct {
	BaseModel
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	MaxScore    int        `gorm:"default:100" json:"maxScore"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CreatorID   uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentSubmission records one student's hand-in. Grading never
// changes the fact that a submission exists; lesson completion keys
// off existence alone.
type AssignmentSubmission struct {
	UUIDBase
	AssignmentID uint            `gorm:"index:idx_assignment_user,unique;type:bigint unsigned" json:"assignmentId"`
	UserID       uint            `gorm:"index:idx_assignment_user,unique;type:bigint unsigned" json:"userId"`
	Text         string          `gorm:"type:text" json:"text"`
	Attachments  json.RawMessage `gorm:"type:json" json:"attachments,omitempty"`
	Status       string          `gorm:"size:30;default:'submitted'" json:"status"`
	Score        *int            `json:"score,omitempty"`
	Feedback     string          `gorm:"type:text" json:"feedback"`
	SubmittedAt  time.Time       `json:"submittedAt"`
	GradedAt     *time.Time      `json:"gradedAt,omitempty"`
	GraderID     *uint           `gorm:"type:bigint unsigned" json:"graderId,omitempty"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
