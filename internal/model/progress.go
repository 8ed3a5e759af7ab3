package model

import (
	"time"
)

// LessonProgress tracks one student's state within one lesson. The
// signal columns persist the partial progress so a reload restores it;
// Completed is terminal once written.
type LessonProgress struct {
	BaseModel
	UserID         uint       `gorm:"index:idx_user_lesson,unique;type:bigint unsigned" json:"userId"`
	LessonID       uint       `gorm:"index:idx_user_lesson,unique;type:bigint unsigned" json:"lessonId"`
	VideoPercent   float64    `gorm:"default:0" json:"videoPercent"`
	VideoDone      bool       `gorm:"default:false" json:"videoDone"`
	QuestionsDone  bool       `gorm:"default:false" json:"questionsDone"`
	AssignmentDone bool       `gorm:"default:false" json:"assignmentDone"`
	TestDone       bool       `gorm:"default:false" json:"testDone"`
	TimeSpent      int        `gorm:"default:0" json:"timeSpent"`
	Completed      bool       `gorm:"default:false" json:"completed"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
