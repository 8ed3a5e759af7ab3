package model

import (
	"gorm.io/gorm"
)

// LearningLog records a student activity for auditing and analytics:
// lesson completions, test scores, assignment hand-ins.
type LearningLog struct {
	gorm.Model
	UserID   uint   `gorm:"index;type:bigint unsigned"`
	LessonID uint   `gorm:"index;type:bigint unsigned"`
	Activity string `gorm:"size:50;not null"`
	Content  string `gorm:"type:text"`
	Score    int    `gorm:"default:0"`
}

func (LearningLog) TableName() string {
	return "learning_logs"
}
