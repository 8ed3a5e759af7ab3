package repository

import (
	"photoschool_backend/internal/model"

	"gorm.io/gorm"
)

type LearningLogRepository struct {
	DB *gorm.DB
}

func NewLearningLogRepository(db *gorm.DB) *LearningLogRepository {
	return &LearningLogRepository{DB: db}
}

func (r *LearningLogRepository) Create(log *model.LearningLog) error {
	return r.DB.Create(log).Error
}

func (r *LearningLogRepository) ListByUser(userID uint, limit int) ([]model.LearningLog, error) {
	var logs []model.LearningLog
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, err
}

// HasActivity reports whether an activity was already logged for the
// lesson, used to keep score awards one-time.
func (r *LearningLogRepository) HasActivity(userID, lessonID uint, activity string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.LearningLog{}).
		Where("user_id = ? AND lesson_id = ? AND activity = ?", userID, lessonID, activity).
		Count(&count).Error
	return count > 0, err
}
