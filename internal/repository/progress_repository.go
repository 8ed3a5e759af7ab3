package repository

import (
	"time"

	"photoschool_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetLessonProgress returns the stored row, or a zero-value row when
// the student has not touched the lesson yet.
func (r *ProgressRepository) GetLessonProgress(userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.LessonProgress{UserID: userID, LessonID: lessonID}, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertLessonProgress writes the row, creating it on first contact.
// A row already marked completed never loses that flag.
func (r *ProgressRepository) UpsertLessonProgress(p *model.LessonProgress) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.LessonProgress
		err := tx.Where("user_id = ? AND lesson_id = ?", p.UserID, p.LessonID).First(&existing).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			return tx.Create(p).Error
		}

		if existing.Completed {
			p.Completed = true
			p.CompletedAt = existing.CompletedAt
		}
		if existing.VideoPercent > p.VideoPercent {
			p.VideoPercent = existing.VideoPercent
		}
		if existing.TimeSpent > p.TimeSpent {
			p.TimeSpent = existing.TimeSpent
		}
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return tx.Save(p).Error
	})
}

// AddTimeSpent accretes viewing time onto the row, creating it on
// first contact.
func (r *ProgressRepository) AddTimeSpent(userID, lessonID uint, seconds int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.LessonProgress{}).
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			UpdateColumn("time_spent", gorm.Expr("time_spent + ?", seconds))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Create(&model.LessonProgress{
				UserID:    userID,
				LessonID:  lessonID,
				TimeSpent: seconds,
			}).Error
		}
		return nil
	})
}

// MarkLessonComplete flips the terminal flag. Repeat calls are
// harmless.
func (r *ProgressRepository) MarkLessonComplete(userID, lessonID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.LessonProgress
		err := tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&existing).Error
		now := time.Now()
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			return tx.Create(&model.LessonProgress{
				UserID:      userID,
				LessonID:    lessonID,
				Completed:   true,
				CompletedAt: &now,
			}).Error
		}
		if existing.Completed {
			return nil
		}
		existing.Completed = true
		existing.CompletedAt = &now
		return tx.Save(&existing).Error
	})
}

// GetLessonCompletions maps lesson IDs to completion for course
// overview pages.
func (r *ProgressRepository) GetLessonCompletions(userID uint, lessonIDs []uint) (map[uint]bool, error) {
	var rows []model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	statusMap := make(map[uint]bool, len(rows))
	for _, row := range rows {
		statusMap[row.LessonID] = row.Completed
	}
	return statusMap, nil
}

func (r *ProgressRepository) FindPracticeSubmission(userID, lessonID uint) (*model.PracticeSubmission, error) {
	var s model.PracticeSubmission
	err := r.DB.Preload("Answers").
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreatePracticeSubmission writes the submission and its answers in
// one transaction.
func (r *ProgressRepository) CreatePracticeSubmission(s *model.PracticeSubmission, answers []model.PracticeAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubmissionID = s.ID
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
