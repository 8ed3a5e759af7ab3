package repository

import (
	"photoschool_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) CreateTest(test *model.LessonTest) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindTestByID(id string) (*model.LessonTest, error) {
	var test model.LessonTest
	err := r.DB.First(&test, "id = ?", id).Error
	return &test, err
}

func (r *TestRepository) UpdateTest(test *model.LessonTest) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) DeleteTest(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.TestQuestion{}).Error; err != nil {
			return err
		}
		var attemptIDs []string
		if err := tx.Model(&model.TestAttempt{}).Where("test_id = ?", id).Pluck("id", &attemptIDs).Error; err == nil && len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&model.TestAttemptAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.TestAttempt{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.LessonTest{}, "id = ?", id).Error
	})
}

func (r *TestRepository) CreateQuestion(q *model.TestQuestion) error {
	return r.DB.Create(q).Error
}

func (r *TestRepository) UpdateQuestion(q *model.TestQuestion) error {
	return r.DB.Save(q).Error
}

func (r *TestRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.TestQuestion{}, id).Error
}

func (r *TestRepository) ListQuestions(testID string) ([]model.TestQuestion, error) {
	var qs []model.TestQuestion
	err := r.DB.Where("test_id = ?", testID).
		Order("sort_order asc, created_at asc").Find(&qs).Error
	return qs, err
}

func (r *TestRepository) CreateAttempt(attempt *model.TestAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *TestRepository) FindAttemptByUserAndTest(userID uint, testID string) (*model.TestAttempt, error) {
	var a model.TestAttempt
	err := r.DB.Where("user_id = ? AND test_id = ?", userID, testID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *TestRepository) FindAttemptByID(id string) (*model.TestAttempt, error) {
	var a model.TestAttempt
	err := r.DB.First(&a, "id = ?", id).Error
	return &a, err
}

// CompleteAttempt writes the finished attempt and its answers in one
// transaction, replacing any answers from a previous partial save.
func (r *TestRepository) CompleteAttempt(attempt *model.TestAttempt, answers []model.TestAttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(attempt).Error; err != nil {
			return err
		}
		if err := tx.Where("attempt_id = ?", attempt.ID).Delete(&model.TestAttemptAnswer{}).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceAnswers persists the in-flight answer set, so a server
// restart or page reload can restore it. The attempt row is locked
// and re-checked inside the transaction: a draft that arrives after
// the attempt finalized must not overwrite the graded rows.
func (r *TestRepository) ReplaceAnswers(attemptID string, answers []model.TestAttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var attempt model.TestAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&attempt, "id = ?", attemptID).Error; err != nil {
			return err
		}
		if attempt.Status != model.AttemptInProgress {
			return nil
		}
		if err := tx.Where("attempt_id = ?", attemptID).Delete(&model.TestAttemptAnswer{}).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attemptID
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TestRepository) ListAttemptAnswers(attemptID string) ([]model.TestAttemptAnswer, error) {
	var answers []model.TestAttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

// ListExpiredRunning returns in-progress attempts whose derived
// deadline has passed, for the background sweep.
func (r *TestRepository) ListExpiredRunning() ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.DB.Table("test_attempts a").
		Joins("JOIN lesson_tests t ON t.id = a.test_id").
		Where("a.status = ? AND a.deleted_at IS NULL", model.AttemptInProgress).
		Where("t.time_limit > 0 AND a.started_at < NOW() - INTERVAL t.time_limit MINUTE").
		Select("a.*").
		Scan(&attempts).Error
	return attempts, err
}
