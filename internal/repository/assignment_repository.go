package repository

import (
	"photoschool_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(a *model.Assignment) error {
	return r.DB.Create(a).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var a model.Assignment
	err := r.DB.First(&a, id).Error
	return &a, err
}

func (r *AssignmentRepository) Update(a *model.Assignment) error {
	return r.DB.Save(a).Error
}

func (r *AssignmentRepository) CreateSubmission(s *model.AssignmentSubmission) error {
	return r.DB.Create(s).Error
}

func (r *AssignmentRepository) UpdateSubmission(s *model.AssignmentSubmission) error {
	return r.DB.Save(s).Error
}

func (r *AssignmentRepository) FindSubmission(userID, assignmentID uint) (*model.AssignmentSubmission, error) {
	var s model.AssignmentSubmission
	err := r.DB.Where("user_id = ? AND assignment_id = ?", userID, assignmentID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AssignmentRepository) ListSubmissions(assignmentID uint, page, limit int) ([]model.AssignmentSubmission, int64, error) {
	var total int64
	query := r.DB.Model(&model.AssignmentSubmission{}).Where("assignment_id = ?", assignmentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []model.AssignmentSubmission
	offset := (page - 1) * limit
	err := query.Order("submitted_at desc").Offset(offset).Limit(limit).Find(&subs).Error
	return subs, total, err
}
