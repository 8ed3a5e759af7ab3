package repository

import (
	"photoschool_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Modules", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListPublished(page, limit int) ([]model.Course, int64, error) {
	var total int64
	query := r.DB.Model(&model.Course{}).Where("is_published = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) CreateModule(m *model.CourseModule) error {
	return r.DB.Create(m).Error
}

func (r *CourseRepository) CreateLesson(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *CourseRepository) UpdateLesson(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

// FindLessonByID loads the lesson with its practice questions in
// display order.
func (r *CourseRepository) FindLessonByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc, created_at asc")
	}).First(&lesson, id).Error
	return &lesson, err
}

func (r *CourseRepository) FindLessonByTest(testID string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Where("test_id = ?", testID).First(&lesson).Error
	return &lesson, err
}

func (r *CourseRepository) FindLessonByAssignment(assignmentID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Where("assignment_id = ?", assignmentID).First(&lesson).Error
	return &lesson, err
}

func (r *CourseRepository) ListLessonIDs(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN course_modules m ON m.id = lessons.module_id").
		Where("m.course_id = ?", courseID).
		Order("m.sort_order asc, lessons.sort_order asc").
		Pluck("lessons.id", &ids).Error
	return ids, err
}

// FindCourseIDByLesson resolves the owning course through the module
// join.
func (r *CourseRepository) FindCourseIDByLesson(lessonID uint) (uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN course_modules m ON m.id = lessons.module_id").
		Where("lessons.id = ?", lessonID).
		Limit(1).
		Pluck("m.course_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}

func (r *CourseRepository) CreateQuestion(q *model.PracticeQuestion) error {
	return r.DB.Create(q).Error
}

func (r *CourseRepository) ListQuestions(lessonID uint) ([]model.PracticeQuestion, error) {
	var qs []model.PracticeQuestion
	err := r.DB.Where("lesson_id = ?", lessonID).
		Order("sort_order asc, created_at asc").Find(&qs).Error
	return qs, err
}
