package database

import (
	"fmt"
	"log"

	"photoschool_backend/internal/config"
	"photoschool_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Enrollment{},
		&model.Course{},
		&model.CourseModule{},
		&model.Lesson{},
		&model.PracticeQuestion{},
		&model.PracticeSubmission{},
		&model.PracticeAnswer{},
		&model.LessonTest{},
		&model.TestQuestion{},
		&model.TestAttempt{},
		&model.TestAttemptAnswer{},
		&model.Assignment{},
		&model.AssignmentSubmission{},
		&model.LessonProgress{},
		&model.LearningLog{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
