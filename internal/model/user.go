package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('student','teacher','admin');default:'student'" json:"role"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// Enrollment links a student to a course.
type Enrollment struct {
	BaseModel
	UserID   uint       `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"userId"`
	CourseID uint       `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"courseId"`
	Expired  *time.Time `json:"expired,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
