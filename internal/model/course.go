package model

import "time"

// swagger:model Course
type Course struct {
	BaseModel
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	CoverURL    string     `gorm:"size:255" json:"coverUrl"`
	AuthorID    uint       `gorm:"index;type:bigint unsigned" json:"authorId"`
	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Modules     []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseModule groups lessons inside a course.
type CourseModule struct {
	BaseModel
	CourseID uint     `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string   `gorm:"size:255;not null" json:"title"`
	Order    int      `gorm:"column:sort_order;default:0" json:"order"`
	Lessons  []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

// Lesson is the unit a student works through. A lesson may carry any
// combination of a video, practice questions, an assignment and a
// timed test; completion requires all elements it actually has.
type Lesson struct {
	BaseModel
	ModuleID      uint    `gorm:"index;type:bigint unsigned" json:"moduleId"`
	Title         string  `gorm:"size:255;not null" json:"title"`
	Content       string  `gorm:"type:longtext" json:"content"`
	Order         int     `gorm:"column:sort_order;default:0" json:"order"`
	VideoURL      string  `gorm:"size:512" json:"videoUrl"`
	VideoDuration float64 `gorm:"default:0" json:"videoDuration"` // seconds
	TestID        *string `gorm:"type:varchar(36)" json:"testId,omitempty"`
	AssignmentID  *uint   `gorm:"type:bigint unsigned" json:"assignmentId,omitempty"`

	Questions []PracticeQuestion `gorm:"foreignKey:LessonID" json:"questions,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
