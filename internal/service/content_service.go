package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/repository"
	"photoschool_backend/internal/util"
	"photoschool_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseCacheTTL = 5 * time.Minute

type ContentService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	TestRepo     *repository.TestRepository
	UserRepo     *repository.UserRepository
	Storage      *StorageService
	Redis        *redis.Client
}

func NewContentService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	testRepo *repository.TestRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
	rdb *redis.Client,
) *ContentService {
	return &ContentService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		TestRepo:     testRepo,
		UserRepo:     userRepo,
		Storage:      storage,
		Redis:        rdb,
	}
}

type CourseReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverUrl"`
	IsPublished *bool   `json:"isPublished"`
}

func (s *ContentService) CreateCourse(authorID uint, req CourseReq) (*model.Course, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	course := &model.Course{
		Title:    *req.Title,
		AuthorID: authorID,
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.CoverURL != nil {
		course.CoverURL = *req.CoverURL
	}
	if req.IsPublished != nil && *req.IsPublished {
		now := time.Now()
		course.IsPublished = true
		course.PublishedAt = &now
	}

	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *ContentService) UpdateCourse(ctx context.Context, courseID uint, req CourseReq) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && *req.Title != "" {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.CoverURL != nil {
		course.CoverURL = *req.CoverURL
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !course.IsPublished {
			now := time.Now()
			course.PublishedAt = &now
		}
		course.IsPublished = *req.IsPublished
	}

	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.invalidateCourseCache(ctx, courseID)
	return course, nil
}

type ModuleReq struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

func (s *ContentService) CreateModule(ctx context.Context, courseID uint, req ModuleReq) (*model.CourseModule, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		return nil, err
	}

	m := &model.CourseModule{
		CourseID: courseID,
		Title:    req.Title,
		Order:    req.Order,
	}
	if err := s.CourseRepo.CreateModule(m); err != nil {
		return nil, err
	}
	s.invalidateCourseCache(ctx, courseID)
	return m, nil
}

func (s *ContentService) Enroll(userID, courseID uint) error {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return err
	}
	if !course.IsPublished {
		return util.ErrPermissionDenied
	}
	return s.UserRepo.Enroll(userID, courseID)
}

// CheckEnrollment gates lesson access for students. Authors and
// admins skip this at the controller.
func (s *ContentService) CheckEnrollment(userID, lessonID uint) error {
	courseID, err := s.CourseRepo.FindCourseIDByLesson(lessonID)
	if err != nil {
		return util.ErrLessonNotFound
	}
	enrolled, err := s.UserRepo.IsEnrolled(userID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return util.ErrNotEnrolled
	}
	return nil
}

func (s *ContentService) ListCourses(page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.ListPublished(page, limit)
}

// CourseOverview is a course with per-lesson completion for the
// requesting student.
type CourseOverview struct {
	Course      *model.Course `json:"course"`
	Completions map[uint]bool `json:"completions"`
}

// GetCourseOverview returns the course tree. The structural part is
// cached in redis; the per-student completion map is always fresh.
func (s *ContentService) GetCourseOverview(ctx context.Context, userID, courseID uint) (*CourseOverview, error) {
	course, err := s.cachedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lessonIDs, err := s.CourseRepo.ListLessonIDs(courseID)
	if err != nil {
		return nil, err
	}
	completions, err := s.ProgressRepo.GetLessonCompletions(userID, lessonIDs)
	if err != nil {
		return nil, err
	}

	return &CourseOverview{Course: course, Completions: completions}, nil
}

func (s *ContentService) cachedCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	key := fmt.Sprintf("course:tree:%d", courseID)

	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var course model.Course
			if json.Unmarshal([]byte(val), &course) == nil {
				return &course, nil
			}
		}
	}

	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(course); err == nil {
			s.Redis.Set(ctx, key, payload, courseCacheTTL)
		}
	}
	return course, nil
}

func (s *ContentService) invalidateCourseCache(ctx context.Context, courseID uint) {
	if s.Redis != nil {
		s.Redis.Del(ctx, fmt.Sprintf("course:tree:%d", courseID))
	}
}

type LessonReq struct {
	ModuleID     uint    `json:"moduleId" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Content      string  `json:"content"`
	Order        int     `json:"order"`
	VideoURL     string  `json:"videoUrl"`
	TestID       *string `json:"testId"`
	AssignmentID *uint   `json:"assignmentId"`
}

func (s *ContentService) CreateLesson(ctx context.Context, courseID uint, req LessonReq) (*model.Lesson, error) {
	if req.VideoURL != "" {
		// Reject malformed URLs at authoring time rather than at play
		// time.
		if _, err := progress.ClassifyVideoURL(req.VideoURL, false); err != nil {
			return nil, err
		}
	}

	lesson := &model.Lesson{
		ModuleID:     req.ModuleID,
		Title:        req.Title,
		Content:      req.Content,
		Order:        req.Order,
		VideoURL:     req.VideoURL,
		TestID:       req.TestID,
		AssignmentID: req.AssignmentID,
	}
	if err := s.CourseRepo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	s.invalidateCourseCache(ctx, courseID)
	return lesson, nil
}

// LessonVideo is the playback block of a lesson payload.
type LessonVideo struct {
	progress.VideoInfo
	Duration float64 `json:"duration"`
	Percent  float64 `json:"percent"`
}

// LessonQuestion is a practice question scrubbed of its answer key.
type LessonQuestion struct {
	ID           uint            `json:"id"`
	QuestionType string          `json:"questionType"`
	Content      string          `json:"content"`
	Options      json.RawMessage `json:"options,omitempty"`
	Required     bool            `json:"required"`
	Points       int             `json:"points"`
	Order        int             `json:"order"`
}

// LessonPayload is everything the lesson page needs in one response:
// the classified video, the questions, previously saved answers, and
// the completion signals so a reload restores partial progress.
type LessonPayload struct {
	Lesson    *model.Lesson            `json:"lesson"`
	Video     *LessonVideo             `json:"video,omitempty"`
	Questions []LessonQuestion         `json:"questions"`
	Answers   []progress.Answer        `json:"answers,omitempty"`
	Submitted bool                     `json:"submitted"`
	Features  progress.LessonFeatures  `json:"features"`
	Signals   progress.LessonSignals   `json:"signals"`
	Completed bool                     `json:"completed"`
}

func (s *ContentService) GetLessonPayload(ctx context.Context, userID, lessonID uint) (*LessonPayload, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}

	payload := &LessonPayload{
		Lesson:    lesson,
		Questions: make([]LessonQuestion, 0, len(lesson.Questions)),
	}

	if lesson.VideoURL != "" {
		info, err := progress.ClassifyVideoURL(lesson.VideoURL, false)
		if err != nil {
			return nil, err
		}
		payload.Video = &LessonVideo{
			VideoInfo: *info,
			Duration:  lesson.VideoDuration,
		}
	}

	for _, q := range lesson.Questions {
		payload.Questions = append(payload.Questions, LessonQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Options:      q.Options,
			Required:     q.Required,
			Points:       q.Points,
			Order:        q.Order,
		})
	}

	payload.Features = progress.LessonFeatures{
		HasVideo:      lesson.VideoURL != "",
		HasQuestions:  len(lesson.Questions) > 0,
		HasAssignment: lesson.AssignmentID != nil,
		HasTest:       lesson.TestID != nil,
	}

	if sub, err := s.ProgressRepo.FindPracticeSubmission(userID, lessonID); err == nil {
		payload.Submitted = true
		payload.Answers = practiceAnswersToRuntime(sub.Answers)
	}

	row, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	payload.Signals = progress.LessonSignals{
		VideoDone:      row.VideoDone,
		QuestionsDone:  row.QuestionsDone,
		AssignmentDone: row.AssignmentDone,
		TestDone:       row.TestDone,
	}
	payload.Completed = row.Completed
	if payload.Video != nil {
		payload.Video.Percent = row.VideoPercent
	}

	return payload, nil
}

func practiceAnswersToRuntime(stored []model.PracticeAnswer) []progress.Answer {
	answers := make([]progress.Answer, 0, len(stored))
	for _, a := range stored {
		ans := progress.Answer{
			QuestionID: a.QuestionID,
			Text:       a.Text,
			Selected:   []int{},
		}
		if len(a.Selected) > 0 {
			_ = json.Unmarshal(a.Selected, &ans.Selected)
		}
		if len(a.Attachments) > 0 {
			_ = json.Unmarshal(a.Attachments, &ans.Files)
		}
		answers = append(answers, ans)
	}
	return answers
}

// UploadLessonVideo stores the file, probes its duration and generates
// a thumbnail. Without a probed duration the player cannot report a
// watch percentage, so a failed probe fails the upload.
func (s *ContentService) UploadLessonVideo(ctx context.Context, lessonID uint, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range util.AllowedVideoExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("unsupported video extension %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream}); err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "lesson-video-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.ReadFrom(src); err != nil {
		return nil, err
	}

	info, err := util.ProbeVideo(tmp.Name())
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("videos/lesson_%d_%d%s", lessonID, time.Now().Unix(), ext)
	url, err := s.Storage.UploadFile(ctx, objectName, tmp.Name(), file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	thumbPath := filepath.Join(os.TempDir(), fmt.Sprintf("lesson_%d_thumb.jpg", lessonID))
	if err := util.GenerateThumbnail(tmp.Name(), thumbPath, "00:00:01"); err == nil {
		thumbName := fmt.Sprintf("thumbnails/lesson_%d.jpg", lessonID)
		if _, err := s.Storage.UploadFile(ctx, thumbName, thumbPath, "image/jpeg"); err != nil {
			logger.Log.Warn("thumbnail upload failed", zap.Uint("lessonID", lessonID), zap.Error(err))
		}
		os.Remove(thumbPath)
	}

	lesson.VideoURL = url
	lesson.VideoDuration = info.Duration
	if err := s.CourseRepo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}
