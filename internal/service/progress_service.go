package service

import (
	"fmt"
	"time"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/repository"
	"photoschool_backend/internal/util"
	"photoschool_backend/pkg/logger"
	"photoschool_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ProgressService owns the lesson-completion decision. Each report
// rehydrates the aggregator from the stored row, applies the new
// signal and writes the row back; the completion write itself goes
// through the aggregator's sink so it happens at most once.
type ProgressService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	LogRepo      *repository.LearningLogRepository
}

func NewProgressService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	logRepo *repository.LearningLogRepository,
) *ProgressService {
	return &ProgressService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		LogRepo:      logRepo,
	}
}

func lessonFeatures(lesson *model.Lesson) progress.LessonFeatures {
	return progress.LessonFeatures{
		HasVideo:      lesson.VideoURL != "",
		HasQuestions:  len(lesson.Questions) > 0,
		HasAssignment: lesson.AssignmentID != nil,
		HasTest:       lesson.TestID != nil,
	}
}

// rehydrate rebuilds the in-memory aggregator from the persisted row.
// Signals already stored as done are replayed before the new one is
// applied, so restarts and multi-instance deployments converge on the
// same state. A row already marked completed is restored without a
// sink: that completion was persisted and counted when it first
// happened, and replaying it must not repeat either.
func (s *ProgressService) rehydrate(userID uint, lesson *model.Lesson, row *model.LessonProgress) *progress.Aggregator {
	var sink progress.CompletionSink
	if !row.Completed {
		sink = progress.CompletionSinkFunc(func(lessonID uint) error {
			if err := s.ProgressRepo.MarkLessonComplete(userID, lessonID); err != nil {
				return err
			}
			monitoring.LessonCompletions.Inc()
			s.logCompletion(userID, lessonID)
			return nil
		})
	}

	agg := progress.NewAggregator(lesson.ID, lessonFeatures(lesson), sink, logger.Log)
	if row.Completed {
		var at time.Time
		if row.CompletedAt != nil {
			at = *row.CompletedAt
		}
		agg.RestoreCompleted(at)
	}
	if row.VideoDone {
		agg.VideoEnded()
	}
	if row.VideoPercent > 0 {
		agg.VideoProgress(row.VideoPercent)
	}
	if row.QuestionsDone {
		agg.QuestionsSubmitted()
	}
	if row.AssignmentDone {
		agg.AssignmentSubmitted()
	}
	if row.TestDone {
		agg.TestCompleted()
	}
	return agg
}

func (s *ProgressService) logCompletion(userID, lessonID uint) {
	// A sink retry after a partial failure must not duplicate the log
	// entry.
	if seen, err := s.LogRepo.HasActivity(userID, lessonID, "lesson_completed"); err == nil && seen {
		return
	}
	err := s.LogRepo.Create(&model.LearningLog{
		UserID:   userID,
		LessonID: lessonID,
		Activity: "lesson_completed",
		Content:  fmt.Sprintf("lesson %d completed", lessonID),
	})
	if err != nil {
		logger.Log.Warn("learning log write failed",
			zap.Uint("userID", userID),
			zap.Uint("lessonID", lessonID),
			zap.Error(err))
	}
}

func (s *ProgressService) persistRow(userID uint, lesson *model.Lesson, agg *progress.Aggregator) (*model.LessonProgress, error) {
	signals := agg.Signals()
	row := &model.LessonProgress{
		UserID:         userID,
		LessonID:       lesson.ID,
		VideoPercent:   agg.VideoPercent(),
		VideoDone:      signals.VideoDone,
		QuestionsDone:  signals.QuestionsDone,
		AssignmentDone: signals.AssignmentDone,
		TestDone:       signals.TestDone,
	}
	if doneAt, ok := agg.CompletedAt(); ok {
		row.Completed = true
		row.CompletedAt = &doneAt
	}
	if err := s.ProgressRepo.UpsertLessonProgress(row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *ProgressService) applySignal(userID, lessonID uint, apply func(*progress.Aggregator)) (*model.LessonProgress, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}

	row, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}

	agg := s.rehydrate(userID, lesson, row)
	apply(agg)
	return s.persistRow(userID, lesson, agg)
}

// ReportVideoPosition ingests a playback position in seconds from the
// native player. The tracker converts it to a percentage and drives
// the aggregator's video signal.
func (s *ProgressService) ReportVideoPosition(userID, lessonID uint, positionSeconds float64) (*model.LessonProgress, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}
	if lesson.VideoURL == "" {
		return nil, util.ErrLessonNotFound
	}

	info, err := progress.ClassifyVideoURL(lesson.VideoURL, false)
	if err != nil {
		return nil, err
	}

	row, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	agg := s.rehydrate(userID, lesson, row)

	tracker := progress.NewVideoTracker(info, lesson.VideoDuration,
		agg.VideoProgress,
		agg.VideoEnded)
	tracker.Position(positionSeconds)

	return s.persistRow(userID, lesson, agg)
}

// ReportVideoEnded handles the native end-of-media signal.
func (s *ProgressService) ReportVideoEnded(userID, lessonID uint) (*model.LessonProgress, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}
	if lesson.VideoURL == "" {
		return nil, util.ErrLessonNotFound
	}

	info, err := progress.ClassifyVideoURL(lesson.VideoURL, false)
	if err != nil {
		return nil, err
	}

	row, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	agg := s.rehydrate(userID, lesson, row)

	tracker := progress.NewVideoTracker(info, lesson.VideoDuration,
		agg.VideoProgress,
		agg.VideoEnded)
	tracker.Ended()

	return s.persistRow(userID, lesson, agg)
}

// ReportPlayerEvent handles state-change messages from an embedded
// provider player, where finished is the only completion signal and
// no percentage ever arrives.
func (s *ProgressService) ReportPlayerEvent(userID, lessonID uint, ev progress.PlayerEvent) (*model.LessonProgress, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}
	if lesson.VideoURL == "" {
		return nil, util.ErrLessonNotFound
	}

	info, err := progress.ClassifyVideoURL(lesson.VideoURL, false)
	if err != nil {
		return nil, err
	}

	row, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	agg := s.rehydrate(userID, lesson, row)

	tracker := progress.NewVideoTracker(info, lesson.VideoDuration,
		agg.VideoProgress,
		agg.VideoEnded)
	tracker.HandlePlayerEvent(ev)

	return s.persistRow(userID, lesson, agg)
}

// NotifyQuestionsSubmitted flips the practice-question signal.
func (s *ProgressService) NotifyQuestionsSubmitted(userID, lessonID uint) (*model.LessonProgress, error) {
	return s.applySignal(userID, lessonID, func(a *progress.Aggregator) {
		a.QuestionsSubmitted()
	})
}

// NotifyAssignmentSubmitted flips the assignment signal for the lesson
// the assignment belongs to. Grading outcomes never pass through here.
func (s *ProgressService) NotifyAssignmentSubmitted(userID, assignmentID uint) {
	lesson, err := s.CourseRepo.FindLessonByAssignment(assignmentID)
	if err != nil {
		// Assignment not attached to a lesson; nothing to aggregate.
		return
	}
	_, err = s.applySignal(userID, lesson.ID, func(a *progress.Aggregator) {
		a.AssignmentSubmitted()
	})
	if err != nil {
		logger.Log.Warn("assignment signal failed",
			zap.Uint("userID", userID),
			zap.Uint("lessonID", lesson.ID),
			zap.Error(err))
	}
}

// NotifyTestCompleted flips the test signal, whether the attempt ended
// by manual submit or by expiry.
func (s *ProgressService) NotifyTestCompleted(userID uint, testID string) {
	lesson, err := s.CourseRepo.FindLessonByTest(testID)
	if err != nil {
		return
	}
	_, err = s.applySignal(userID, lesson.ID, func(a *progress.Aggregator) {
		a.TestCompleted()
	})
	if err != nil {
		logger.Log.Warn("test signal failed",
			zap.Uint("userID", userID),
			zap.Uint("lessonID", lesson.ID),
			zap.Error(err))
	}
}

// ReportTimeSpent accretes seconds of viewing time onto the lesson
// row. Time is informational and never drives completion.
func (s *ProgressService) ReportTimeSpent(userID, lessonID uint, seconds int) (*model.LessonProgress, error) {
	if _, err := s.CourseRepo.FindLessonByID(lessonID); err != nil {
		return nil, util.ErrLessonNotFound
	}
	if seconds <= 0 {
		return s.ProgressRepo.GetLessonProgress(userID, lessonID)
	}
	// Cap a single report at one hour; a stuck client tab must not
	// inflate the total unbounded.
	if seconds > 3600 {
		seconds = 3600
	}
	if err := s.ProgressRepo.AddTimeSpent(userID, lessonID, seconds); err != nil {
		return nil, err
	}
	return s.ProgressRepo.GetLessonProgress(userID, lessonID)
}

// GetLessonProgress returns the stored row for the lesson page.
func (s *ProgressService) GetLessonProgress(userID, lessonID uint) (*model.LessonProgress, error) {
	return s.ProgressRepo.GetLessonProgress(userID, lessonID)
}

// OpenLesson runs the aggregator once with no new signal. A lesson
// with no interactive elements completes right here.
func (s *ProgressService) OpenLesson(userID, lessonID uint) (*model.LessonProgress, error) {
	return s.applySignal(userID, lessonID, func(*progress.Aggregator) {})
}

// RecentActivity lists the student's latest learning-log entries.
func (s *ProgressService) RecentActivity(userID uint, limit int) ([]model.LearningLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.LogRepo.ListByUser(userID, limit)
}
