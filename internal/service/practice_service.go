package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/repository"
	"photoschool_backend/internal/util"
)

// PracticeService handles in-lesson practice questions: answer
// validation, attachment staging and the one-time submission.
type PracticeService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	ProgressSvc  *ProgressService
	Storage      *StorageService
}

func NewPracticeService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	progressSvc *ProgressService,
	storage *StorageService,
) *PracticeService {
	return &PracticeService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		ProgressSvc:  progressSvc,
		Storage:      storage,
	}
}

func practiceToRuntimeQuestion(q *model.PracticeQuestion) progress.Question {
	rq := progress.Question{
		ID:       q.ID,
		Text:     q.Content,
		Kind:     progress.QuestionKind(q.QuestionType),
		Required: q.Required,
		Points:   q.Points,
		Order:    q.Order,
	}
	if len(q.Options) > 0 {
		_ = json.Unmarshal(q.Options, &rq.Options)
	}
	if len(q.Correct) > 0 {
		_ = json.Unmarshal(q.Correct, &rq.Correct)
	}
	return rq
}

func (s *PracticeService) runtimeQuestions(lessonID uint) ([]progress.Question, error) {
	stored, err := s.CourseRepo.ListQuestions(lessonID)
	if err != nil {
		return nil, err
	}
	qs := make([]progress.Question, 0, len(stored))
	for i := range stored {
		qs = append(qs, practiceToRuntimeQuestion(&stored[i]))
	}
	return qs, nil
}

// LoadAnswers returns the saved answer set, or an empty index-aligned
// set when nothing was submitted yet.
func (s *PracticeService) LoadAnswers(userID, lessonID uint) ([]progress.Answer, bool, error) {
	qs, err := s.runtimeQuestions(lessonID)
	if err != nil {
		return nil, false, err
	}

	sub, err := s.ProgressRepo.FindPracticeSubmission(userID, lessonID)
	if err != nil {
		collector := progress.NewCollector(qs, nil, progress.DefaultAttachmentPolicy())
		return collector.Answers(), false, nil
	}

	collector := progress.NewCollector(qs, practiceAnswersToRuntime(sub.Answers), progress.DefaultAttachmentPolicy())
	return collector.Answers(), true, nil
}

// StageAttachment validates an upload against the practice policy and
// stores it, returning the reference the client attaches to its
// answer. Oversized or off-type files never reach storage.
func (s *PracticeService) StageAttachment(ctx context.Context, userID uint, file *multipart.FileHeader) (*progress.FileRef, error) {
	ref := progress.FileRef{
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
	}
	if err := progress.DefaultAttachmentPolicy().Check(ref); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	objectName := fmt.Sprintf("practice/%d/%d_%s%s",
		userID, time.Now().UnixNano(), model.GenerateUUID()[:8], filepath.Ext(file.Filename))
	url, err := s.Storage.Upload(ctx, objectName, src, file.Size, ref.ContentType)
	if err != nil {
		return nil, err
	}
	ref.URL = url
	return &ref, nil
}

// Submit validates and persists the whole answer set at once. The
// submission is one-time: a second call is rejected, matching the
// page's disabled state after submit.
func (s *PracticeService) Submit(userID, lessonID uint, answers []progress.Answer) ([]progress.Answer, error) {
	if _, err := s.ProgressRepo.FindPracticeSubmission(userID, lessonID); err == nil {
		return nil, util.ErrAlreadySubmitted
	}

	qs, err := s.runtimeQuestions(lessonID)
	if err != nil {
		return nil, err
	}

	collector := progress.NewCollector(qs, answers, progress.DefaultAttachmentPolicy())
	if !collector.AllRequiredAnswered() {
		return nil, progress.ErrRequiredUnanswered
	}

	final := collector.Answers()
	stored := make([]model.PracticeAnswer, 0, len(final))
	for _, a := range final {
		row := model.PracticeAnswer{
			QuestionID: a.QuestionID,
			Text:       a.Text,
		}
		if selected, err := json.Marshal(a.Selected); err == nil {
			row.Selected = selected
		}
		if len(a.Files) > 0 {
			if files, err := json.Marshal(a.Files); err == nil {
				row.Attachments = files
			}
		}
		stored = append(stored, row)
	}

	now := time.Now()
	sub := &model.PracticeSubmission{
		LessonID:    lessonID,
		UserID:      userID,
		SubmittedAt: &now,
	}
	if err := s.ProgressRepo.CreatePracticeSubmission(sub, stored); err != nil {
		return nil, err
	}

	// The submission stands even if the signal write fails; the next
	// lesson open re-derives the signal from the stored submission.
	_, _ = s.ProgressSvc.NotifyQuestionsSubmitted(userID, lessonID)
	return final, nil
}
