package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"sync"
	"time"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/repository"
	"photoschool_backend/internal/util"
	"photoschool_backend/pkg/logger"
	"photoschool_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService runs timed lesson tests. Every in-progress attempt owns
// an AttemptController registered here; the controller's countdown
// auto-submits on expiry even if the student never comes back, and a
// background sweep catches attempts orphaned by a restart.
type TestService struct {
	Repo        *repository.TestRepository
	CourseRepo  *repository.CourseRepository
	LogRepo     *repository.LearningLogRepository
	ProgressSvc *ProgressService
	Storage     *StorageService

	mu      sync.Mutex
	running map[string]*progress.AttemptController // by attempt ID
}

func NewTestService(
	repo *repository.TestRepository,
	courseRepo *repository.CourseRepository,
	logRepo *repository.LearningLogRepository,
	progressSvc *ProgressService,
	storage *StorageService,
) *TestService {
	return &TestService{
		Repo:        repo,
		CourseRepo:  courseRepo,
		LogRepo:     logRepo,
		ProgressSvc: progressSvc,
		Storage:     storage,
		running:     make(map[string]*progress.AttemptController),
	}
}

type TestQuestionReq struct {
	ID           uint     `json:"id"`
	QuestionType string   `json:"questionType" binding:"required"`
	Content      string   `json:"content" binding:"required"`
	Options      []string `json:"options"`
	Correct      []int    `json:"correct"`
	Required     bool     `json:"required"`
	Points       int      `json:"points"`
	Order        int      `json:"order"`
	Explanation  string   `json:"explanation"`
}

type TestReq struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	TimeLimit   *int               `json:"timeLimit"`
	PassScore   *int               `json:"passScore"`
	IsPublished *bool              `json:"isPublished"`
	Questions   *[]TestQuestionReq `json:"questions"`
}

func (s *TestService) CreateTest(creatorID uint, req TestReq) (*model.LessonTest, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, errors.New("title is required")
	}

	test := &model.LessonTest{
		Title:     *req.Title,
		CreatorID: creatorID,
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.PassScore != nil {
		test.PassScore = *req.PassScore
	}
	if req.IsPublished != nil && *req.IsPublished {
		now := time.Now()
		test.IsPublished = true
		test.PublishedAt = &now
	}

	if err := s.Repo.CreateTest(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		for _, qReq := range *req.Questions {
			q := questionFromReq(test.ID, qReq)
			if err := s.Repo.CreateQuestion(q); err != nil {
				return nil, err
			}
		}
	}

	return test, nil
}

func questionFromReq(testID string, req TestQuestionReq) *model.TestQuestion {
	q := &model.TestQuestion{
		TestID:       testID,
		QuestionType: req.QuestionType,
		Content:      req.Content,
		Required:     req.Required,
		Points:       req.Points,
		Order:        req.Order,
		Explanation:  req.Explanation,
	}
	if len(req.Options) > 0 {
		q.Options, _ = json.Marshal(req.Options)
	}
	if len(req.Correct) > 0 {
		q.Correct, _ = json.Marshal(req.Correct)
	}
	return q
}

func (s *TestService) UpdateTest(testID string, req TestReq) (*model.LessonTest, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.PassScore != nil {
		test.PassScore = *req.PassScore
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !test.IsPublished {
			now := time.Now()
			test.PublishedAt = &now
		}
		test.IsPublished = *req.IsPublished
	}

	if err := s.Repo.UpdateTest(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		existingQs, _ := s.Repo.ListQuestions(testID)
		existingMap := make(map[uint]*model.TestQuestion)
		for i := range existingQs {
			existingMap[existingQs[i].ID] = &existingQs[i]
		}

		keep := make(map[uint]bool)
		for _, qReq := range *req.Questions {
			if qReq.ID != 0 {
				if q, ok := existingMap[qReq.ID]; ok {
					updated := questionFromReq(testID, qReq)
					updated.BaseModel = q.BaseModel
					s.Repo.UpdateQuestion(updated)
					keep[q.ID] = true
				}
			} else {
				s.Repo.CreateQuestion(questionFromReq(testID, qReq))
			}
		}

		for id := range existingMap {
			if !keep[id] {
				s.Repo.DeleteQuestion(id)
			}
		}
	}

	return test, nil
}

func (s *TestService) DeleteTest(testID string) error {
	return s.Repo.DeleteTest(testID)
}

func testToRuntimeQuestion(q *model.TestQuestion) progress.Question {
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

func (s *TestService) runtimeQuestions(testID string) ([]progress.Question, error) {
	stored, err := s.Repo.ListQuestions(testID)
	if err != nil {
		return nil, err
	}
	qs := make([]progress.Question, 0, len(stored))
	for i := range stored {
		qs = append(qs, testToRuntimeQuestion(&stored[i]))
	}
	return qs, nil
}

// gradeAnswers applies the all-or-nothing key comparison: a choice
// answer earns the question's points only when the selected set equals
// the key set exactly. Open questions are recorded ungraded.
func gradeAnswers(questions []progress.Question, answers []progress.Answer) (int, []model.TestAttemptAnswer) {
	byID := make(map[uint]progress.Answer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}

	total := 0
	rows := make([]model.TestAttemptAnswer, 0, len(questions))
	for _, q := range questions {
		a := byID[q.ID]
		row := model.TestAttemptAnswer{
			QuestionID: q.ID,
			Text:       a.Text,
		}
		if selected, err := json.Marshal(a.Selected); err == nil {
			row.Selected = selected
		}
		if len(a.Files) > 0 {
			if files, err := json.Marshal(a.Files); err == nil {
				row.Files = files
			}
		}

		if (q.Kind == progress.KindSingleChoice || q.Kind == progress.KindMultipleChoice) && len(q.Correct) > 0 {
			correct := progress.EqualOptionSets(a.Selected, q.Correct)
			row.IsCorrect = &correct
			if correct {
				row.Score = q.Points
				total += q.Points
			}
		}
		rows = append(rows, row)
	}
	return total, rows
}

// StartAttempt opens (or resumes) the student's attempt. An attempt
// found past its deadline is finalized right here before the detail is
// returned, so the student sees the expired result instead of a
// negative clock.
func (s *TestService) StartAttempt(userID uint, testID string) (*StudentTestDetail, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	attempt, err := s.Repo.FindAttemptByUserAndTest(userID, testID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		attempt = &model.TestAttempt{
			TestID:    testID,
			UserID:    userID,
			Status:    model.AttemptInProgress,
			StartedAt: time.Now(),
		}
		if err := s.Repo.CreateAttempt(attempt); err != nil {
			return nil, err
		}
	}

	if attempt.Status == model.AttemptInProgress {
		if err := s.ensureController(userID, test, attempt); err != nil {
			return nil, err
		}
	}

	return s.StudentDetail(userID, testID)
}

// ensureController registers a controller for the attempt, restoring
// saved answers. Starting a controller for an attempt already past its
// deadline finalizes it immediately through the expiry path.
func (s *TestService) ensureController(userID uint, test *model.LessonTest, attempt *model.TestAttempt) error {
	s.mu.Lock()
	if _, ok := s.running[attempt.ID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	questions, err := s.runtimeQuestions(test.ID)
	if err != nil {
		return err
	}

	saved, _ := s.Repo.ListAttemptAnswers(attempt.ID)
	existing := make([]progress.Answer, 0, len(saved))
	for _, row := range saved {
		a := progress.Answer{QuestionID: row.QuestionID, Text: row.Text, Selected: []int{}}
		if len(row.Selected) > 0 {
			_ = json.Unmarshal(row.Selected, &a.Selected)
		}
		if len(row.Files) > 0 {
			_ = json.Unmarshal(row.Files, &a.Files)
		}
		existing = append(existing, a)
	}

	attemptID := attempt.ID
	ctrl := progress.NewAttemptController(progress.AttemptConfig{
		TestID:           test.ID,
		TimeLimitMinutes: test.TimeLimit,
		Questions:        questions,
		Existing:         existing,
		OnCompleted: func(res progress.AttemptResult) {
			s.onAttemptDone(userID, attemptID, res)
		},
	})

	// A concurrent caller may have registered its controller while the
	// answers were loading. Only the registered controller is started;
	// the loser is discarded before it owns a countdown.
	if !s.registerController(attempt.ID, ctrl) {
		return nil
	}

	if err := ctrl.Start(attempt.StartedAt); err != nil {
		s.dropController(attempt.ID)
		return err
	}
	return nil
}

// registerController installs the controller for the attempt unless
// one is already registered. At most one controller per attempt may
// ever run.
func (s *TestService) registerController(attemptID string, ctrl *progress.AttemptController) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[attemptID]; ok {
		return false
	}
	s.running[attemptID] = ctrl
	return true
}

func (s *TestService) dropController(attemptID string) {
	s.mu.Lock()
	delete(s.running, attemptID)
	s.mu.Unlock()
}

func (s *TestService) controller(userID uint, testID string) (*progress.AttemptController, *model.TestAttempt, error) {
	attempt, err := s.Repo.FindAttemptByUserAndTest(userID, testID)
	if err != nil {
		return nil, nil, util.ErrAttemptNotFound
	}
	if attempt.Status == model.AttemptCompleted {
		return nil, attempt, util.ErrTestAlreadySubmitted
	}

	s.mu.Lock()
	ctrl, ok := s.running[attempt.ID]
	s.mu.Unlock()
	if !ok {
		test, err := s.Repo.FindTestByID(testID)
		if err != nil {
			return nil, nil, err
		}
		if err := s.ensureController(userID, test, attempt); err != nil {
			return nil, nil, err
		}
		s.mu.Lock()
		ctrl, ok = s.running[attempt.ID]
		s.mu.Unlock()
		if !ok {
			// The controller expired during Start and already
			// finalized the attempt.
			return nil, attempt, util.ErrTestAlreadySubmitted
		}
	}
	return ctrl, attempt, nil
}

// onAttemptDone is the single completion path, reached by manual
// submit, countdown expiry and the restart sweep alike.
func (s *TestService) onAttemptDone(userID uint, attemptID string, res progress.AttemptResult) {
	s.dropController(attemptID)

	attempt, err := s.Repo.FindAttemptByID(attemptID)
	if err != nil {
		logger.Log.Error("finalize attempt: load failed",
			zap.String("attemptID", attemptID), zap.Error(err))
		return
	}
	if attempt.Status == model.AttemptCompleted {
		return
	}

	test, err := s.Repo.FindTestByID(attempt.TestID)
	if err != nil {
		logger.Log.Error("finalize attempt: test load failed",
			zap.String("attemptID", attemptID), zap.Error(err))
		return
	}
	questions, err := s.runtimeQuestions(attempt.TestID)
	if err != nil {
		logger.Log.Error("finalize attempt: questions load failed",
			zap.String("attemptID", attemptID), zap.Error(err))
		return
	}

	score, rows := gradeAnswers(questions, res.Answers)

	now := res.CompletedAt
	attempt.Status = model.AttemptCompleted
	attempt.Score = score
	attempt.Passed = score >= test.PassScore
	attempt.Expired = res.Expired
	attempt.CompletedAt = &now
	attempt.TimeSpent = res.TimeSpentMinutes

	if err := s.Repo.CompleteAttempt(attempt, rows); err != nil {
		logger.Log.Error("finalize attempt: write failed",
			zap.String("attemptID", attemptID), zap.Error(err))
		return
	}

	outcome := "submitted"
	if res.Expired {
		outcome = "expired"
	}
	monitoring.TestAttemptsFinished.WithLabelValues(outcome).Inc()

	_ = s.LogRepo.Create(&model.LearningLog{
		UserID:   userID,
		Activity: "test_completed",
		Content:  "test " + test.Title + " scored",
		Score:    score,
	})

	s.ProgressSvc.NotifyTestCompleted(userID, attempt.TestID)
}

// AnswerUpdate mutates one answer inside a running attempt.
type AnswerUpdate struct {
	QuestionID  uint    `json:"questionId" binding:"required"`
	Text        *string `json:"text"`
	ToggleIndex *int    `json:"toggleIndex"`
}

func (s *TestService) UpdateAnswer(userID uint, testID string, upd AnswerUpdate) ([]progress.Answer, error) {
	ctrl, attempt, err := s.controller(userID, testID)
	if err != nil {
		return nil, err
	}

	questions, err := s.runtimeQuestions(testID)
	if err != nil {
		return nil, err
	}
	var kind progress.QuestionKind
	for _, q := range questions {
		if q.ID == upd.QuestionID {
			kind = q.Kind
			break
		}
	}

	if upd.Text != nil {
		if err := ctrl.SetText(upd.QuestionID, *upd.Text); err != nil {
			return nil, err
		}
	}
	if upd.ToggleIndex != nil {
		allowMultiple := kind == progress.KindMultipleChoice
		if err := ctrl.ToggleOption(upd.QuestionID, *upd.ToggleIndex, allowMultiple); err != nil {
			return nil, err
		}
	}

	answers := ctrl.Answers()
	s.saveDraft(ctrl, attempt.ID, answers)
	return answers, nil
}

// saveDraft persists the in-flight answer set. Once the controller
// left Running the graded rows are already the record of truth, so a
// late draft is dropped here; the repository repeats the status check
// under a row lock for the write that slips past this one.
func (s *TestService) saveDraft(ctrl *progress.AttemptController, attemptID string, answers []progress.Answer) {
	if ctrl.State() != progress.StateRunning {
		return
	}
	rows := make([]model.TestAttemptAnswer, 0, len(answers))
	for _, a := range answers {
		row := model.TestAttemptAnswer{QuestionID: a.QuestionID, Text: a.Text}
		if selected, err := json.Marshal(a.Selected); err == nil {
			row.Selected = selected
		}
		if len(a.Files) > 0 {
			if files, err := json.Marshal(a.Files); err == nil {
				row.Files = files
			}
		}
		rows = append(rows, row)
	}
	if err := s.Repo.ReplaceAnswers(attemptID, rows); err != nil {
		logger.Log.Warn("draft save failed",
			zap.String("attemptID", attemptID), zap.Error(err))
	}
}

// AttachFile validates, uploads and attaches one file to an answer in
// a running attempt. The policy check runs before the upload so a
// rejected file never reaches storage.
func (s *TestService) AttachFile(ctx context.Context, userID uint, testID string, questionID uint, file *multipart.FileHeader) ([]progress.Answer, error) {
	ctrl, attempt, err := s.controller(userID, testID)
	if err != nil {
		return nil, err
	}

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

	objectName := fmt.Sprintf("tests/%d/%d_%s%s",
		userID, time.Now().UnixNano(), model.GenerateUUID()[:8], filepath.Ext(file.Filename))
	url, err := s.Storage.Upload(ctx, objectName, src, file.Size, ref.ContentType)
	if err != nil {
		return nil, err
	}
	ref.URL = url

	if _, rejected, err := ctrl.AttachFiles(questionID, []progress.FileRef{ref}); err != nil {
		return nil, err
	} else if len(rejected) > 0 {
		return nil, rejected[0].Reason
	}

	answers := ctrl.Answers()
	s.saveDraft(ctrl, attempt.ID, answers)
	return answers, nil
}

// RemoveAttachment drops one attachment by position. The stored object
// stays in place; attachment history is not rewritten.
func (s *TestService) RemoveAttachment(userID uint, testID string, questionID uint, fileIndex int) ([]progress.Answer, error) {
	ctrl, attempt, err := s.controller(userID, testID)
	if err != nil {
		return nil, err
	}
	if err := ctrl.RemoveFile(questionID, fileIndex); err != nil {
		return nil, err
	}

	answers := ctrl.Answers()
	s.saveDraft(ctrl, attempt.ID, answers)
	return answers, nil
}

// SubmitAttempt is the manual submit. It is refused while required
// questions are missing; the expiry path has no such gate.
func (s *TestService) SubmitAttempt(userID uint, testID string) (*StudentTestDetail, error) {
	ctrl, _, err := s.controller(userID, testID)
	if err != nil {
		if errors.Is(err, util.ErrTestAlreadySubmitted) {
			// Already finished: return the detail, not an error.
			return s.StudentDetail(userID, testID)
		}
		return nil, err
	}

	if err := ctrl.Submit(); err != nil {
		return nil, err
	}
	return s.StudentDetail(userID, testID)
}

// StudentTestQuestion is a question as the student sees it. The key
// and the verdict appear only after completion.
type StudentTestQuestion struct {
	ID           uint               `json:"id"`
	QuestionType string             `json:"questionType"`
	Content      string             `json:"content"`
	Options      []string           `json:"options,omitempty"`
	Required     bool               `json:"required"`
	Points       int                `json:"points"`
	Order        int                `json:"order"`
	IsCorrect    *bool              `json:"isCorrect,omitempty"`
	Text         *string            `json:"text,omitempty"`
	Selected     []int              `json:"selected,omitempty"`
	Files        []progress.FileRef `json:"files,omitempty"`
	Correct      []int              `json:"correct,omitempty"`
	Explanation  *string            `json:"explanation,omitempty"`
}

type StudentTestDetail struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	TimeLimit     int                   `json:"timeLimit"` // Minutes
	QuestionCount int                   `json:"questionCount"`
	Status        string                `json:"status"`
	StartedAt     *time.Time            `json:"startedAt"`
	RemainingTime int                   `json:"remainingTime"` // Seconds
	Score         *int                  `json:"score,omitempty"`
	Passed        *bool                 `json:"passed,omitempty"`
	Expired       bool                  `json:"expired"`
	Questions     []StudentTestQuestion `json:"questions"`
}

// StudentDetail builds the test page payload. The remaining time is
// always derived from the stored start time, so a reload never resets
// the clock.
func (s *TestService) StudentDetail(userID uint, testID string) (*StudentTestDetail, error) {
	test, err := s.Repo.FindTestByID(testID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	stored, err := s.Repo.ListQuestions(testID)
	if err != nil {
		return nil, err
	}

	detail := &StudentTestDetail{
		ID:            test.ID,
		Title:         test.Title,
		Description:   test.Description,
		TimeLimit:     test.TimeLimit,
		QuestionCount: len(stored),
		Status:        model.AttemptPending,
		RemainingTime: test.TimeLimit * 60,
	}

	attempt, err := s.Repo.FindAttemptByUserAndTest(userID, testID)
	var answers []model.TestAttemptAnswer
	if err == nil {
		detail.Status = attempt.Status
		detail.StartedAt = &attempt.StartedAt

		switch attempt.Status {
		case model.AttemptInProgress:
			elapsed := int(time.Since(attempt.StartedAt).Seconds())
			detail.RemainingTime = test.TimeLimit*60 - elapsed
			if detail.RemainingTime < 0 {
				detail.RemainingTime = 0
			}
			answers, _ = s.Repo.ListAttemptAnswers(attempt.ID)
		case model.AttemptCompleted:
			detail.RemainingTime = 0
			detail.Score = &attempt.Score
			detail.Passed = &attempt.Passed
			detail.Expired = attempt.Expired
			answers, _ = s.Repo.ListAttemptAnswers(attempt.ID)
		}
	}

	ansMap := make(map[uint]model.TestAttemptAnswer, len(answers))
	for _, a := range answers {
		ansMap[a.QuestionID] = a
	}

	completed := detail.Status == model.AttemptCompleted
	detail.Questions = make([]StudentTestQuestion, 0, len(stored))
	for i := range stored {
		q := &stored[i]
		sq := StudentTestQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Required:     q.Required,
			Points:       q.Points,
			Order:        q.Order,
		}
		if len(q.Options) > 0 {
			_ = json.Unmarshal(q.Options, &sq.Options)
		}

		if a, ok := ansMap[q.ID]; ok {
			text := a.Text
			sq.Text = &text
			if len(a.Selected) > 0 {
				_ = json.Unmarshal(a.Selected, &sq.Selected)
			}
			if len(a.Files) > 0 {
				_ = json.Unmarshal(a.Files, &sq.Files)
			}
			if completed {
				sq.IsCorrect = a.IsCorrect
			}
		}
		if completed {
			if len(q.Correct) > 0 {
				_ = json.Unmarshal(q.Correct, &sq.Correct)
			}
			if q.Explanation != "" {
				explanation := q.Explanation
				sq.Explanation = &explanation
			}
		}

		detail.Questions = append(detail.Questions, sq)
	}

	return detail, nil
}

// SweepExpired finalizes in-progress attempts whose deadline passed
// without a live controller, which happens after a process restart.
// Attempts with a live controller expire through their own countdown.
func (s *TestService) SweepExpired() {
	attempts, err := s.Repo.ListExpiredRunning()
	if err != nil {
		logger.Log.Error("expired attempt sweep failed", zap.Error(err))
		return
	}

	for i := range attempts {
		attempt := &attempts[i]

		s.mu.Lock()
		_, live := s.running[attempt.ID]
		s.mu.Unlock()
		if live {
			continue
		}

		test, err := s.Repo.FindTestByID(attempt.TestID)
		if err != nil {
			continue
		}
		// Start resumes past the deadline and finalizes through the
		// expiry path, reusing whatever answers were drafted.
		if err := s.ensureController(attempt.UserID, test, attempt); err != nil {
			logger.Log.Warn("sweep: controller start failed",
				zap.String("attemptID", attempt.ID), zap.Error(err))
		}
	}
}
