package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/repository"
	"photoschool_backend/internal/util"

	"gorm.io/gorm"
)

// AssignmentService handles hand-ins and grading. Assignment uploads
// use the extended policy that also admits plain text, unlike practice
// attachments.
type AssignmentService struct {
	Repo        *repository.AssignmentRepository
	ProgressSvc *ProgressService
	Storage     *StorageService
}

func NewAssignmentService(
	repo *repository.AssignmentRepository,
	progressSvc *ProgressService,
	storage *StorageService,
) *AssignmentService {
	return &AssignmentService{
		Repo:        repo,
		ProgressSvc: progressSvc,
		Storage:     storage,
	}
}

type AssignmentReq struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	MaxScore    int        `json:"maxScore"`
	DueAt       *time.Time `json:"dueAt"`
}

func (s *AssignmentService) Create(creatorID uint, req AssignmentReq) (*model.Assignment, error) {
	a := &model.Assignment{
		Title:       req.Title,
		Description: req.Description,
		MaxScore:    req.MaxScore,
		DueAt:       req.DueAt,
		CreatorID:   creatorID,
	}
	if a.MaxScore == 0 {
		a.MaxScore = 100
	}
	if err := s.Repo.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) Update(id uint, req AssignmentReq) (*model.Assignment, error) {
	a, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	a.Title = req.Title
	a.Description = req.Description
	if req.MaxScore > 0 {
		a.MaxScore = req.MaxScore
	}
	a.DueAt = req.DueAt

	if err := s.Repo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) Get(id uint) (*model.Assignment, error) {
	return s.Repo.FindByID(id)
}

// StageAttachment validates and stores one submission file.
func (s *AssignmentService) StageAttachment(ctx context.Context, userID uint, file *multipart.FileHeader) (*progress.FileRef, error) {
	ref := progress.FileRef{
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
	}
	if err := progress.AssignmentAttachmentPolicy().Check(ref); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	objectName := fmt.Sprintf("assignments/%d/%d_%s%s",
		userID, time.Now().UnixNano(), model.GenerateUUID()[:8], filepath.Ext(file.Filename))
	url, err := s.Storage.Upload(ctx, objectName, src, file.Size, ref.ContentType)
	if err != nil {
		return nil, err
	}
	ref.URL = url
	return &ref, nil
}

type SubmissionReq struct {
	Text  string             `json:"text"`
	Files []progress.FileRef `json:"files"`
}

// Submit records the hand-in and fires the assignment signal. A
// revision request leads to an update of the same row; the signal
// stays flipped either way.
func (s *AssignmentService) Submit(userID, assignmentID uint, req SubmissionReq) (*model.AssignmentSubmission, error) {
	if _, err := s.Repo.FindByID(assignmentID); err != nil {
		return nil, err
	}

	for _, f := range req.Files {
		if err := progress.AssignmentAttachmentPolicy().Check(f); err != nil {
			return nil, err
		}
	}

	attachments, _ := json.Marshal(req.Files)

	sub, err := s.Repo.FindSubmission(userID, assignmentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		sub = &model.AssignmentSubmission{
			AssignmentID: assignmentID,
			UserID:       userID,
			Text:         req.Text,
			Attachments:  attachments,
			Status:       model.SubmissionSubmitted,
			SubmittedAt:  time.Now(),
		}
		if err := s.Repo.CreateSubmission(sub); err != nil {
			return nil, err
		}
	} else {
		if sub.Status == model.SubmissionGraded {
			return nil, util.ErrAlreadySubmitted
		}
		sub.Text = req.Text
		sub.Attachments = attachments
		sub.Status = model.SubmissionSubmitted
		sub.SubmittedAt = time.Now()
		if err := s.Repo.UpdateSubmission(sub); err != nil {
			return nil, err
		}
	}

	s.ProgressSvc.NotifyAssignmentSubmitted(userID, assignmentID)
	return sub, nil
}

type GradeReq struct {
	Score           int    `json:"score"`
	Feedback        string `json:"feedback"`
	RequestRevision bool   `json:"requestRevision"`
}

// Grade records the verdict. Grading, including a revision request,
// never touches lesson completion.
func (s *AssignmentService) Grade(graderID uint, submissionID string, req GradeReq) (*model.AssignmentSubmission, error) {
	var sub model.AssignmentSubmission
	if err := s.Repo.DB.First(&sub, "id = ?", submissionID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	sub.Feedback = req.Feedback
	sub.GradedAt = &now
	sub.GraderID = &graderID
	if req.RequestRevision {
		sub.Status = model.SubmissionRevision
	} else {
		sub.Status = model.SubmissionGraded
		sub.Score = &req.Score
	}

	if err := s.Repo.UpdateSubmission(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *AssignmentService) GetSubmission(userID, assignmentID uint) (*model.AssignmentSubmission, error) {
	return s.Repo.FindSubmission(userID, assignmentID)
}

func (s *AssignmentService) ListSubmissions(assignmentID uint, page, limit int) ([]model.AssignmentSubmission, int64, error) {
	return s.Repo.ListSubmissions(assignmentID, page, limit)
}
