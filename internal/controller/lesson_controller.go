package controller

import (
	"errors"
	"net/http"

	"photoschool_backend/internal/model"
	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/service"
	"photoschool_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// LessonController serves the lesson page: the payload, practice
// answers, video progress reports and the completion state.
type LessonController struct {
	Content  *service.ContentService
	Practice *service.PracticeService
	Progress *service.ProgressService
}

func NewLessonController(
	content *service.ContentService,
	practice *service.PracticeService,
	progressSvc *service.ProgressService,
) *LessonController {
	return &LessonController{
		Content:  content,
		Practice: practice,
		Progress: progressSvc,
	}
}

// GetLesson godoc
// @Summary Lesson payload: content, classified video, questions, saved answers, progress
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))

	if user.Role == model.Student {
		if err := c.Content.CheckEnrollment(user.UserID, lessonID); err != nil {
			if errors.Is(err, util.ErrNotEnrolled) {
				util.Forbidden(ctx)
				return
			}
			util.NotFound(ctx)
			return
		}
	}

	payload, err := c.Content.GetLessonPayload(ctx.Request.Context(), user.UserID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	// Opening the lesson evaluates completion once, so a lesson with
	// no interactive elements completes immediately.
	if payload.Submitted && !payload.Signals.QuestionsDone {
		// A submission whose signal write failed earlier is healed on
		// the next open.
		if row, err := c.Progress.NotifyQuestionsSubmitted(user.UserID, lessonID); err == nil {
			payload.Signals.QuestionsDone = row.QuestionsDone
			payload.Completed = row.Completed
		}
	} else if row, err := c.Progress.OpenLesson(user.UserID, lessonID); err == nil {
		payload.Completed = row.Completed
	}

	util.Success(ctx, payload)
}

// SubmitAnswersRequest carries the whole practice answer set.
// swagger:model SubmitAnswersRequest
type SubmitAnswersRequest struct {
	Answers []progress.Answer `json:"answers" binding:"required"`
}

// SubmitAnswers godoc
// @Summary Submit practice answers, one time per lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Param body body SubmitAnswersRequest true "answer set"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/lessons/{id}/answers [post]
func (c *LessonController) SubmitAnswers(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))

	var req SubmitAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answers, err := c.Practice.Submit(user.UserID, lessonID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Error(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, progress.ErrRequiredUnanswered):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"answers": answers})
}

// UploadAttachment godoc
// @Summary Stage a practice answer attachment
// @Tags lessons
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "attachment, max 5MB, jpeg/png/pdf/docx"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/lessons/attachments [post]
func (c *LessonController) UploadAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	ref, err := c.Practice.StageAttachment(ctx.Request.Context(), user.UserID, file)
	if err != nil {
		if errors.Is(err, progress.ErrFileTooLarge) || errors.Is(err, progress.ErrFileType) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, ref)
}

// VideoProgressRequest reports playback state. Exactly one of the
// fields applies per call.
// swagger:model VideoProgressRequest
type VideoProgressRequest struct {
	Position *float64 `json:"position"` // seconds, native player
	Ended    bool     `json:"ended"`
	Event    string   `json:"event"` // playing, paused, finished (embedded player)
}

// ReportVideoProgress godoc
// @Summary Report video playback progress
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Param body body VideoProgressRequest true "playback report"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/video-progress [post]
func (c *LessonController) ReportVideoProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))

	var req VideoProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var row interface{}
	var err error
	switch {
	case req.Event != "":
		row, err = c.Progress.ReportPlayerEvent(user.UserID, lessonID, progress.PlayerEvent(req.Event))
	case req.Ended:
		row, err = c.Progress.ReportVideoEnded(user.UserID, lessonID)
	case req.Position != nil:
		row, err = c.Progress.ReportVideoPosition(user.UserID, lessonID, *req.Position)
	default:
		util.BadRequest(ctx, "position, ended or event is required")
		return
	}

	if err != nil {
		if errors.Is(err, progress.ErrBadVideoURL) {
			util.BadRequest(ctx, err.Error())
			return
		}
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, row)
}

// TimeSpentRequest reports seconds of viewing time since the last
// report.
// swagger:model TimeSpentRequest
type TimeSpentRequest struct {
	Seconds int `json:"seconds" binding:"required,gt=0"`
}

// ReportTimeSpent godoc
// @Summary Report time spent on a lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Param body body TimeSpentRequest true "time report"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/time-spent [post]
func (c *LessonController) ReportTimeSpent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))

	var req TimeSpentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	row, err := c.Progress.ReportTimeSpent(user.UserID, lessonID, req.Seconds)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, row)
}

// RecentActivity godoc
// @Summary Latest learning-log entries for the student dashboard
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param limit query int false "max entries, default 20"
// @Success 200 {object} util.Response
// @Router /api/me/activity [get]
func (c *LessonController) RecentActivity(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))
	entries, err := c.Progress.RecentActivity(user.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}

// GetProgress godoc
// @Summary Lesson completion state
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/progress [get]
func (c *LessonController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))
	row, err := c.Progress.GetLessonProgress(user.UserID, lessonID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, row)
}
