package controller

import (
	"errors"
	"net/http"

	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/service"
	"photoschool_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Service *service.TestService
}

func NewTestController(svc *service.TestService) *TestController {
	return &TestController{Service: svc}
}

// CreateTest godoc
// @Summary Create a lesson test
// @Tags tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TestReq true "test payload"
// @Success 201 {object} util.Response
// @Router /api/teacher/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.CreateTest(user.UserID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, test)
}

// UpdateTest godoc
// @Summary Update a lesson test and its questions
// @Tags tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Param body body service.TestReq true "test payload"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.UpdateTest(ctx.Param("id"), req)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, test)
}

// DeleteTest godoc
// @Summary Delete a test with its questions and attempts
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	if err := c.Service.DeleteTest(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// StartAttempt godoc
// @Summary Start or resume the student's attempt
// @Description The clock runs from the first start; a reload resumes
// @Description with the remaining time, and a deadline already passed
// @Description finalizes the attempt before the detail is returned.
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/attempt [post]
func (c *TestController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.StartAttempt(user.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotPublished) {
			util.Error(ctx, http.StatusForbidden, err.Error())
			return
		}
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, detail)
}

// GetAttempt godoc
// @Summary Test detail with the attempt state and remaining time
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id} [get]
func (c *TestController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.StudentDetail(user.UserID, ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, detail)
}

// UpdateAnswer godoc
// @Summary Record one answer inside the running attempt
// @Tags tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Param body body service.AnswerUpdate true "answer mutation"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/tests/{id}/answers [put]
func (c *TestController) UpdateAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answers, err := c.Service.UpdateAnswer(user.UserID, ctx.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestAlreadySubmitted), errors.Is(err, progress.ErrAttemptCompleted):
			util.Error(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, progress.ErrUnknownQuestion), errors.Is(err, progress.ErrUnknownOption):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"answers": answers})
}

// UploadAttachment godoc
// @Summary Attach a file to an answer in the running attempt
// @Tags tests
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Param questionId formData int true "question ID"
// @Param file formData file true "attachment (jpeg/png/pdf/docx, max 5 MB)"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/tests/{id}/attachments [post]
func (c *TestController) UploadAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	questionID := util.MustParseUint(ctx.PostForm("questionId"))
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	answers, err := c.Service.AttachFile(ctx.Request.Context(), user.UserID, ctx.Param("id"), questionID, file)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrFileTooLarge), errors.Is(err, progress.ErrFileType),
			errors.Is(err, progress.ErrUnknownQuestion):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrTestAlreadySubmitted), errors.Is(err, progress.ErrAttemptCompleted):
			util.Error(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"answers": answers})
}

// AttachmentRemoval names one attachment by its question and position.
// swagger:model AttachmentRemoval
type AttachmentRemoval struct {
	QuestionID uint `json:"questionId" binding:"required"`
	FileIndex  *int `json:"fileIndex" binding:"required"`
}

// RemoveAttachment godoc
// @Summary Remove one attachment from an answer
// @Tags tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Param body body AttachmentRemoval true "attachment position"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/attachments [delete]
func (c *TestController) RemoveAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AttachmentRemoval
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answers, err := c.Service.RemoveAttachment(user.UserID, ctx.Param("id"), req.QuestionID, *req.FileIndex)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrUnknownQuestion), errors.Is(err, progress.ErrUnknownOption):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrTestAlreadySubmitted), errors.Is(err, progress.ErrAttemptCompleted):
			util.Error(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"answers": answers})
}

// SubmitAttempt godoc
// @Summary Submit the attempt for grading
// @Description Refused while required questions are unanswered. A
// @Description repeat submit returns the finished detail unchanged.
// @Tags tests
// @Produce json
// @Security BearerAuth
// @Param id path string true "test ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/tests/{id}/submit [post]
func (c *TestController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.SubmitAttempt(user.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrRequiredUnanswered):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, detail)
}
