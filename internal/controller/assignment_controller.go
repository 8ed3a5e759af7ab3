package controller

import (
	"errors"
	"strconv"

	"photoschool_backend/internal/progress"
	"photoschool_backend/internal/service"
	"photoschool_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	Service *service.AssignmentService
}

func NewAssignmentController(svc *service.AssignmentService) *AssignmentController {
	return &AssignmentController{Service: svc}
}

// CreateAssignment godoc
// @Summary Create an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AssignmentReq true "assignment payload"
// @Success 201 {object} util.Response
// @Router /api/teacher/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AssignmentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Create(user.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, a)
}

// UpdateAssignment godoc
// @Summary Update an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "assignment ID"
// @Param body body service.AssignmentReq true "assignment payload"
// @Success 200 {object} util.Response
// @Router /api/teacher/assignments/{id} [put]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	var req service.AssignmentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Update(util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, a)
}

// GetAssignment godoc
// @Summary Assignment detail with the student's submission
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assignment ID"
// @Success 200 {object} util.Response
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))
	a, err := c.Service.Get(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	resp := gin.H{"assignment": a}
	if sub, err := c.Service.GetSubmission(user.UserID, id); err == nil {
		resp["submission"] = sub
	}

	util.Success(ctx, resp)
}

// UploadAttachment godoc
// @Summary Stage a submission file
// @Tags assignments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "attachment, max 5MB, jpeg/png/pdf/docx/txt"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/assignments/attachments [post]
func (c *AssignmentController) UploadAttachment(ctx *gin.Context) {
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

	ref, err := c.Service.StageAttachment(ctx.Request.Context(), user.UserID, file)
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

// Submit godoc
// @Summary Hand in the assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "assignment ID"
// @Param body body service.SubmissionReq true "submission payload"
// @Success 200 {object} util.Response
// @Router /api/assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmissionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.Submit(user.UserID, util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		if errors.Is(err, progress.ErrFileTooLarge) || errors.Is(err, progress.ErrFileType) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, sub)
}

// Grade godoc
// @Summary Grade a submission or request a revision
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission ID"
// @Param body body service.GradeReq true "verdict"
// @Success 200 {object} util.Response
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.Grade(user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, sub)
}

// ListSubmissions godoc
// @Summary List submissions for grading
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "assignment ID"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /api/teacher/assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	subs, total, err := c.Service.ListSubmissions(util.MustParseUint(ctx.Param("id")), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: subs, Total: total, Page: page, Limit: limit})
}
