package controller

import (
	"strconv"

	"photoschool_backend/internal/service"
	"photoschool_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Content *service.ContentService
}

func NewCourseController(content *service.ContentService) *CourseController {
	return &CourseController{Content: content}
}

// CreateCourse godoc
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CourseReq true "course payload"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Content.CreateCourse(user.UserID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary Update course fields, including publish state
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "course ID"
// @Param body body service.CourseReq true "course payload"
// @Success 200 {object} util.Response
// @Router /api/teacher/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Content.UpdateCourse(ctx.Request.Context(), courseID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, course)
}

// CreateModule godoc
// @Summary Add a module to a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "course ID"
// @Param body body service.ModuleReq true "module payload"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses/{id}/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.ModuleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	m, err := c.Content.CreateModule(ctx.Request.Context(), courseID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, m)
}

// Enroll godoc
// @Summary Enroll the current user in a published course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "course ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("id"))
	if err := c.Content.Enroll(user.UserID, courseID); err != nil {
		if err == util.ErrPermissionDenied {
			util.Forbidden(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, gin.H{"enrolled": true})
}

// ListCourses godoc
// @Summary List published courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	courses, total, err := c.Content.ListCourses(page, limit)
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// GetCourse godoc
// @Summary Course tree with the student's lesson completions
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "course ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("id"))
	overview, err := c.Content.GetCourseOverview(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, overview)
}

// CreateLesson godoc
// @Summary Create a lesson inside a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "course ID"
// @Param body body service.LessonReq true "lesson payload"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses/{id}/lessons [post]
func (c *CourseController) CreateLesson(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.Content.CreateLesson(ctx.Request.Context(), courseID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, lesson)
}

// UploadLessonVideo godoc
// @Summary Upload a lesson's video file
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "lesson ID"
// @Param file formData file true "video file"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id}/video [post]
func (c *CourseController) UploadLessonVideo(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	lesson, err := c.Content.UploadLessonVideo(ctx.Request.Context(), lessonID, file)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, lesson)
}
