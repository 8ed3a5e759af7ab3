package app

import (
	"photoschool_backend/docs"
	"photoschool_backend/internal/config"
	"photoschool_backend/internal/middleware"
	"photoschool_backend/internal/model"

	"photoschool_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)
	rg.PUT("/me", c.auth.UpdateProfile)
	rg.GET("/me/activity", c.lesson.RecentActivity)

	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.POST("/courses/:id/enroll", c.course.Enroll)

	rg.GET("/lessons/:id", c.lesson.GetLesson)
	rg.POST("/lessons/:id/answers", c.lesson.SubmitAnswers)
	rg.POST("/lessons/attachments", c.lesson.UploadAttachment)
	rg.POST("/lessons/:id/video-progress", c.lesson.ReportVideoProgress)
	rg.POST("/lessons/:id/time-spent", c.lesson.ReportTimeSpent)
	rg.GET("/lessons/:id/progress", c.lesson.GetProgress)

	rg.GET("/tests/:id", c.test.GetAttempt)
	rg.POST("/tests/:id/attempt", c.test.StartAttempt)
	rg.PUT("/tests/:id/answers", c.test.UpdateAnswer)
	rg.POST("/tests/:id/attachments", c.test.UploadAttachment)
	rg.DELETE("/tests/:id/attachments", c.test.RemoveAttachment)
	rg.POST("/tests/:id/submit", c.test.SubmitAttempt)

	rg.GET("/assignments/:id", c.assignment.GetAssignment)
	rg.POST("/assignments/attachments", c.assignment.UploadAttachment)
	rg.POST("/assignments/:id/submit", c.assignment.Submit)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.POST("/courses/:id/modules", c.course.CreateModule)
		teacher.POST("/courses/:id/lessons", c.course.CreateLesson)
		teacher.POST("/lessons/:id/video", c.course.UploadLessonVideo)

		teacher.POST("/tests", c.test.CreateTest)
		teacher.PUT("/tests/:id", c.test.UpdateTest)
		teacher.DELETE("/tests/:id", c.test.DeleteTest)

		teacher.POST("/assignments", c.assignment.CreateAssignment)
		teacher.PUT("/assignments/:id", c.assignment.UpdateAssignment)
		teacher.GET("/assignments/:id/submissions", c.assignment.ListSubmissions)
		teacher.POST("/submissions/:id/grade", c.assignment.Grade)
	}
}
