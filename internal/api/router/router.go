package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/api/handler"
	"github.com/limaJavier/smartclassroom/internal/api/middleware"
	"github.com/limaJavier/smartclassroom/internal/config"
	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
)

// Setup builds the gin engine with every route of the API and the upload relay
func Setup(cfg *config.Config, h *handler.Handler, users service.UserService, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	//** Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	//** Upload relay
	r.POST("/upload", h.Upload.Upload)
	r.Static("/uploads", cfg.Upload.Dir)

	//** API v1
	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)

		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(users, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			admin := middleware.RequireRole(domain.RoleAdmin)
			teacher := middleware.RequireRole(domain.RoleTeacher)

			usersGroup := authorized.Group("/users", admin)
			{
				usersGroup.GET("", h.User.ListUsers)
				usersGroup.POST("", h.User.CreateUser)
				usersGroup.PUT("/:id", h.User.UpdateUser)
				usersGroup.DELETE("/:id", h.User.DeleteUser)
			}

			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.POST("", teacher, h.Subject.AddSubject)
				subjects.POST("/import", teacher, h.Subject.ImportSubjects)
				subjects.DELETE("/:code", teacher, h.Subject.DeleteSubject)
			}

			timetable := authorized.Group("/timetable")
			{
				timetable.GET("", h.Timetable.GetTimetable)
				timetable.GET("/balance", h.Timetable.Balance)
				timetable.GET("/export.xlsx", h.Timetable.ExportXLSX)
				timetable.GET("/export.ics", h.Timetable.ExportICS)
				timetable.POST("/generate", teacher, h.Timetable.Generate)
				timetable.POST("/classes", teacher, h.Timetable.AddClass)
				timetable.POST("/import", teacher, h.Timetable.ImportAndGenerate)
			}

			attendance := authorized.Group("/attendance", teacher)
			{
				attendance.GET("", h.Attendance.GetSheet)
				attendance.PUT("", h.Attendance.SaveSheet)
				attendance.GET("/history", h.Attendance.History)
				attendance.GET("/warnings", h.Attendance.Warnings)
			}

			assignments := authorized.Group("/assignments")
			{
				assignments.GET("", h.Assignment.ListAssignments)
				assignments.POST("", teacher, h.Assignment.AddAssignment)
				assignments.GET("/:id", h.Assignment.GetAssignment)
				assignments.POST("/:id/submissions", h.Assignment.Submit)
				assignments.GET("/:id/submissions", teacher, h.Assignment.ListSubmissions)
			}
		}
	}

	return r
}
