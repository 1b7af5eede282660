package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/config"
	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
)

type HandlerManager struct {
	uploadHandler  *UploadHandler
	shareHandler   *ShareHandler
	courseHandler  *CourseHandler
	quizHandler    *QuizHandler
	userHandler    *UserHandler
	supportHandler *SupportHandler
	authMiddleware *CasdoorAuthMiddleware

	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, serviceManager.User())

	return &HandlerManager{
		uploadHandler:  NewUploadHandler(serviceManager.Upload(), serviceManager.Export(), logger),
		shareHandler:   NewShareHandler(serviceManager.Share(), logger),
		courseHandler:  NewCourseHandler(serviceManager.Course(), logger),
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger),
		userHandler:    NewUserHandler(serviceManager.User(), serviceManager.Dashboard(), logger),
		supportHandler: NewSupportHandler(serviceManager.Support(), logger),
		authMiddleware: authMiddleware,
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Share links resolve without authentication; the token is the only
	// credential.
	shared := router.Group("/shared")
	{
		shared.GET("/:token", hm.shareHandler.ResolveShare)
		shared.GET("/:token/download", hm.shareHandler.ResolveShareDownload)
	}

	// Support intake is open so signed-out visitors can reach us too.
	router.POST("/support", hm.supportHandler.SubmitMessage)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		uploads := v1.Group("/uploads")
		{
			uploads.POST("", hm.uploadHandler.CreateUpload)
			uploads.GET("", hm.uploadHandler.ListUploads)
			uploads.GET("/stats", hm.uploadHandler.GetUploadStats)
			uploads.GET("/:id", hm.uploadHandler.GetUpload)
			uploads.PUT("/:id", hm.uploadHandler.RenameUpload)
			uploads.PUT("/:id/status", hm.uploadHandler.UpdateUploadStatus)
			uploads.DELETE("/:id", hm.uploadHandler.DeleteUpload)
			uploads.GET("/:id/download", hm.uploadHandler.DownloadUpload)
			uploads.GET("/:id/export", hm.uploadHandler.ExportUpload)

			// Anomaly annotations
			uploads.GET("/:id/anomalies", hm.uploadHandler.ListAnomalies)
			uploads.POST("/:id/anomalies", hm.uploadHandler.AddAnomaly)
			uploads.PUT("/:id/anomalies/:anomaly_id", hm.uploadHandler.UpdateAnomalyAnalysis)
			uploads.DELETE("/:id/anomalies/:anomaly_id", hm.uploadHandler.DeleteAnomaly)

			// Share grant management
			uploads.POST("/:id/share", hm.shareHandler.CreateShare)
			uploads.GET("/:id/shares", hm.shareHandler.ListSharesForUpload)
		}

		v1.DELETE("/shares/:id", hm.shareHandler.RevokeShare)

		courses := v1.Group("/courses")
		{
			courses.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.courseHandler.CreateCourse)
			courses.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.courseHandler.DeleteCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("/:id/enroll", hm.courseHandler.Enroll)
			courses.PUT("/:id/progress", hm.courseHandler.UpdateProgress)

			courses.POST("/:id/quizzes", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.quizHandler.CreateQuiz)
			courses.GET("/:id/quizzes", hm.quizHandler.ListQuizzesByCourse)
		}

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/results", hm.quizHandler.SubmitQuizResult)
		}

		me := v1.Group("/me")
		{
			me.GET("", hm.userHandler.GetMe)
			me.PUT("", hm.userHandler.UpdateMe)
			me.GET("/stats", hm.userHandler.GetMyStats)
			me.GET("/enrollments", hm.courseHandler.ListMyEnrollments)
			me.GET("/shares", hm.shareHandler.ListMyShares)
			me.GET("/quiz-results", hm.quizHandler.ListMyQuizResults)
		}

		admin := v1.Group("")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/users", hm.userHandler.ListUsers)
			admin.POST("/users/:id/approve", hm.userHandler.ApproveUser)
			admin.GET("/admin/stats", hm.userHandler.GetAdminStats)
			admin.GET("/support", hm.supportHandler.ListMessages)
			admin.PUT("/support/:id/resolve", hm.supportHandler.ResolveMessage)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":  "healthy",
			"service": "lms-service",
		}
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["error"] = err.Error()
		}
		c.JSON(status, body)
	})
}
