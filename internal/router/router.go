package router

import (
	"net/http"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/handler"
	"github.com/examprep/examprep-backend/internal/middleware"
	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Student     *handler.StudentHandler
	LabWork     *handler.LabWorkHandler
	ExamTrainer *handler.ExamTrainerHandler
	Analytics   *handler.AnalyticsHandler
	Question    *handler.QuestionHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. API Group (JWT + Single Device) ────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		// Student profiles
		api.GET("/students", handlers.Student.ListStudents)
		api.POST("/students", handlers.Student.CreateStudent)
		api.GET("/students/:id", handlers.Student.GetStudent)
		api.PATCH("/students/:id", handlers.Student.UpdateStudent)
		api.DELETE("/students/:id", handlers.Student.DeleteStudent)
		api.POST("/students/:id/lab-works", handlers.LabWork.CreateLabWork)

		// Lab works
		api.GET("/lab-works", handlers.LabWork.ListLabWorks)
		api.GET("/lab-works/:id", handlers.LabWork.GetLabWork)
		api.POST("/lab-works/:id/submit", handlers.LabWork.SubmitLabWork)
		api.GET("/lab-works/:id/results", handlers.LabWork.GetLabWorkResults)

		// Exam trainer
		api.POST("/exam-trainer/sessions", handlers.ExamTrainer.StartSession)
		api.GET("/exam-trainer/sessions/:session_id", handlers.ExamTrainer.GetSession)
		api.POST("/exam-trainer/sessions/:session_id/answers", handlers.ExamTrainer.SubmitAnswer)
		api.POST("/exam-trainer/sessions/:session_id/finish", handlers.ExamTrainer.FinishSession)
		api.GET("/exam-trainer/questions/generate", handlers.ExamTrainer.GenerateQuestions)

		// Question bank management
		api.GET("/questions", handlers.Question.ListQuestions)
		api.POST("/questions", handlers.Question.CreateQuestion)

		// Analytics
		api.GET("/analytics/students/:id/mastery", handlers.Analytics.GetMastery)
		api.GET("/analytics/students/:id/progress", handlers.Analytics.GetProgress)
		api.GET("/analytics/students/:id/errors", handlers.Analytics.GetCommonErrors)

		// Statistics
		api.GET("/statistics/students/:id", handlers.Analytics.GetStatistics)
		api.GET("/statistics/students/:id/sessions", handlers.Analytics.GetSessionHistory)

		// Recommendations
		api.GET("/recommendations/students/:id", handlers.Analytics.GetRecommendations)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exam-trainer/sessions/:session_id/clock", handlers.WS.SessionClockStream)
	}

	return router
}
