package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/database"
	"github.com/examprep/examprep-backend/internal/handler"
	"github.com/examprep/examprep-backend/internal/logger"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/examprep/examprep-backend/internal/router"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/examprep/examprep-backend/internal/validator"
	"github.com/examprep/examprep-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamPrep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	labWorkRepo := repository.NewLabWorkRepository(pool)
	analysisRepo := repository.NewAnalysisResultRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(userRepo, studentRepo, cfg, rdb)
	studentService := service.NewStudentService(studentRepo)
	labWorkService := service.NewLabWorkService(labWorkRepo, analysisRepo, rdb)
	analyticsService := service.NewAnalyticsService(analysisRepo, sessionRepo, rdb, log)
	statisticsService := service.NewStatisticsService(studentRepo, sessionRepo, labWorkRepo)
	recommendationService := service.NewRecommendationService(analysisRepo, analyticsService)
	questionService := service.NewQuestionService(questionRepo)
	trainerService := service.NewTrainerService(sessionRepo, questionRepo, analyticsService, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, studentService),
		Student:     handler.NewStudentHandler(studentService),
		LabWork:     handler.NewLabWorkHandler(labWorkService),
		ExamTrainer: handler.NewExamTrainerHandler(trainerService),
		Analytics:   handler.NewAnalyticsHandler(analyticsService, statisticsService, recommendationService),
		Question:    handler.NewQuestionHandler(questionService),
		WS:          handler.NewWSHandler(trainerService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	analysisWorker := worker.NewAnalysisWorker(analysisRepo, studentRepo, rdb, log)
	go analysisWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
