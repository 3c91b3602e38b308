package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const masteryCacheTTL = 10 * time.Minute

// AnalyticsService derives per-topic mastery and progress views from the
// lab work analysis history. It is the trainer's MasteryProvider: the
// profile it computes drives question selection.
type AnalyticsService struct {
	results  *repository.AnalysisResultRepository
	sessions *repository.ExamSessionRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(results *repository.AnalysisResultRepository, sessions *repository.ExamSessionRepository, rdb *redis.Client, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		results:  results,
		sessions: sessions,
		rdb:      rdb,
		log:      log.With().Str("component", "analytics").Logger(),
	}
}

// ProfileForStudent returns the student's topic-mastery profile. Topics with
// no analysis history are simply absent; consumers treat them as weak.
// Cached in Redis and invalidated when new analysis results land.
func (s *AnalyticsService) ProfileForStudent(ctx context.Context, studentID int) (model.MasteryProfile, error) {
	cacheKey := config.CacheKey.StudentMasteryKey(studentID)

	if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var profile model.MasteryProfile
		if json.Unmarshal(cached, &profile) == nil {
			return profile, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Mastery cache read failed")
	}

	mastery, err := s.results.LatestMasteryByTopic(ctx, studentID)
	if err != nil {
		return nil, err
	}

	profile := model.MasteryProfile{}
	for _, m := range mastery {
		profile[m.Topic] = m.Level
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, payload, masteryCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Int("student_id", studentID).Msg("Mastery cache write failed")
		}
	}

	return profile, nil
}

// InvalidateProfile drops the cached mastery profile after new analysis
// results arrive.
func (s *AnalyticsService) InvalidateProfile(ctx context.Context, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentMasteryKey(studentID)).Err()
}

// TopicBreakdown returns the detailed per-topic mastery rows, including
// average correctness and the date of the latest analysis.
func (s *AnalyticsService) TopicBreakdown(ctx context.Context, studentID int) ([]repository.TopicMasteryRow, error) {
	rows, err := s.results.LatestMasteryByTopic(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []repository.TopicMasteryRow{}
	}
	return rows, nil
}

// ProgressPoint is one finished exam session on the progress timeline.
type ProgressPoint struct {
	SessionID      string               `json:"session_id"`
	FinishedAt     *time.Time           `json:"finished_at"`
	Score          float64              `json:"score"`
	ReadinessLevel model.ReadinessLevel `json:"readiness_level"`
}

// Progress returns the student's finished sessions as a score timeline.
func (s *AnalyticsService) Progress(ctx context.Context, studentID int) ([]ProgressPoint, error) {
	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	points := []ProgressPoint{}
	for _, sess := range sessions {
		if !sess.Status.Terminal() {
			continue
		}
		points = append(points, ProgressPoint{
			SessionID:      sess.ID.String(),
			FinishedAt:     sess.EndTime,
			Score:          sess.Score,
			ReadinessLevel: sess.ReadinessLevel,
		})
	}
	return points, nil
}

// CommonErrors returns the most recent recorded error payloads for a student.
func (s *AnalyticsService) CommonErrors(ctx context.Context, studentID int, limit int) ([]json.RawMessage, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	payloads, err := s.results.ListCommonErrors(ctx, studentID, limit)
	if err != nil {
		return nil, err
	}
	if payloads == nil {
		payloads = []json.RawMessage{}
	}
	return payloads, nil
}
