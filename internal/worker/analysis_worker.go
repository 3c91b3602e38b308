package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AnalysisBatchSize    = 50
	AnalysisBatchTimeout = 2 * time.Second
	AnalysisPollTimeout  = 1 * time.Second
)

// AnalysisWorker drains finished analyses pushed by the external analysis
// engine and persists them in batches. After a successful flush it drops
// the affected students' cached mastery profiles and refreshes their
// average grades, so the next question draw sees fresh data.
type AnalysisWorker struct {
	results  *repository.AnalysisResultRepository
	students *repository.StudentRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAnalysisWorker creates a new AnalysisWorker.
func NewAnalysisWorker(results *repository.AnalysisResultRepository, students *repository.StudentRepository, rdb *redis.Client, log zerolog.Logger) *AnalysisWorker {
	return &AnalysisWorker{
		results:  results,
		students: students,
		rdb:      rdb,
		log:      log.With().Str("component", "analysis_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AnalysisWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnalysisWorker started")

	batch := make([]repository.FinishedAnalysis, 0, AnalysisBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AnalysisBatchSize || time.Since(lastFlush) >= AnalysisBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnalysisPollTimeout, config.WorkerKey.AnalysisResultsQueue()).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var f repository.FinishedAnalysis
			if err := json.Unmarshal([]byte(item[1]), &f); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, f)
		}
	}
}

// ----------------------------------------------------------------
// Batch persist wrapper
// ----------------------------------------------------------------

func (w *AnalysisWorker) flushSafe(ctx context.Context, batch []repository.FinishedAnalysis) {
	if len(batch) == 0 {
		return
	}

	if err := w.results.BulkStore(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk store failed, requeueing batch")

		for _, f := range batch {
			raw, _ := json.Marshal(f)
			w.rdb.RPush(ctx, config.WorkerKey.AnalysisResultsQueue(), raw)
		}
		return
	}

	w.log.Info().Int("count", len(batch)).Msg("Analysis batch persisted")

	w.refreshStudents(ctx, batch)
}

// refreshStudents invalidates cached mastery profiles and recalculates the
// average grade for every student touched by the batch.
func (w *AnalysisWorker) refreshStudents(ctx context.Context, batch []repository.FinishedAnalysis) {
	seen := map[int]struct{}{}
	pipe := w.rdb.Pipeline()

	for _, f := range batch {
		if _, ok := seen[f.StudentID]; ok {
			continue
		}
		seen[f.StudentID] = struct{}{}
		pipe.Del(ctx, config.CacheKey.StudentMasteryKey(f.StudentID))
	}
	_, _ = pipe.Exec(ctx)

	for studentID := range seen {
		if err := w.students.UpdateAverageGrade(ctx, studentID); err != nil {
			w.log.Error().Err(err).Int("student_id", studentID).Msg("Average grade refresh failed")
		}
	}
}
