package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisResultRepository handles analysis result data access.
type AnalysisResultRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisResultRepository creates a new AnalysisResultRepository.
func NewAnalysisResultRepository(pool *pgxpool.Pool) *AnalysisResultRepository {
	return &AnalysisResultRepository{pool: pool}
}

// FinishedAnalysis is one finished result drained from the analysis queue.
type FinishedAnalysis struct {
	LabWorkID         int             `json:"lab_work_id"`
	StudentID         int             `json:"student_id"`
	CorrectnessScore  float64         `json:"correctness_score"`
	TopicMasteryLevel string          `json:"topic_mastery_level"`
	CommonErrors      json.RawMessage `json:"common_errors"`
	Suggestions       json.RawMessage `json:"suggestions"`
}

// BulkStore inserts a batch of finished analyses and flips the matching
// lab works to checked with the analysis score. Single transaction so a
// partial batch never leaves a checked lab work without its result row.
func (r *AnalysisResultRepository) BulkStore(ctx context.Context, batch []FinishedAnalysis) error {
	if len(batch) == 0 {
		return nil
	}

	n := len(batch)
	labWorkIDs := make([]int, 0, n)
	scores := make([]float64, 0, n)
	levels := make([]string, 0, n)
	errorsJSON := make([]string, 0, n)
	suggestionsJSON := make([]string, 0, n)

	for _, f := range batch {
		labWorkIDs = append(labWorkIDs, f.LabWorkID)
		scores = append(scores, f.CorrectnessScore)
		levels = append(levels, f.TopicMasteryLevel)
		errorsJSON = append(errorsJSON, rawOrNull(f.CommonErrors))
		suggestionsJSON = append(suggestionsJSON, rawOrNull(f.Suggestions))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO analysis_results (lab_work_id, correctness_score, topic_mastery_level, common_errors, suggestions)
		SELECT u.lab_work_id, u.score, u.level, u.errors::jsonb, u.suggestions::jsonb
		FROM UNNEST(
			$1::int[],
			$2::float8[],
			$3::text[],
			$4::text[],
			$5::text[]
		) AS u (lab_work_id, score, level, errors, suggestions)
	`, labWorkIDs, scores, levels, errorsJSON, suggestionsJSON)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE lab_works AS w
		SET status = 'checked',
		    score = t.score,
		    correctness_percentage = t.score
		FROM (
			SELECT u.lab_work_id, u.score
			FROM UNNEST($1::int[], $2::float8[]) AS u (lab_work_id, score)
		) AS t
		WHERE w.id = t.lab_work_id
	`, labWorkIDs, scores)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

// ListByLabWork retrieves all analysis passes for a lab work, newest first.
func (r *AnalysisResultRepository) ListByLabWork(ctx context.Context, labWorkID int) ([]model.AnalysisResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lab_work_id, analysis_date, correctness_score, common_errors, topic_mastery_level, suggestions
		 FROM analysis_results
		 WHERE lab_work_id = $1
		 ORDER BY analysis_date DESC`, labWorkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var a model.AnalysisResult
		if err := rows.Scan(&a.ID, &a.LabWorkID, &a.AnalysisDate, &a.CorrectnessScore, &a.CommonErrors, &a.TopicMasteryLevel, &a.Suggestions); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// TopicMasteryRow is the latest mastery verdict for one of a student's topics.
type TopicMasteryRow struct {
	Topic        string             `json:"topic"`
	Level        model.MasteryLevel `json:"level"`
	AnalyzedAt   time.Time          `json:"analyzed_at"`
	AverageScore float64            `json:"average_score"`
}

// LatestMasteryByTopic returns the most recent mastery level per topic for a
// student, derived from the analysis history of their lab works.
func (r *AnalysisResultRepository) LatestMasteryByTopic(ctx context.Context, studentID int) ([]TopicMasteryRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (w.topic)
			w.topic, a.topic_mastery_level, a.analysis_date,
			AVG(a.correctness_score) OVER (PARTITION BY w.topic)
		FROM analysis_results a
		JOIN lab_works w ON w.id = a.lab_work_id
		WHERE w.student_id = $1 AND w.topic <> ''
		ORDER BY w.topic, a.analysis_date DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mastery []TopicMasteryRow
	for rows.Next() {
		var m TopicMasteryRow
		if err := rows.Scan(&m.Topic, &m.Level, &m.AnalyzedAt, &m.AverageScore); err != nil {
			return nil, err
		}
		mastery = append(mastery, m)
	}
	return mastery, rows.Err()
}

// LatestSuggestionsByTopic maps each of the student's topics to the
// suggestions payload of its most recent analysis pass.
func (r *AnalysisResultRepository) LatestSuggestionsByTopic(ctx context.Context, studentID int) (map[string]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (w.topic) w.topic, a.suggestions
		FROM analysis_results a
		JOIN lab_works w ON w.id = a.lab_work_id
		WHERE w.student_id = $1 AND w.topic <> '' AND a.suggestions IS NOT NULL
		ORDER BY w.topic, a.analysis_date DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suggestions := map[string]json.RawMessage{}
	for rows.Next() {
		var topic string
		var payload json.RawMessage
		if err := rows.Scan(&topic, &payload); err != nil {
			return nil, err
		}
		suggestions[topic] = payload
	}
	return suggestions, rows.Err()
}

// ListCommonErrors returns the recorded error payloads for a student,
// newest analysis first.
func (r *AnalysisResultRepository) ListCommonErrors(ctx context.Context, studentID int, limit int) ([]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.common_errors
		FROM analysis_results a
		JOIN lab_works w ON w.id = a.lab_work_id
		WHERE w.student_id = $1 AND a.common_errors IS NOT NULL
		ORDER BY a.analysis_date DESC
		LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads []json.RawMessage
	for rows.Next() {
		var p json.RawMessage
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}
