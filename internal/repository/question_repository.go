package repository

import (
	"context"
	"fmt"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a new question into the bank.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (topic, difficulty, question_text, correct_answer, options, explanation)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.Topic, q.Difficulty, q.QuestionText, q.CorrectAnswer, q.Options, q.Explanation,
	).Scan(&q.ID)
}

// List retrieves questions, optionally filtered by topic.
func (r *QuestionRepository) List(ctx context.Context, topic string) ([]model.Question, error) {
	query := `SELECT id, topic, difficulty, question_text, correct_answer, options, explanation FROM questions`
	var args []any
	if topic != "" {
		query += ` WHERE topic = $1`
		args = append(args, topic)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Topic, &q.Difficulty, &q.QuestionText, &q.CorrectAnswer, &q.Options, &q.Explanation); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByIDs retrieves questions by ID, keyed by ID.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []int) (map[int]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, difficulty, question_text, correct_answer, options, explanation
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make(map[int]model.Question, len(ids))
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Topic, &q.Difficulty, &q.QuestionText, &q.CorrectAnswer, &q.Options, &q.Explanation); err != nil {
			return nil, err
		}
		questions[q.ID] = q
	}
	return questions, rows.Err()
}

// SnapshotForStudent returns the whole bank with each question's recent-use
// count for the given student. A question counts as recently used when it was
// assigned to any of the student's sessions started inside the window.
func (r *QuestionRepository) SnapshotForStudent(ctx context.Context, studentID, windowDays int) ([]model.BankQuestion, error) {
	interval := fmt.Sprintf("%d days", windowDays)
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.topic, q.difficulty, q.question_text, q.correct_answer, q.options, q.explanation,
		       COALESCE(u.uses, 0) AS recent_uses
		FROM questions q
		LEFT JOIN (
			SELECT qid AS question_id, COUNT(*) AS uses
			FROM exam_sessions s, UNNEST(s.question_ids) AS qid
			WHERE s.student_id = $1 AND s.start_time > NOW() - $2::interval
			GROUP BY qid
		) u ON u.question_id = q.id
		ORDER BY q.id`, studentID, interval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bank []model.BankQuestion
	for rows.Next() {
		var b model.BankQuestion
		if err := rows.Scan(&b.ID, &b.Topic, &b.Difficulty, &b.QuestionText, &b.CorrectAnswer, &b.Options, &b.Explanation, &b.RecentUses); err != nil {
			return nil, err
		}
		bank = append(bank, b)
	}
	return bank, rows.Err()
}
