package repository

import (
	"context"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamSessionRepository is the trainer's session store: whole-session
// replace semantics, driven only by the state machine.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, student_id, start_time, end_time, duration_minutes, status, question_ids, total_questions, correct_answers, score, readiness_level`

func scanSession(row interface{ Scan(...any) error }, s *model.ExamSession) error {
	var readiness *string
	err := row.Scan(&s.ID, &s.StudentID, &s.StartTime, &s.EndTime, &s.DurationMinutes,
		&s.Status, &s.QuestionIDs, &s.TotalQuestions, &s.CorrectAnswers, &s.Score, &readiness)
	if err != nil {
		return err
	}
	if readiness != nil {
		s.ReadinessLevel = model.ReadinessLevel(*readiness)
	}
	return nil
}

// CreateSession inserts a new session. The partial unique index on
// (student_id) WHERE status = 'active' backstops the state machine's
// one-active-session invariant; a violation maps to ErrDuplicate.
func (r *ExamSessionRepository) CreateSession(ctx context.Context, s *model.ExamSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_sessions (id, student_id, start_time, duration_minutes, status, question_ids, total_questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.StudentID, s.StartTime, s.DurationMinutes, s.Status, s.QuestionIDs, s.TotalQuestions,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetSessionByID retrieves a session by ID.
func (r *ExamSessionRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id), s)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

// UpdateSession replaces the mutable fields of a session after a validated
// state transition.
func (r *ExamSessionRepository) UpdateSession(ctx context.Context, s *model.ExamSession) error {
	var readiness *string
	if s.ReadinessLevel != "" {
		v := string(s.ReadinessLevel)
		readiness = &v
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, end_time = $2, correct_answers = $3, score = $4, readiness_level = $5
		 WHERE id = $6`,
		s.Status, s.EndTime, s.CorrectAnswers, s.Score, readiness, s.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindActiveByStudent retrieves the student's active session, if any.
func (r *ExamSessionRepository) FindActiveByStudent(ctx context.Context, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 AND status = $2`, studentID, model.SessionStatusActive), s)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

// ListByStudent retrieves all of a student's sessions, newest first.
func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 ORDER BY start_time DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AddAnswer records a submitted answer. The unique (session_id, question_id)
// constraint backstops the exactly-once invariant; a violation maps to
// ErrDuplicate.
func (r *ExamSessionRepository) AddAnswer(ctx context.Context, a *model.ExamAnswer) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_answers (session_id, question_id, answer_text, is_correct)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, answered_at`,
		a.SessionID, a.QuestionID, a.AnswerText, a.IsCorrect,
	).Scan(&a.ID, &a.AnsweredAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindAnswer retrieves the answer for a (session, question) pair.
func (r *ExamSessionRepository) FindAnswer(ctx context.Context, sessionID uuid.UUID, questionID int) (*model.ExamAnswer, error) {
	a := &model.ExamAnswer{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, question_id, answer_text, is_correct, answered_at
		 FROM exam_answers WHERE session_id = $1 AND question_id = $2`,
		sessionID, questionID,
	).Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.AnswerText, &a.IsCorrect, &a.AnsweredAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return a, nil
}

// ListAnswers retrieves all answers of a session in submission order.
func (r *ExamSessionRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, answer_text, is_correct, answered_at
		 FROM exam_answers WHERE session_id = $1 ORDER BY answered_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.ExamAnswer
	for rows.Next() {
		var a model.ExamAnswer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.AnswerText, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
