package repository

import (
	"context"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LabWorkRepository handles lab work data access.
type LabWorkRepository struct {
	pool *pgxpool.Pool
}

// NewLabWorkRepository creates a new LabWorkRepository.
func NewLabWorkRepository(pool *pgxpool.Pool) *LabWorkRepository {
	return &LabWorkRepository{pool: pool}
}

const labWorkColumns = `id, student_id, title, description, topic, submitted_at, status, score, max_score, correctness_percentage`

func scanLabWork(row interface{ Scan(...any) error }, w *model.LabWork) error {
	return row.Scan(&w.ID, &w.StudentID, &w.Title, &w.Description, &w.Topic,
		&w.SubmittedAt, &w.Status, &w.Score, &w.MaxScore, &w.CorrectnessPercentage)
}

// Create inserts a new lab work in pending state.
func (r *LabWorkRepository) Create(ctx context.Context, w *model.LabWork) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO lab_works (student_id, title, description, topic)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, status, score, max_score`,
		w.StudentID, w.Title, w.Description, w.Topic,
	).Scan(&w.ID, &w.Status, &w.Score, &w.MaxScore)
}

// GetByID retrieves a lab work by ID.
func (r *LabWorkRepository) GetByID(ctx context.Context, id int) (*model.LabWork, error) {
	w := &model.LabWork{}
	err := scanLabWork(r.pool.QueryRow(ctx,
		`SELECT `+labWorkColumns+` FROM lab_works WHERE id = $1`, id), w)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return w, nil
}

// List retrieves lab works, optionally filtered by student, newest first.
func (r *LabWorkRepository) List(ctx context.Context, studentID *int) ([]model.LabWork, error) {
	query := `SELECT ` + labWorkColumns + ` FROM lab_works`
	var args []any
	if studentID != nil {
		query += ` WHERE student_id = $1`
		args = append(args, *studentID)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var works []model.LabWork
	for rows.Next() {
		var w model.LabWork
		if err := scanLabWork(rows, &w); err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// MarkSubmitted stamps submitted_at and resets the work to pending review.
func (r *LabWorkRepository) MarkSubmitted(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lab_works
		 SET submitted_at = NOW(), status = $1
		 WHERE id = $2`,
		model.LabWorkStatusPending, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
