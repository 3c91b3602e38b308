package repository

import (
	"context"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles student profile data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, student_id_number, group_name, faculty, course, average_grade, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.StudentNumber, &s.GroupName, &s.Faculty, &s.Course, &s.AverageGrade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

// GetByUserID retrieves the student profile attached to a user account.
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, student_id_number, group_name, faculty, course, average_grade, created_at, updated_at
		 FROM students WHERE user_id = $1`, userID,
	).Scan(&s.ID, &s.UserID, &s.StudentNumber, &s.GroupName, &s.Faculty, &s.Course, &s.AverageGrade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

// ListPaginated retrieves students ordered by student number.
func (r *StudentRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, student_id_number, group_name, faculty, course, average_grade, created_at, updated_at
		 FROM students ORDER BY student_id_number LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.UserID, &s.StudentNumber, &s.GroupName, &s.Faculty, &s.Course, &s.AverageGrade, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student profile. Returns ErrDuplicate if the student
// number or user link already exists.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (user_id, student_id_number, group_name, faculty, course)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, average_grade, created_at, updated_at`,
		s.UserID, s.StudentNumber, s.GroupName, s.Faculty, s.Course,
	).Scan(&s.ID, &s.AverageGrade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update modifies mutable student profile fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET group_name = $1, faculty = $2, course = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		s.GroupName, s.Faculty, s.Course, s.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAverageGrade recalculates a student's average grade from checked lab works.
func (r *StudentRepository) UpdateAverageGrade(ctx context.Context, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET average_grade = COALESCE(
			(SELECT AVG(score) FROM lab_works WHERE student_id = $1 AND status <> 'pending'), 0),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`, studentID)
	return err
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
