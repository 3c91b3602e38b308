package service

import (
	"context"
	"errors"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/examprep/examprep-backend/internal/response"
)

// StudentService handles student profile business logic.
type StudentService struct {
	studentRepo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

// ListStudents retrieves all students with pagination.
func (s *StudentService) ListStudents(ctx context.Context, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	students, total, err := s.studentRepo.ListPaginated(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if students == nil {
		students = []model.Student{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return students, pagination, nil
}

// Create registers a new student profile for a user account.
func (s *StudentService) Create(ctx context.Context, userID int, req *model.CreateStudentRequest) (*model.Student, error) {
	student := &model.Student{
		UserID:        userID,
		StudentNumber: req.StudentNumber,
		GroupName:     req.GroupName,
		Faculty:       req.Faculty,
		Course:        req.Course,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Update modifies a student's profile fields. Only non-nil request fields
// are applied.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.GroupName != nil {
		student.GroupName = *req.GroupName
	}
	if req.Faculty != nil {
		student.Faculty = *req.Faculty
	}
	if req.Course != nil {
		student.Course = *req.Course
	}

	if err := s.studentRepo.Update(ctx, student); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

// Delete removes a student profile.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	return nil
}
