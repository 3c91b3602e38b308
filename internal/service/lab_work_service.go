package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// analysisSubmission is the queue payload handed to the external analysis
// engine on submit.
type analysisSubmission struct {
	LabWorkID int               `json:"lab_work_id"`
	StudentID int               `json:"student_id"`
	Topic     string            `json:"topic"`
	Code      string            `json:"code"`
	Files     map[string]string `json:"files,omitempty"`
}

// LabWorkService handles lab work business logic. Submitted code is queued
// for the external analysis engine; results come back asynchronously through
// the analysis worker.
type LabWorkService struct {
	labWorks *repository.LabWorkRepository
	results  *repository.AnalysisResultRepository
	rdb      *redis.Client
}

// NewLabWorkService creates a new LabWorkService.
func NewLabWorkService(labWorks *repository.LabWorkRepository, results *repository.AnalysisResultRepository, rdb *redis.Client) *LabWorkService {
	return &LabWorkService{labWorks: labWorks, results: results, rdb: rdb}
}

// Create registers a new lab work assignment for a student.
func (s *LabWorkService) Create(ctx context.Context, studentID int, req *model.CreateLabWorkRequest) (*model.LabWork, error) {
	work := &model.LabWork{
		StudentID:   studentID,
		Title:       req.Title,
		Description: req.Description,
		Topic:       req.Topic,
	}
	if err := s.labWorks.Create(ctx, work); err != nil {
		return nil, err
	}
	return work, nil
}

// GetByID retrieves a lab work by ID.
func (s *LabWorkService) GetByID(ctx context.Context, id int) (*model.LabWork, error) {
	work, err := s.labWorks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLabWorkNotFound
		}
		return nil, err
	}
	return work, nil
}

// List retrieves lab works, optionally filtered by student.
func (s *LabWorkService) List(ctx context.Context, studentID *int) ([]model.LabWork, error) {
	works, err := s.labWorks.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if works == nil {
		works = []model.LabWork{}
	}
	return works, nil
}

// Submit stamps the lab work as submitted and queues the code for analysis.
func (s *LabWorkService) Submit(ctx context.Context, id int, req *model.SubmitLabWorkRequest) (*model.LabWork, error) {
	work, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.labWorks.MarkSubmitted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLabWorkNotFound
		}
		return nil, err
	}

	payload, err := json.Marshal(analysisSubmission{
		LabWorkID: work.ID,
		StudentID: work.StudentID,
		Topic:     work.Topic,
		Code:      req.Code,
		Files:     req.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.AnalysisSubmissionsQueue(), payload).Err(); err != nil {
		return nil, fmt.Errorf("queue submission: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Results retrieves the analysis history for a submitted lab work.
func (s *LabWorkService) Results(ctx context.Context, id int) ([]model.AnalysisResult, error) {
	work, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if work.SubmittedAt == nil {
		return nil, ErrLabWorkNotSubmitted
	}

	results, err := s.results.ListByLabWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.AnalysisResult{}
	}
	return results, nil
}
