package service

import (
	"context"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
)

// StudentStatistics consolidates a student's exam and lab work numbers.
type StudentStatistics struct {
	StudentID         int                  `json:"student_id"`
	AverageGrade      float64              `json:"average_grade"`
	TotalSessions     int                  `json:"total_sessions"`
	CompletedSessions int                  `json:"completed_sessions"`
	ExpiredSessions   int                  `json:"expired_sessions"`
	AverageScore      float64              `json:"average_score"`
	BestScore         float64              `json:"best_score"`
	LatestReadiness   model.ReadinessLevel `json:"latest_readiness,omitempty"`
	TotalLabWorks     int                  `json:"total_lab_works"`
	CheckedLabWorks   int                  `json:"checked_lab_works"`
}

// StatisticsService aggregates read-only statistics views.
type StatisticsService struct {
	students *repository.StudentRepository
	sessions *repository.ExamSessionRepository
	labWorks *repository.LabWorkRepository
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(students *repository.StudentRepository, sessions *repository.ExamSessionRepository, labWorks *repository.LabWorkRepository) *StatisticsService {
	return &StatisticsService{students: students, sessions: sessions, labWorks: labWorks}
}

// ForStudent computes the consolidated statistics for one student.
func (s *StatisticsService) ForStudent(ctx context.Context, studentID int) (*StudentStatistics, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, ErrStudentNotFound
	}

	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	works, err := s.labWorks.List(ctx, &studentID)
	if err != nil {
		return nil, err
	}

	stats := &StudentStatistics{
		StudentID:    student.ID,
		AverageGrade: student.AverageGrade,
	}

	scoreSum := 0.0
	terminal := 0
	for _, sess := range sessions {
		stats.TotalSessions++
		switch sess.Status {
		case model.SessionStatusCompleted:
			stats.CompletedSessions++
		case model.SessionStatusExpired:
			stats.ExpiredSessions++
		default:
			continue
		}
		terminal++
		scoreSum += sess.Score
		if sess.Score > stats.BestScore {
			stats.BestScore = sess.Score
		}
		// ListByStudent returns newest first, so the first terminal
		// session carries the latest readiness verdict.
		if stats.LatestReadiness == "" {
			stats.LatestReadiness = sess.ReadinessLevel
		}
	}
	if terminal > 0 {
		stats.AverageScore = scoreSum / float64(terminal)
	}

	for _, w := range works {
		stats.TotalLabWorks++
		if w.Status != model.LabWorkStatusPending {
			stats.CheckedLabWorks++
		}
	}

	return stats, nil
}

// SessionHistory returns the student's sessions, newest first.
func (s *StatisticsService) SessionHistory(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}
	return sessions, nil
}
