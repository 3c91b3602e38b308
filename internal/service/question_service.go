package service

import (
	"context"
	"encoding/json"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
)

// QuestionService handles question bank management.
type QuestionService struct {
	questions *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questions: questions}
}

// Create adds a question to the bank.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		Topic:         req.Topic,
		Difficulty:    model.Difficulty(req.Difficulty),
		QuestionText:  req.QuestionText,
		CorrectAnswer: req.CorrectAnswer,
		Options:       req.Options,
		Explanation:   req.Explanation,
	}
	if len(q.Options) == 0 {
		q.Options = json.RawMessage("null")
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List retrieves questions, optionally filtered by topic. Answer keys and
// explanations never serialize out of the model.
func (s *QuestionService) List(ctx context.Context, topic string) ([]model.Question, error) {
	questions, err := s.questions.List(ctx, topic)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}
