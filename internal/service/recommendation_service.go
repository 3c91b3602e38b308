package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
)

// Recommendation is one study suggestion for a topic.
type Recommendation struct {
	Topic       string             `json:"topic"`
	Level       model.MasteryLevel `json:"level"`
	Priority    int                `json:"priority"`
	Message     string             `json:"message"`
	Suggestions json.RawMessage    `json:"suggestions,omitempty"`
}

// RecommendationService turns the mastery profile into an ordered study
// plan: weakest topics first.
type RecommendationService struct {
	results   *repository.AnalysisResultRepository
	analytics *AnalyticsService
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(results *repository.AnalysisResultRepository, analytics *AnalyticsService) *RecommendationService {
	return &RecommendationService{results: results, analytics: analytics}
}

var levelPriority = map[model.MasteryLevel]int{
	model.MasteryWeak:   1,
	model.MasteryMedium: 2,
	model.MasteryStrong: 3,
}

// ForStudent builds the ordered recommendation list for a student. Topics
// come out weakest first, ties ordered by ascending average score.
func (s *RecommendationService) ForStudent(ctx context.Context, studentID int) ([]Recommendation, error) {
	rows, err := s.results.LatestMasteryByTopic(ctx, studentID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := levelPriority[rows[i].Level], levelPriority[rows[j].Level]
		if pi != pj {
			return pi < pj
		}
		return rows[i].AverageScore < rows[j].AverageScore
	})

	suggestions, err := s.latestSuggestions(ctx, studentID)
	if err != nil {
		return nil, err
	}

	recs := []Recommendation{}
	for i, row := range rows {
		recs = append(recs, Recommendation{
			Topic:       row.Topic,
			Level:       row.Level,
			Priority:    i + 1,
			Message:     messageFor(row.Topic, row.Level),
			Suggestions: suggestions[row.Topic],
		})
	}
	return recs, nil
}

// latestSuggestions maps each topic to the suggestions payload of its most
// recent analysis pass.
func (s *RecommendationService) latestSuggestions(ctx context.Context, studentID int) (map[string]json.RawMessage, error) {
	results, err := s.results.LatestSuggestionsByTopic(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func messageFor(topic string, level model.MasteryLevel) string {
	switch level {
	case model.MasteryWeak:
		return fmt.Sprintf("Focus on %s: your recent work shows gaps in this topic", topic)
	case model.MasteryMedium:
		return fmt.Sprintf("Keep practicing %s to make it a strength", topic)
	default:
		return fmt.Sprintf("You are doing well in %s, an occasional review is enough", topic)
	}
}
