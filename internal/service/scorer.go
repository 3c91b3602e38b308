package service

import (
	"strings"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
)

// ScoreAnswer evaluates a submitted answer against the question key.
// Free text compares trimmed and case-insensitive; multiple choice
// compares the trimmed option key exactly.
func ScoreAnswer(q *model.Question, answer string) bool {
	submitted := strings.TrimSpace(answer)
	key := strings.TrimSpace(q.CorrectAnswer)
	if q.IsMultipleChoice() {
		return submitted == key
	}
	return strings.EqualFold(submitted, key)
}

// AggregateScore computes the session score (0-100) and readiness verdict.
// A session with zero questions scores 0 with readiness "low".
// Thresholds come from the trainer policy (defaults: >=80 high, >=50 medium).
func AggregateScore(policy config.TrainerPolicy, totalQuestions, correctAnswers int) (float64, model.ReadinessLevel) {
	if totalQuestions <= 0 {
		return 0, model.ReadinessLow
	}

	score := 100 * float64(correctAnswers) / float64(totalQuestions)

	switch {
	case score >= policy.HighThreshold:
		return score, model.ReadinessHigh
	case score >= policy.MediumThreshold:
		return score, model.ReadinessMedium
	default:
		return score, model.ReadinessLow
	}
}
