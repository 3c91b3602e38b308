package service

import (
	"encoding/json"
	"testing"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScoreAnswerFreeText(t *testing.T) {
	q := &model.Question{QuestionText: "Capital of France?", CorrectAnswer: "Paris"}

	assert.True(t, ScoreAnswer(q, "Paris"))
	assert.True(t, ScoreAnswer(q, "paris"))
	assert.True(t, ScoreAnswer(q, "  PARIS  "))
	assert.False(t, ScoreAnswer(q, "Pari"))
	assert.False(t, ScoreAnswer(q, ""))
}

func TestScoreAnswerMultipleChoice(t *testing.T) {
	q := &model.Question{
		QuestionText:  "Pick one",
		CorrectAnswer: "B",
		Options:       json.RawMessage(`{"A":"first","B":"second"}`),
	}

	assert.True(t, ScoreAnswer(q, "B"))
	assert.True(t, ScoreAnswer(q, " B "))
	// Option keys compare exactly, not case-folded.
	assert.False(t, ScoreAnswer(q, "b"))
	assert.False(t, ScoreAnswer(q, "A"))
}

func TestScoreAnswerNullOptionsIsFreeText(t *testing.T) {
	q := &model.Question{CorrectAnswer: "Answer", Options: json.RawMessage("null")}
	assert.True(t, ScoreAnswer(q, "answer"))
}

func TestAggregateScore(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name      string
		total     int
		correct   int
		wantScore float64
		wantLevel model.ReadinessLevel
	}{
		{"all correct", 10, 10, 100, model.ReadinessHigh},
		{"exactly high threshold", 10, 8, 80, model.ReadinessHigh},
		{"just below high", 20, 15, 75, model.ReadinessMedium},
		{"exactly medium threshold", 10, 5, 50, model.ReadinessMedium},
		{"just below medium", 10, 4, 40, model.ReadinessLow},
		{"none correct", 10, 0, 0, model.ReadinessLow},
		{"zero questions", 0, 0, 0, model.ReadinessLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := AggregateScore(policy, tt.total, tt.correct)
			assert.InDelta(t, tt.wantScore, score, 0.0001)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}
