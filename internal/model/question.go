package model

import "encoding/json"

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single exam question. Immutable once created.
// The correct answer and explanation never serialize on the default path;
// the trainer exposes the explanation only as submission feedback.
type Question struct {
	ID            int             `json:"id"`
	Topic         string          `json:"topic"`
	Difficulty    Difficulty      `json:"difficulty"`
	QuestionText  string          `json:"question_text"`
	CorrectAnswer string          `json:"-"`
	Options       json.RawMessage `json:"options,omitempty"`
	Explanation   string          `json:"-"`
}

// IsMultipleChoice reports whether the question carries answer options.
func (q *Question) IsMultipleChoice() bool {
	return len(q.Options) > 0 && string(q.Options) != "null"
}

// BankQuestion is a question paired with how often the given student has
// seen it recently. Snapshot row for the selector.
type BankQuestion struct {
	Question
	RecentUses int `json:"-"`
}

// CreateQuestionRequest is the payload for loading a question into the bank.
type CreateQuestionRequest struct {
	Topic         string          `json:"topic" binding:"required,min=1,max=128"`
	Difficulty    string          `json:"difficulty" binding:"required,oneof=easy medium hard"`
	QuestionText  string          `json:"question_text" binding:"required,min=1,max=4000"`
	CorrectAnswer string          `json:"correct_answer" binding:"required,min=1,max=2000"`
	Options       json.RawMessage `json:"options"`
	Explanation   string          `json:"explanation" binding:"max=4000"`
}
