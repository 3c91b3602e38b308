package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. Transitions are monotonic:
// active -> completed or active -> expired, both terminal.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusExpired
}

// ReadinessLevel is the coarse exam-preparedness verdict for a session.
type ReadinessLevel string

const (
	ReadinessLow    ReadinessLevel = "low"
	ReadinessMedium ReadinessLevel = "medium"
	ReadinessHigh   ReadinessLevel = "high"
)

// ExamSession is one timed attempt at a set of exam questions by one student.
// Mutated only by the trainer state machine; immutable once status leaves active.
type ExamSession struct {
	ID              uuid.UUID     `json:"id"`
	StudentID       int           `json:"student_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         *time.Time    `json:"end_time,omitempty"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	// QuestionIDs is the assigned question set; insertion order is
	// presentation order.
	QuestionIDs    []int          `json:"question_ids"`
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	Score          float64        `json:"score"`
	ReadinessLevel ReadinessLevel `json:"readiness_level,omitempty"`
}

// HasQuestion reports whether the session's assigned set contains questionID.
func (s *ExamSession) HasQuestion(questionID int) bool {
	for _, id := range s.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// ExamAnswer is a single submitted answer. Created on submission,
// immutable afterward, unique per (session, question).
type ExamAnswer struct {
	ID         int       `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	QuestionID int       `json:"question_id"`
	AnswerText string    `json:"answer_text"`
	// IsCorrect is nil while unchecked, then fixed at submission time.
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	AnsweredAt time.Time `json:"answered_at"`
}

// StartSessionRequest is the payload for starting a trainer session.
type StartSessionRequest struct {
	// StudentID may be omitted; it then defaults to the caller's own
	// student profile.
	StudentID       int `json:"student_id" binding:"omitempty,min=1"`
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1"`
	QuestionCount   int `json:"question_count" binding:"omitempty,min=1,max=100"`
}

// SubmitAnswerRequest is the payload for answering one question.
type SubmitAnswerRequest struct {
	QuestionID int    `json:"question_id" binding:"required,min=1"`
	Answer     string `json:"answer" binding:"required,min=1"`
}
