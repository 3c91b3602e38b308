package model

import (
	"encoding/json"
	"time"
)

// LabWorkStatus enumerates lab work review states.
type LabWorkStatus string

const (
	LabWorkStatusPending  LabWorkStatus = "pending"
	LabWorkStatusChecked  LabWorkStatus = "checked"
	LabWorkStatusApproved LabWorkStatus = "approved"
)

// LabWork is a student's lab assignment submission record.
type LabWork struct {
	ID                    int           `json:"id"`
	StudentID             int           `json:"student_id"`
	Title                 string        `json:"title"`
	Description           string        `json:"description,omitempty"`
	Topic                 string        `json:"topic,omitempty"`
	SubmittedAt           *time.Time    `json:"submitted_at,omitempty"`
	Status                LabWorkStatus `json:"status"`
	Score                 float64       `json:"score"`
	MaxScore              float64       `json:"max_score"`
	CorrectnessPercentage *float64      `json:"correctness_percentage,omitempty"`
}

// AnalysisResult is one analysis pass over a submitted lab work,
// produced by the external analysis engine.
type AnalysisResult struct {
	ID                int             `json:"id"`
	LabWorkID         int             `json:"lab_work_id"`
	AnalysisDate      time.Time       `json:"analysis_date"`
	CorrectnessScore  float64         `json:"correctness_score"`
	CommonErrors      json.RawMessage `json:"common_errors,omitempty"`
	TopicMasteryLevel MasteryLevel    `json:"topic_mastery_level"`
	Suggestions       json.RawMessage `json:"suggestions,omitempty"`
}

// CreateLabWorkRequest is the payload for registering a new lab work.
// The owning student comes from the URL path.
type CreateLabWorkRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=4000"`
	Topic       string `json:"topic" binding:"max=128"`
}

// SubmitLabWorkRequest carries the code handed to the analysis engine.
type SubmitLabWorkRequest struct {
	Code  string            `json:"code" binding:"required,min=1"`
	Files map[string]string `json:"files"`
}
