package model

import "time"

// Student is a student profile attached to a user account.
type Student struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	StudentNumber string    `json:"student_id_number"`
	GroupName     string    `json:"group_name,omitempty"`
	Faculty       string    `json:"faculty,omitempty"`
	Course        int       `json:"course,omitempty"`
	AverageGrade  float64   `json:"average_grade"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateStudentRequest is the payload for creating a student profile.
// The owning user is the authenticated caller.
type CreateStudentRequest struct {
	StudentNumber string `json:"student_id_number" binding:"required,min=1,max=32"`
	GroupName     string `json:"group_name" binding:"max=64"`
	Faculty       string `json:"faculty" binding:"max=128"`
	Course        int    `json:"course" binding:"omitempty,min=1,max=8"`
}

// UpdateStudentRequest is the payload for updating a student profile.
type UpdateStudentRequest struct {
	GroupName *string `json:"group_name" binding:"omitempty,max=64"`
	Faculty   *string `json:"faculty" binding:"omitempty,max=128"`
	Course    *int    `json:"course" binding:"omitempty,min=1,max=8"`
}
