package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examprep/examprep-backend/internal/middleware"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/examprep/examprep-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExamTrainerHandler handles the exam trainer session endpoints.
type ExamTrainerHandler struct {
	trainer *service.TrainerService
}

// NewExamTrainerHandler creates a new ExamTrainerHandler.
func NewExamTrainerHandler(trainer *service.TrainerService) *ExamTrainerHandler {
	return &ExamTrainerHandler{trainer: trainer}
}

// StartSession godoc
// POST /api/v1/exam-trainer/sessions
// Starts a new timed session. Rejected while the student already has an
// active one.
func (h *ExamTrainerHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	studentID := req.StudentID
	if studentID == 0 {
		claims := middleware.GetClaims(c)
		if claims == nil || claims.StudentID == 0 {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)
			return
		}
		studentID = claims.StudentID
	}

	started, err := h.trainer.Start(c.Request.Context(), studentID, req.DurationMinutes, req.QuestionCount)
	if err != nil {
		failTrainer(c, err)
		return
	}

	response.Success(c, http.StatusCreated, started)
}

// GetSession godoc
// GET /api/v1/exam-trainer/sessions/:session_id
// Returns the session state with the clock settled.
func (h *ExamTrainerHandler) GetSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	state, err := h.trainer.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		failTrainer(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitAnswer godoc
// POST /api/v1/exam-trainer/sessions/:session_id/answers
// Records one answer and returns instant feedback.
func (h *ExamTrainerHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	feedback, err := h.trainer.SubmitAnswer(c.Request.Context(), sessionID, req.QuestionID, req.Answer)
	if err != nil {
		failTrainer(c, err)
		return
	}

	response.Success(c, http.StatusOK, feedback)
}

// FinishSession godoc
// POST /api/v1/exam-trainer/sessions/:session_id/finish
// Completes the session and returns the aggregate result. Safe to retry.
func (h *ExamTrainerHandler) FinishSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.trainer.Finish(c.Request.Context(), sessionID)
	if err != nil {
		failTrainer(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GenerateQuestions godoc
// GET /api/v1/exam-trainer/questions/generate?student_id=&count=
// Previews a balanced question draw without creating a session.
func (h *ExamTrainerHandler) GenerateQuestions(c *gin.Context) {
	studentID, _ := strconv.Atoi(c.Query("student_id"))
	if studentID == 0 {
		claims := middleware.GetClaims(c)
		if claims == nil || claims.StudentID == 0 {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)
			return
		}
		studentID = claims.StudentID
	}
	count, _ := strconv.Atoi(c.Query("count"))

	questions, shortfall, err := h.trainer.GenerateQuestions(c.Request.Context(), studentID, count)
	if err != nil {
		failTrainer(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions": questions,
		"shortfall": shortfall,
	})
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return sessionID, true
}

// failTrainer maps trainer domain errors onto the HTTP error taxonomy.
func failTrainer(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotInSession)
	case errors.Is(err, service.ErrActiveSessionExists):
		response.Fail(c, http.StatusConflict, response.ErrActiveSessionExists)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, service.ErrAlreadyAnswered):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAnswered)
	case errors.Is(err, service.ErrInvalidDuration):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)
	case errors.Is(err, service.ErrInsufficientQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInsufficientQuestions)
	case errors.Is(err, service.ErrStoreUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
