package handler

import (
	"net/http"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/examprep/examprep-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ListQuestions godoc
// GET /api/v1/questions?topic=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.List(c.Request.Context(), c.Query("topic"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}
