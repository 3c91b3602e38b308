package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/examprep/examprep-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// LabWorkHandler handles lab work endpoints.
type LabWorkHandler struct {
	labWorkService *service.LabWorkService
}

// NewLabWorkHandler creates a new LabWorkHandler.
func NewLabWorkHandler(labWorkService *service.LabWorkService) *LabWorkHandler {
	return &LabWorkHandler{labWorkService: labWorkService}
}

// ListLabWorks godoc
// GET /api/v1/lab-works?student_id=
func (h *LabWorkHandler) ListLabWorks(c *gin.Context) {
	var studentID *int
	if raw := c.Query("student_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidID)
			return
		}
		studentID = &id
	}

	works, err := h.labWorkService.List(c.Request.Context(), studentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lab_works": works})
}

// GetLabWork godoc
// GET /api/v1/lab-works/:id
func (h *LabWorkHandler) GetLabWork(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	work, err := h.labWorkService.GetByID(c.Request.Context(), id)
	if err != nil {
		failLabWork(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lab_work": work})
}

// CreateLabWork godoc
// POST /api/v1/students/:id/lab-works
func (h *LabWorkHandler) CreateLabWork(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.CreateLabWorkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	work, err := h.labWorkService.Create(c.Request.Context(), studentID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"lab_work": work})
}

// SubmitLabWork godoc
// POST /api/v1/lab-works/:id/submit
// Queues the submitted code for the analysis engine.
func (h *LabWorkHandler) SubmitLabWork(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req model.SubmitLabWorkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	work, err := h.labWorkService.Submit(c.Request.Context(), id, &req)
	if err != nil {
		failLabWork(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"lab_work": work})
}

// GetLabWorkResults godoc
// GET /api/v1/lab-works/:id/results
func (h *LabWorkHandler) GetLabWorkResults(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	results, err := h.labWorkService.Results(c.Request.Context(), id)
	if err != nil {
		failLabWork(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

func failLabWork(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLabWorkNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrLabWorkNotSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
