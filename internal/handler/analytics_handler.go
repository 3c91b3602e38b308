package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examprep/examprep-backend/internal/response"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles analytics, statistics and recommendation
// endpoints.
type AnalyticsHandler struct {
	analytics       *service.AnalyticsService
	statistics      *service.StatisticsService
	recommendations *service.RecommendationService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, statistics *service.StatisticsService, recommendations *service.RecommendationService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:       analytics,
		statistics:      statistics,
		recommendations: recommendations,
	}
}

// GetMastery godoc
// GET /api/v1/analytics/students/:id/mastery
// Per-topic mastery levels with average correctness.
func (h *AnalyticsHandler) GetMastery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rows, err := h.analytics.TopicBreakdown(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"topics": rows})
}

// GetProgress godoc
// GET /api/v1/analytics/students/:id/progress
// Score timeline over finished exam sessions.
func (h *AnalyticsHandler) GetProgress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	points, err := h.analytics.Progress(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": points})
}

// GetCommonErrors godoc
// GET /api/v1/analytics/students/:id/errors?limit=
func (h *AnalyticsHandler) GetCommonErrors(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	payloads, err := h.analytics.CommonErrors(c.Request.Context(), id, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"errors": payloads})
}

// GetStatistics godoc
// GET /api/v1/statistics/students/:id
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.statistics.ForStudent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"statistics": stats})
}

// GetSessionHistory godoc
// GET /api/v1/statistics/students/:id/sessions
func (h *AnalyticsHandler) GetSessionHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sessions, err := h.statistics.SessionHistory(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// GetRecommendations godoc
// GET /api/v1/recommendations/students/:id
// Study plan ordered weakest topic first.
func (h *AnalyticsHandler) GetRecommendations(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	recs, err := h.recommendations.ForStudent(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recommendations": recs})
}
