package trust

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustgate/internal/baseline"
)

// Handler provides HTTP endpoints for trust evaluations.
type Handler struct {
	service *Service
}

// NewHandler creates a new trust handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) trust routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/evaluations/:id", h.GetEvaluation)
}

// RegisterProtectedRoutes sets up protected (auth-required) trust routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/evaluations", h.Evaluate)
	r.GET("/users/:userID/evaluations", h.ListUserEvaluations)
	r.GET("/users/:userID/devices/:deviceID/evaluations", h.ListDeviceEvaluations)
	r.GET("/users/:userID/devices/:deviceID/baseline", h.GetBaseline)
	r.GET("/users/:userID/decay", h.DecayHistory)
}

// Evaluate handles POST /v1/evaluations
func (h *Handler) Evaluate(c *gin.Context) {
	var snap SignalSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId and deviceId are required",
		})
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), &snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetEvaluation handles GET /v1/evaluations/:id
func (h *Handler) GetEvaluation(c *gin.Context) {
	report, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEvaluationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No evaluation found with this ID",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluation": report})
}

// ListUserEvaluations handles GET /v1/users/:userID/evaluations
func (h *Handler) ListUserEvaluations(c *gin.Context) {
	reports, err := h.service.ListByUser(c.Request.Context(), c.Param("userID"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": reports,
		"count":       len(reports),
	})
}

// ListDeviceEvaluations handles GET /v1/users/:userID/devices/:deviceID/evaluations
func (h *Handler) ListDeviceEvaluations(c *gin.Context) {
	reports, err := h.service.ListByDevice(c.Request.Context(), c.Param("userID"), c.Param("deviceID"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": reports,
		"count":       len(reports),
	})
}

// GetBaseline handles GET /v1/users/:userID/devices/:deviceID/baseline
func (h *Handler) GetBaseline(c *gin.Context) {
	attrs, err := h.service.Baseline(c.Request.Context(), c.Param("userID"), c.Param("deviceID"))
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No baseline recorded for this device",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"baseline": attrs})
}

// DecayHistory handles GET /v1/users/:userID/decay
func (h *Handler) DecayHistory(c *gin.Context) {
	history, err := h.service.DecayHistory(c.Request.Context(), c.Param("userID"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decay": history,
		"count": len(history),
	})
}

func queryLimit(c *gin.Context) int {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}
