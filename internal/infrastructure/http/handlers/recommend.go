// Package handlers provides HTTP handlers for the recommendation API
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/ports/inbound"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

// APIResponse is the standard JSON envelope for all endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries the machine-readable code alongside the message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RecommendHandler serves the recommendation endpoints.
type RecommendHandler struct {
	service inbound.RecommendationService
	logger  *zap.Logger
}

// NewRecommendHandler creates a recommendation handler.
func NewRecommendHandler(service inbound.RecommendationService, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{service: service, logger: logger}
}

// recommendRequest is the JSON body for POST /api/v1/recommendations.
type recommendRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	Mood        string   `json:"mood" binding:"required"`
	Energy      string   `json:"energy" binding:"required"`
	Date        string   `json:"date" binding:"required"`
	Slot        string   `json:"slot" binding:"required"`
	CurrentFood string   `json:"current_food"`
	RecentFoods []string `json:"recent_foods"`
}

// Recommend handles POST /api/v1/recommendations.
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   &APIError{Code: string(apperrors.CodeValidationFailed), Message: err.Error()},
		})
		return
	}

	cmd := inbound.RecommendCommand{
		UserID:      req.UserID,
		Mood:        req.Mood,
		Energy:      req.Energy,
		Date:        req.Date,
		Slot:        req.Slot,
		CurrentFood: req.CurrentFood,
		RecentFoods: req.RecentFoods,
	}

	result, err := h.service.Recommend(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Skipped {
		// Another request for the same slot is in flight; the caller
		// should retry or read the persisted rows.
		status = http.StatusConflict
	}
	c.JSON(status, APIResponse{Success: true, Data: result})
}

// Health handles GET /health.
func (h *RecommendHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *RecommendHandler) writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode()
		if status >= http.StatusInternalServerError {
			h.logger.Error("recommendation failed",
				zap.String("code", string(appErr.Code)),
				zap.Error(err))
		} else {
			h.logger.Warn("recommendation rejected",
				zap.String("code", string(appErr.Code)),
				zap.Error(err))
		}
		c.JSON(status, APIResponse{
			Success: false,
			Error:   &APIError{Code: string(appErr.Code), Message: appErr.Message},
		})
		return
	}

	h.logger.Error("recommendation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, APIResponse{
		Success: false,
		Error:   &APIError{Code: string(apperrors.CodeInternal), Message: "internal server error"},
	})
}
