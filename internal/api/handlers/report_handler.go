package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// ReportHandler lets users flag listings, users or messages.
type ReportHandler struct {
	moderationService services.IModerationService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(moderationService services.IModerationService) *ReportHandler {
	return &ReportHandler{moderationService: moderationService}
}

type fileReportRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

// File handles POST /v1/reports.
func (h *ReportHandler) File(c *gin.Context) {
	var req fileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	report, err := h.moderationService.FileReport(c.Request.Context(), middleware.UserID(c),
		models.ReportTargetType(req.TargetType), req.TargetID, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
