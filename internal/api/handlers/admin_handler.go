package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// AdminHandler handles moderation, user bans and platform reporting.
type AdminHandler struct {
	moderationService services.IModerationService
	analyticsService  services.IAnalyticsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(moderationService services.IModerationService, analyticsService services.IAnalyticsService) *AdminHandler {
	return &AdminHandler{moderationService: moderationService, analyticsService: analyticsService}
}

// ListReports handles GET /v1/admin/reports.
func (h *AdminHandler) ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := models.ReportStatus(c.Query("status"))

	reports, total, err := h.moderationService.ListReports(c.Request.Context(), status, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "total": total, "page": page})
}

type reviewReportRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReviewReport handles POST /v1/admin/reports/:id/review.
func (h *AdminHandler) ReviewReport(c *gin.Context) {
	var req reviewReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	report, err := h.moderationService.ReviewReport(c.Request.Context(), c.Param("id"), middleware.UserID(c), models.ReportStatus(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// BanUser handles POST /v1/admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *gin.Context) {
	if err := h.moderationService.BanUser(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnbanUser handles POST /v1/admin/users/:id/unban.
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	if err := h.moderationService.UnbanUser(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.analyticsService.PlatformStats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportTransactions handles GET /v1/admin/transactions/export. The range
// defaults to the last 30 days.
func (h *AdminHandler) ExportTransactions(c *gin.Context) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = parsed
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions_%s.csv", now.Format("20060102")))
	if err := h.analyticsService.ExportTransactionsCSV(c.Request.Context(), c.Writer, from, to); err != nil {
		// Headers may already be out; log via gin's error list and stop.
		_ = c.Error(err)
		c.Abort()
	}
}
