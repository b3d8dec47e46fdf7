package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// NotificationHandler handles a user's notification feed.
type NotificationHandler struct {
	cfg                 *config.Config
	notificationService services.INotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(cfg *config.Config, notificationService services.INotificationService) *NotificationHandler {
	return &NotificationHandler{cfg: cfg, notificationService: notificationService}
}

// List handles GET /v1/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.NotificationPageSize)))
	if err != nil || limit <= 0 {
		limit = h.cfg.NotificationPageSize
	}

	notifications, err := h.notificationService.ListForUser(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
