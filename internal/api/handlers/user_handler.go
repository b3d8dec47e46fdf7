package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// UserHandler handles profile and membership requests.
type UserHandler struct {
	userService services.IUserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me handles GET /v1/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetPublicProfile handles GET /v1/users/:id. Only the public projection goes
// out.
func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"name":            user.Name,
		"account_type":    user.AccountType,
		"membership_tier": user.MembershipTier,
		"created_at":      user.CreatedAt,
	})
}

type upgradeMembershipRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// UpgradeMembership handles POST /v1/membership/upgrade.
func (h *UserHandler) UpgradeMembership(c *gin.Context) {
	var req upgradeMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier is required"})
		return
	}

	user, err := h.userService.UpgradeMembership(c.Request.Context(), middleware.UserID(c), models.MembershipTier(req.Tier))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
