package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// ReviewHandler handles buyer reviews and seller rating stats.
type ReviewHandler struct {
	reviewService services.IReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService services.IReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create handles POST /v1/listings/:id/reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Rating, req.Comment)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// ListForListing handles GET /v1/listings/:id/reviews.
func (h *ReviewHandler) ListForListing(c *gin.Context) {
	reviews, err := h.reviewService.ListForListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

// SellerStats handles GET /v1/users/:id/review-stats.
func (h *ReviewHandler) SellerStats(c *gin.Context) {
	stats, err := h.reviewService.SellerStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
