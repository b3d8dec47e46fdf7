package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// ListingHandler handles REST requests for listings.
type ListingHandler struct {
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

// Create handles POST /v1/listings.
func (h *ListingHandler) Create(c *gin.Context) {
	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.listingService.Create(c.Request.Context(), middleware.UserID(c), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// Get handles GET /v1/listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	detail, err := h.listingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update handles PUT /v1/listings/:id.
func (h *ListingHandler) Update(c *gin.Context) {
	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.listingService.Update(c.Request.Context(), c.Param("id"), middleware.UserID(c), input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Delete handles DELETE /v1/listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
	err := h.listingService.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /v1/listings.
func (h *ListingHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	minPrice, _ := strconv.ParseFloat(c.Query("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(c.Query("max_price"), 64)

	filter := services.ListingFilter{
		Category: models.Category(c.Query("category")),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		SellerID: c.Query("seller_id"),
		Status:   models.ListingStatus(c.Query("status")),
		Search:   c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	}

	listings, total, err := h.listingService.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  listings,
		"total": total,
		"page":  page,
	})
}
