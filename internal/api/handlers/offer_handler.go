package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// OfferHandler handles REST requests for offers.
type OfferHandler struct {
	offerService services.IOfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offerService services.IOfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

type createOfferRequest struct {
	Amount  float64 `json:"amount"`
	Message string  `json:"message"`
}

// Create handles POST /v1/listings/:id/offers.
func (h *OfferHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offer, err := h.offerService.Create(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Amount, req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// Accept handles POST /v1/offers/:id/accept.
func (h *OfferHandler) Accept(c *gin.Context) {
	offer, err := h.offerService.Accept(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// ListForListing handles GET /v1/listings/:id/offers.
func (h *OfferHandler) ListForListing(c *gin.Context) {
	offers, err := h.offerService.ListForListing(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": offers})
}

// ListMine handles GET /v1/offers.
func (h *OfferHandler) ListMine(c *gin.Context) {
	offers, err := h.offerService.ListForBuyer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": offers})
}
