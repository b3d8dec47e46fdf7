package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/payments"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// PaymentHandler handles checkout and the provider webhook.
type PaymentHandler struct {
	paymentService services.IPaymentService
	provider       payments.Provider
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.IPaymentService, provider payments.Provider) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, provider: provider}
}

type checkoutRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

// CreateCheckoutSession handles POST /v1/payments/checkout.
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offer_id is required"})
		return
	}

	session, err := h.paymentService.CreateCheckoutSession(c.Request.Context(), req.OfferID, middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "url": session.URL})
}

// GetForOffer handles GET /v1/offers/:id/payment.
func (h *PaymentHandler) GetForOffer(c *gin.Context) {
	payment, err := h.paymentService.FindByOffer(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// Webhook handles POST /v1/payments/webhook. Unsigned or badly signed
// payloads are rejected with 400 before any state is touched; processing
// failures return 500 so the provider redelivers.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := h.provider.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("WARN: webhook signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	if err := h.paymentService.HandleProviderEvent(c.Request.Context(), event); err != nil {
		log.Printf("CRITICAL: failed to process webhook event %s: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
