package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// MessageHandler handles listing-thread messaging.
type MessageHandler struct {
	messageService services.IMessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.IMessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// Send handles POST /v1/listings/:id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Content)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Thread handles GET /v1/listings/:id/messages.
func (h *MessageHandler) Thread(c *gin.Context) {
	messages, err := h.messageService.Thread(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": messages})
}

// Conversations handles GET /v1/conversations.
func (h *MessageHandler) Conversations(c *gin.Context) {
	conversations, err := h.messageService.Conversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conversations})
}
