package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/services"
	"github.com/AVAproject2025/Luxbid/internal/storage"
	"github.com/AVAproject2025/Luxbid/internal/tasks"
)

// IAsynqClient is the slice of asynq.Client the handlers use, split out so
// tests can inject a mock.
type IAsynqClient interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// UploadHandler issues pre-signed upload URLs and queues image processing.
type UploadHandler struct {
	storageService storage.IS3Storage
	listingService services.IListingService
	taskClient     IAsynqClient
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(storageService storage.IS3Storage, listingService services.IListingService, taskClient IAsynqClient) *UploadHandler {
	return &UploadHandler{storageService: storageService, listingService: listingService, taskClient: taskClient}
}

type presignRequest struct {
	ListingID   string `json:"listing_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Presign handles POST /v1/uploads/presign. Only the listing's seller can
// request an upload slot.
func (h *UploadHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id, filename and content_type are required"})
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image uploads are allowed"})
		return
	}

	userID := middleware.UserID(c)
	detail, err := h.listingService.Get(c.Request.Context(), req.ListingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if detail.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the seller may upload images"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), userID, req.ListingID, req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}

type completeUploadRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	Key       string `json:"key" binding:"required"`
}

// Complete handles POST /v1/uploads/complete: the client reports the PUT
// finished and the image worker takes over.
func (h *UploadHandler) Complete(c *gin.Context) {
	var req completeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id and key are required"})
		return
	}

	detail, err := h.listingService.Get(c.Request.Context(), req.ListingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if detail.SellerID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the seller may upload images"})
		return
	}

	task, err := tasks.NewImageProcessTask(req.Key, req.ListingID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image processing"})
		return
	}
	info, err := h.taskClient.Enqueue(task)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image processing"})
		return
	}

	log.Printf("Queued image processing task %s for listing %s", info.ID, req.ListingID)
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
}
