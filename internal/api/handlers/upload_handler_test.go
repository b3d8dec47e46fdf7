package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AVAproject2025/Luxbid/internal/api/handlers"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

func sellerListingDetail(listingID, sellerID string) *models.ListingDetail {
	detail := &models.ListingDetail{
		Listing: models.Listing{SellerID: sellerID, Title: "Speedmaster", Status: models.ListingStatusActive},
	}
	detail.SetID(listingID)
	return detail
}

func TestUploadHandler_Presign_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockStorage := new(MockS3Storage)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewUploadHandler(mockStorage, mockListingSvc, new(MockAsynqClient))

	r := gin.New()
	r.POST("/v1/uploads/presign", asUser("seller-1", models.RoleUser), handler.Presign)

	mockListingSvc.On("Get", mock.Anything, "listing-1").Return(sellerListingDetail("listing-1", "seller-1"), nil)
	mockStorage.On("GeneratePresignedPutURL", mock.Anything, "seller-1", "listing-1", "watch.jpg", "image/jpeg").
		Return("https://bucket.s3.amazonaws.com/signed", "uploads/seller-1/listing-1/abc_watch.jpg", nil)

	w := postJSON(r, "/v1/uploads/presign", gin.H{
		"listing_id":   "listing-1",
		"filename":     "watch.jpg",
		"content_type": "image/jpeg",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "uploads/seller-1/listing-1/abc_watch.jpg", respBody["key"])
	mockStorage.AssertExpectations(t)
	mockListingSvc.AssertExpectations(t)
}

func TestUploadHandler_Presign_RejectsNonImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockStorage := new(MockS3Storage)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewUploadHandler(mockStorage, mockListingSvc, new(MockAsynqClient))

	r := gin.New()
	r.POST("/v1/uploads/presign", asUser("seller-1", models.RoleUser), handler.Presign)

	w := postJSON(r, "/v1/uploads/presign", gin.H{
		"listing_id":   "listing-1",
		"filename":     "notes.pdf",
		"content_type": "application/pdf",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockStorage.AssertNotCalled(t, "GeneratePresignedPutURL")
}

func TestUploadHandler_Presign_NotSeller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockStorage := new(MockS3Storage)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewUploadHandler(mockStorage, mockListingSvc, new(MockAsynqClient))

	r := gin.New()
	r.POST("/v1/uploads/presign", asUser("intruder", models.RoleUser), handler.Presign)

	mockListingSvc.On("Get", mock.Anything, "listing-1").Return(sellerListingDetail("listing-1", "seller-1"), nil)

	w := postJSON(r, "/v1/uploads/presign", gin.H{
		"listing_id":   "listing-1",
		"filename":     "watch.jpg",
		"content_type": "image/jpeg",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockStorage.AssertNotCalled(t, "GeneratePresignedPutURL")
}

func TestUploadHandler_Complete_QueuesProcessing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	mockClient := new(MockAsynqClient)
	handler := handlers.NewUploadHandler(new(MockS3Storage), mockListingSvc, mockClient)

	r := gin.New()
	r.POST("/v1/uploads/complete", asUser("seller-1", models.RoleUser), handler.Complete)

	mockListingSvc.On("Get", mock.Anything, "listing-1").Return(sellerListingDetail("listing-1", "seller-1"), nil)
	mockClient.On("Enqueue", mock.Anything, mock.Anything).Return(&asynq.TaskInfo{ID: "task-1"}, nil)

	w := postJSON(r, "/v1/uploads/complete", gin.H{
		"listing_id": "listing-1",
		"key":        "uploads/seller-1/listing-1/abc_watch.jpg",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "task-1", respBody["task_id"])
	mockClient.AssertExpectations(t)
}
