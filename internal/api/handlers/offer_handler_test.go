package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AVAproject2025/Luxbid/internal/api/handlers"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

func TestOfferHandler_Create_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockOfferSvc := new(MockOfferService)
	handler := handlers.NewOfferHandler(mockOfferSvc)

	r := gin.New()
	r.POST("/v1/listings/:id/offers", asUser("buyer-1", models.RoleUser), handler.Create)

	offer := &models.Offer{ListingID: "listing-1", BuyerID: "buyer-1", Amount: 8500, Status: models.OfferStatusPending}
	offer.GenID()
	mockOfferSvc.On("Create", mock.Anything, "listing-1", "buyer-1", 8500.0, "final offer").
		Return(offer, nil)

	w := postJSON(r, "/v1/listings/listing-1/offers", gin.H{"amount": 8500, "message": "final offer"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody models.Offer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, offer.ID, respBody.ID)
	mockOfferSvc.AssertExpectations(t)
}

func TestOfferHandler_Create_Conflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockOfferSvc := new(MockOfferService)
	handler := handlers.NewOfferHandler(mockOfferSvc)

	r := gin.New()
	r.POST("/v1/listings/:id/offers", asUser("buyer-1", models.RoleUser), handler.Create)

	mockOfferSvc.On("Create", mock.Anything, "listing-1", "buyer-1", 8500.0, "").
		Return(nil, fmt.Errorf("%w: you already have a pending offer on this listing", services.ErrConflict))

	w := postJSON(r, "/v1/listings/listing-1/offers", gin.H{"amount": 8500})

	// State conflicts surface as 400, not 409
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockOfferSvc.AssertExpectations(t)
}

func TestOfferHandler_Accept(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockOfferSvc := new(MockOfferService)
	handler := handlers.NewOfferHandler(mockOfferSvc)

	r := gin.New()
	r.POST("/v1/offers/:id/accept", asUser("seller-1", models.RoleUser), handler.Accept)

	accepted := &models.Offer{ListingID: "listing-1", BuyerID: "buyer-1", Status: models.OfferStatusAccepted}
	accepted.SetID("offer-1")
	mockOfferSvc.On("Accept", mock.Anything, "offer-1", "seller-1").Return(accepted, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/offers/offer-1/accept", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody models.Offer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, models.OfferStatusAccepted, respBody.Status)
	mockOfferSvc.AssertExpectations(t)
}

func TestOfferHandler_Accept_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockOfferSvc := new(MockOfferService)
	handler := handlers.NewOfferHandler(mockOfferSvc)

	r := gin.New()
	r.POST("/v1/offers/:id/accept", asUser("intruder", models.RoleUser), handler.Accept)

	mockOfferSvc.On("Accept", mock.Anything, "offer-1", "intruder").
		Return(nil, fmt.Errorf("%w: only the seller may accept offers", services.ErrForbidden))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/offers/offer-1/accept", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockOfferSvc.AssertExpectations(t)
}

func TestOfferHandler_ListForListing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockOfferSvc := new(MockOfferService)
	handler := handlers.NewOfferHandler(mockOfferSvc)

	r := gin.New()
	r.GET("/v1/listings/:id/offers", asUser("seller-1", models.RoleUser), handler.ListForListing)

	details := []models.OfferDetail{
		{Offer: models.Offer{ListingID: "listing-1", BuyerID: "buyer-1", Amount: 8000}},
		{Offer: models.Offer{ListingID: "listing-1", BuyerID: "buyer-2", Amount: 8500}},
	}
	mockOfferSvc.On("ListForListing", mock.Anything, "listing-1", "seller-1").Return(details, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/listing-1/offers", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	data, ok := respBody["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
	mockOfferSvc.AssertExpectations(t)
}
