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

func TestListingHandler_Get_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockListingSvc)

	r := gin.New()
	r.GET("/v1/listings/:id", handler.Get)

	detail := &models.ListingDetail{
		Listing: models.Listing{Title: "Nautilus 5711", Status: models.ListingStatusActive},
		Seller:  models.UserSummary{ID: "seller-1", Name: "Seller"},
	}
	detail.SetID("listing-1")
	mockListingSvc.On("Get", mock.Anything, "listing-1").Return(detail, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/listing-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody models.ListingDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, "Nautilus 5711", respBody.Title)
	assert.Equal(t, "Seller", respBody.Seller.Name)
	mockListingSvc.AssertExpectations(t)
}

func TestListingHandler_Get_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockListingSvc)

	r := gin.New()
	r.GET("/v1/listings/:id", handler.Get)

	mockListingSvc.On("Get", mock.Anything, "nope").
		Return(nil, fmt.Errorf("%w: listing nope", services.ErrNotFound))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings/nope", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestListingHandler_Create(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockListingSvc)

	r := gin.New()
	r.POST("/v1/listings", asUser("seller-1", models.RoleUser), handler.Create)

	created := &models.Listing{SellerID: "seller-1", Title: "Royal Oak", Status: models.ListingStatusActive}
	created.GenID()
	mockListingSvc.On("Create", mock.Anything, "seller-1", mock.MatchedBy(func(in services.ListingInput) bool {
		return in.Title == "Royal Oak" && in.AskingPrice == 45000
	})).Return(created, nil)

	w := postJSON(r, "/v1/listings", gin.H{
		"title":        "Royal Oak",
		"description":  "15202ST",
		"category":     "WATCH",
		"condition":    "EXCELLENT",
		"asking_price": 45000,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestListingHandler_Delete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockListingSvc)

	r := gin.New()
	r.DELETE("/v1/listings/:id", asUser("admin-1", models.RoleAdmin), handler.Delete)

	mockListingSvc.On("Delete", mock.Anything, "listing-1", "admin-1", true).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/listings/listing-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockListingSvc.AssertExpectations(t)
}

func TestListingHandler_List_QueryParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockListingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(mockListingSvc)

	r := gin.New()
	r.GET("/v1/listings", handler.List)

	expected := services.ListingFilter{
		Category: models.CategoryBag,
		MinPrice: 1000,
		MaxPrice: 20000,
		Search:   "birkin",
		Page:     2,
		PageSize: 10,
	}
	results := []models.ListingDetail{{Listing: models.Listing{Title: "Birkin 30"}}}
	mockListingSvc.On("List", mock.Anything, expected).Return(results, int64(11), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/listings?category=BAG&min_price=1000&max_price=20000&q=birkin&page=2&page_size=10", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, float64(11), respBody["total"])
	assert.Equal(t, float64(2), respBody["page"])
	mockListingSvc.AssertExpectations(t)
}
