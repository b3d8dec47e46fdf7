package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

// IReviewService defines the interface for buyer reviews.
type IReviewService interface {
	Create(ctx context.Context, listingID, reviewerID string, rating int, comment string) (*models.Review, error)
	ListForListing(ctx context.Context, listingID string) ([]models.Review, error)
	SellerStats(ctx context.Context, sellerID string) (*models.ReviewStats, error)
}

const reviewsCollection = "reviews"

// reviewService implements IReviewService.
type reviewService struct {
	db            *mongo.Database
	notifications INotificationService
}

// NewReviewService creates a new ReviewService.
func NewReviewService(db *mongo.Database, notifications INotificationService) IReviewService {
	return &reviewService{db: db, notifications: notifications}
}

// Create records a review. Only the buyer with a COMPLETED payment on the
// listing may review, once per listing.
func (s *reviewService) Create(ctx context.Context, listingID, reviewerID string, rating int, comment string) (*models.Review, error) {
	fields := map[string]string{}
	if rating < 1 || rating > 5 {
		fields["rating"] = "Rating must be between 1 and 5"
	}
	if len(comment) > 2000 {
		fields["comment"] = "Comment must be at most 2000 characters"
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}

	// The purchase gate: a review requires a captured payment, not just an
	// accepted offer.
	paid, err := s.db.Collection(paymentsCollection).CountDocuments(ctx, bson.M{
		"listing_id": listingID,
		"buyer_id":   reviewerID,
		"status":     models.PaymentStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check payments for listing %s: %w", listingID, err)
	}
	if paid == 0 {
		return nil, fmt.Errorf("%w: only the buyer of a completed purchase may review", ErrForbidden)
	}

	existing, err := s.db.Collection(reviewsCollection).CountDocuments(ctx,
		bson.M{"listing_id": listingID, "reviewer_id": reviewerID})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing reviews: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: you already reviewed this listing", ErrConflict)
	}

	doc, err := db.InsertOne(ctx, s.db.Collection(reviewsCollection), &models.Review{
		ListingID:  listingID,
		ReviewerID: reviewerID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert review for listing %s: %w", listingID, err)
	}

	s.notifications.Notify(ctx, listing.SellerID, "New Review",
		fmt.Sprintf("You received a %d-star review on %q.", rating, listing.Title),
		models.NotificationInfo)
	return doc.(*models.Review), nil
}

// ListForListing returns a listing's reviews, newest first.
func (s *reviewService) ListForListing(ctx context.Context, listingID string) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(reviewsCollection).Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews for listing %s: %w", listingID, err)
	}
	defer cursor.Close(ctx)

	var reviews []models.Review
	if err = cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}

// SellerStats aggregates the count and average rating across all reviews on a
// seller's listings.
func (s *reviewService) SellerStats(ctx context.Context, sellerID string) (*models.ReviewStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         listingsCollection,
			"localField":   "listing_id",
			"foreignField": "_id",
			"as":           "listing",
		}}},
		{{Key: "$match", Value: bson.M{"listing.seller_id": sellerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"count":          bson.M{"$sum": 1},
			"average_rating": bson.M{"$avg": "$rating"},
		}}},
	}

	cursor, err := s.db.Collection(reviewsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate review stats for seller %s: %w", sellerID, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count         int64   `bson:"count"`
		AverageRating float64 `bson:"average_rating"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode review stats: %w", err)
	}
	if len(rows) == 0 {
		return &models.ReviewStats{}, nil
	}
	return &models.ReviewStats{Count: rows[0].Count, AverageRating: rows[0].AverageRating}, nil
}
