package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/testutil"
)

func setupReviewTestDB(t *testing.T, dbName string) *mongo.Database {
	database := testutil.SetupTestDB(t, dbName,
		"users", "listings", "payments", "reviews", "notifications")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func insertCompletedPayment(t *testing.T, database *mongo.Database, listingID, buyerID string, amount float64) {
	now := time.Now().UTC()
	payment := &models.Payment{
		ListingID: listingID,
		BuyerID:   buyerID,
		Amount:    amount,
		Currency:  "USD",
		Status:    models.PaymentStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payment.GenID()
	_, err := database.Collection("payments").InsertOne(context.Background(), payment)
	require.NoError(t, err)
}

func TestReviewService_PurchaseGate(t *testing.T) {
	database := setupReviewTestDB(t, "testdb_review_gate")
	notifications := NewNotificationService(database)
	svc := NewReviewService(database, notifications)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	buyer := insertTestUser(t, database, "Buyer", "buyer@example.com")
	bystander := insertTestUser(t, database, "Bystander", "bystander@example.com")
	listing := insertTestListing(t, database, seller.ID, 7000)
	insertCompletedPayment(t, database, listing.ID, buyer.ID, 6500)

	// No completed purchase, no review
	_, err := svc.Create(ctx, listing.ID, bystander.ID, 5, "looks great")
	assert.ErrorIs(t, err, ErrForbidden)

	review, err := svc.Create(ctx, listing.ID, buyer.ID, 4, "As described, fast shipping")
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)

	// Once per listing
	_, err = svc.Create(ctx, listing.ID, buyer.ID, 5, "second thoughts")
	assert.ErrorIs(t, err, ErrConflict)

	// Rating bounds
	_, err = svc.Create(ctx, listing.ID, buyer.ID, 6, "")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	// Seller hears about it
	feed, err := notifications.ListForUser(ctx, seller.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "New Review", feed[0].Title)
}

func TestReviewService_SellerStats(t *testing.T) {
	database := setupReviewTestDB(t, "testdb_review_stats")
	svc := NewReviewService(database, NewNotificationService(database))
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	buyerA := insertTestUser(t, database, "Buyer A", "a@example.com")
	buyerB := insertTestUser(t, database, "Buyer B", "b@example.com")

	listing1 := insertTestListing(t, database, seller.ID, 4000)
	listing2 := insertTestListing(t, database, seller.ID, 6000)
	insertCompletedPayment(t, database, listing1.ID, buyerA.ID, 4000)
	insertCompletedPayment(t, database, listing2.ID, buyerB.ID, 6000)

	_, err := svc.Create(ctx, listing1.ID, buyerA.ID, 5, "perfect")
	require.NoError(t, err)
	_, err = svc.Create(ctx, listing2.ID, buyerB.ID, 3, "slow shipping")
	require.NoError(t, err)

	stats, err := svc.SellerStats(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, 4.0, stats.AverageRating)

	// A seller with no reviews gets zeroes, not an error
	fresh := insertTestUser(t, database, "Fresh", "fresh@example.com")
	stats, err = svc.SellerStats(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Count)

	reviews, err := svc.ListForListing(ctx, listing1.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, buyerA.ID, reviews[0].ReviewerID)
}
