package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/testutil"
)

func setupListingTestDB(t *testing.T, dbName string) *mongo.Database {
	database := testutil.SetupTestDB(t, dbName,
		"users", "listings", "offers", "notifications")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func newListingServiceForTest(database *mongo.Database) IListingService {
	users := NewUserService(database, testConfig())
	return NewListingService(database, testConfig(), nil, users)
}

func validListingInput() ListingInput {
	return ListingInput{
		Title:       "Daytona 116500LN",
		Description: "White dial, unworn",
		Category:    models.CategoryWatch,
		Brand:       "Rolex",
		Model:       "116500LN",
		Condition:   models.ConditionNew,
		AskingPrice: 32000,
	}
}

func TestListingService_CreateValidation(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_validation")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")

	input := validListingInput()
	input.Title = ""
	input.Category = "CAR"
	input.AskingPrice = -5

	_, err := svc.Create(ctx, seller.ID, input)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "category")
	assert.Contains(t, ve.Fields, "asking_price")
}

func TestListingService_CreateAndGet(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_create")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")

	input := validListingInput()
	input.Images = []string{"dial.jpg", "caseback.jpg"}
	listing, err := svc.Create(ctx, seller.ID, input)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, listing.Status)
	assert.NotEmpty(t, listing.ID)

	detail, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daytona 116500LN", detail.Title)
	assert.Equal(t, "Seller", detail.Seller.Name)
	assert.Equal(t, int64(0), detail.OfferCount)
	// Image order is preserved on the round trip
	assert.Equal(t, []string{"dial.jpg", "caseback.jpg"}, detail.Images)

	// Seller's listing counter was bumped
	var updatedSeller models.User
	require.NoError(t, database.Collection("users").FindOne(ctx, bson.M{"_id": seller.ID}).Decode(&updatedSeller))
	assert.Equal(t, 1, updatedSeller.ListingCount)
}

func TestListingService_BannedSellerCannotCreate(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_banned")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Banned", "banned@example.com")
	_, err := database.Collection("users").UpdateOne(ctx,
		bson.M{"_id": seller.ID}, bson.M{"$set": bson.M{"banned": true}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, seller.ID, validListingInput())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListingService_UpdateGuards(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_update")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	other := insertTestUser(t, database, "Other", "other@example.com")
	listing, err := svc.Create(ctx, seller.ID, validListingInput())
	require.NoError(t, err)

	input := validListingInput()
	input.AskingPrice = 30000

	// Only the owner may update
	_, err = svc.Update(ctx, listing.ID, other.ID, input)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, listing.ID, seller.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, updated.AskingPrice)

	// A sold listing can no longer be changed
	_, err = database.Collection("listings").UpdateOne(ctx,
		bson.M{"_id": listing.ID},
		bson.M{"$set": bson.M{"status": models.ListingStatusSold}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, listing.ID, seller.ID, input)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListingService_SoftDelete(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_delete")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	other := insertTestUser(t, database, "Other", "other@example.com")
	listing, err := svc.Create(ctx, seller.ID, validListingInput())
	require.NoError(t, err)

	err = svc.Delete(ctx, listing.ID, other.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, listing.ID, seller.ID, false))

	// Gone from reads, still present in the collection
	_, err = svc.Get(ctx, listing.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err := database.Collection("listings").CountDocuments(ctx, bson.M{"_id": listing.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Admins can remove a non-ACTIVE listing the seller no longer can
	sold, err := svc.Create(ctx, seller.ID, validListingInput())
	require.NoError(t, err)
	_, err = database.Collection("listings").UpdateOne(ctx,
		bson.M{"_id": sold.ID},
		bson.M{"$set": bson.M{"status": models.ListingStatusSold}})
	require.NoError(t, err)

	err = svc.Delete(ctx, sold.ID, seller.ID, false)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, svc.Delete(ctx, sold.ID, "admin-actor", true))
}

func TestListingService_ListFilters(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_list")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")

	watch := validListingInput()
	_, err := svc.Create(ctx, seller.ID, watch)
	require.NoError(t, err)

	bag := ListingInput{
		Title:       "Birkin 30",
		Description: "Togo leather",
		Category:    models.CategoryBag,
		Brand:       "Hermes",
		Condition:   models.ConditionExcellent,
		AskingPrice: 18000,
	}
	_, err = svc.Create(ctx, seller.ID, bag)
	require.NoError(t, err)

	expired, err := svc.Create(ctx, seller.ID, validListingInput())
	require.NoError(t, err)
	_, err = database.Collection("listings").UpdateOne(ctx,
		bson.M{"_id": expired.ID},
		bson.M{"$set": bson.M{"status": models.ListingStatusExpired}})
	require.NoError(t, err)

	// Default view: ACTIVE only
	results, total, err := svc.List(ctx, ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)

	// Category filter
	results, total, err = svc.List(ctx, ListingFilter{Category: models.CategoryBag})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Birkin 30", results[0].Title)

	// Price range
	_, total, err = svc.List(ctx, ListingFilter{MinPrice: 20000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// Case-insensitive search on brand
	results, total, err = svc.List(ctx, ListingFilter{Search: "hermes"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Birkin 30", results[0].Title)

	// Explicit status filter surfaces the expired one
	_, total, err = svc.List(ctx, ListingFilter{Status: models.ListingStatusExpired})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// Unknown category is a validation error
	_, _, err = svc.List(ctx, ListingFilter{Category: "CAR"})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListingService_ListPagination(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_page")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, seller.ID, validListingInput())
		require.NoError(t, err)
	}

	page1, total, err := svc.List(ctx, ListingFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page1, 2)

	page3, _, err := svc.List(ctx, ListingFilter{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestListingService_ExpireDue(t *testing.T) {
	database := setupListingTestDB(t, "testdb_listing_expire")
	svc := newListingServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")

	due := validListingInput()
	endsSoon := time.Now().UTC().Add(time.Minute)
	due.EndDate = &endsSoon
	dueListing, err := svc.Create(ctx, seller.ID, due)
	require.NoError(t, err)

	open, err := svc.Create(ctx, seller.ID, validListingInput())
	require.NoError(t, err)

	expired, err := svc.ExpireDue(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var reloaded models.Listing
	require.NoError(t, database.Collection("listings").FindOne(ctx, bson.M{"_id": dueListing.ID}).Decode(&reloaded))
	assert.Equal(t, models.ListingStatusExpired, reloaded.Status)

	require.NoError(t, database.Collection("listings").FindOne(ctx, bson.M{"_id": open.ID}).Decode(&reloaded))
	assert.Equal(t, models.ListingStatusActive, reloaded.Status)
}
