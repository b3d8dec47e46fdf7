package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/cache"
	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

// ListingFilter narrows the public listing index. Zero values mean "no
// constraint".
type ListingFilter struct {
	Category Category
	MinPrice float64
	MaxPrice float64
	SellerID string
	Status   models.ListingStatus
	Search   string
	Page     int
	PageSize int
}

// Category aliases models.Category so handler code can build filters without
// importing models directly.
type Category = models.Category

// ListingInput carries the writable fields of a listing.
type ListingInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    models.Category  `json:"category"`
	Brand       string           `json:"brand"`
	Model       string           `json:"model"`
	Year        *int             `json:"year"`
	Condition   models.Condition `json:"condition"`
	AskingPrice float64          `json:"asking_price"`
	Images      []string         `json:"images"`
	EndDate     *time.Time       `json:"end_date"`
}

// IListingService defines the interface for listing operations.
type IListingService interface {
	Create(ctx context.Context, sellerID string, input ListingInput) (*models.Listing, error)
	Get(ctx context.Context, listingID string) (*models.ListingDetail, error)
	Update(ctx context.Context, listingID, actorID string, input ListingInput) (*models.Listing, error)
	Delete(ctx context.Context, listingID, actorID string, isAdmin bool) error
	List(ctx context.Context, filter ListingFilter) ([]models.ListingDetail, int64, error)
	AddImage(ctx context.Context, listingID, imageKey string) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

const (
	listingsCollection = "listings"
	maxListingImages   = 10
	defaultPageSize    = 20
	maxPageSize        = 100
)

// listingService implements IListingService.
type listingService struct {
	db    *mongo.Database
	cfg   *config.Config
	cache *cache.JSONCache
	users IUserService
}

// NewListingService creates a new ListingService. cache may be nil.
func NewListingService(db *mongo.Database, cfg *config.Config, c *cache.JSONCache, users IUserService) IListingService {
	return &listingService{db: db, cfg: cfg, cache: c, users: users}
}

func validateListingInput(input ListingInput) map[string]string {
	fields := map[string]string{}
	if input.Title == "" {
		fields["title"] = "Title is required"
	} else if len(input.Title) > 200 {
		fields["title"] = "Title must be at most 200 characters"
	}
	if input.Description == "" {
		fields["description"] = "Description is required"
	}
	if !models.ValidCategory(input.Category) {
		fields["category"] = "Category must be WATCH, BAG or JEWELRY"
	}
	if !models.ValidCondition(input.Condition) {
		fields["condition"] = "Condition must be NEW, EXCELLENT, GOOD or FAIR"
	}
	if input.AskingPrice <= 0 {
		fields["asking_price"] = "Asking price must be positive"
	}
	if len(input.Images) > maxListingImages {
		fields["images"] = fmt.Sprintf("At most %d images are allowed", maxListingImages)
	}
	if input.Year != nil && (*input.Year < 1800 || *input.Year > time.Now().UTC().Year()+1) {
		fields["year"] = "Year is out of range"
	}
	if input.EndDate != nil && input.EndDate.Before(time.Now().UTC()) {
		fields["end_date"] = "End date must be in the future"
	}
	return fields
}

// Create inserts a new ACTIVE listing owned by sellerID.
func (s *listingService) Create(ctx context.Context, sellerID string, input ListingInput) (*models.Listing, error) {
	if fields := validateListingInput(input); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	seller, err := s.users.FindByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.Banned {
		return nil, fmt.Errorf("%w: banned users cannot create listings", ErrForbidden)
	}

	now := time.Now().UTC()
	images := input.Images
	if images == nil {
		images = []string{}
	}
	listing := &models.Listing{
		SellerID:    sellerID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Brand:       input.Brand,
		Model:       input.Model,
		Year:        input.Year,
		Condition:   input.Condition,
		AskingPrice: input.AskingPrice,
		Images:      images,
		Status:      models.ListingStatusActive,
		EndDate:     input.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc, err := db.InsertOne(ctx, s.db.Collection(listingsCollection), listing)
	if err != nil {
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}
	created := doc.(*models.Listing)

	if err := s.users.IncListingCount(ctx, sellerID, 1); err != nil {
		log.Printf("WARN: listing %s created but counter update failed: %v", created.ID, err)
	}
	return created, nil
}

// Get returns the listing joined with its seller summary and the count of
// pending offers. Single-listing reads go through the Redis cache.
func (s *listingService) Get(ctx context.Context, listingID string) (*models.ListingDetail, error) {
	key := cache.ListingKey(listingID)
	var cached models.ListingDetail
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	seller, err := s.users.FindByID(ctx, listing.SellerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	offerCount, err := s.db.Collection(offersCollection).CountDocuments(ctx,
		bson.M{"listing_id": listingID, "status": models.OfferStatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to count offers for listing %s: %w", listingID, err)
	}

	detail := &models.ListingDetail{Listing: *listing, OfferCount: offerCount}
	if seller != nil {
		detail.Seller = seller.Summary()
	}
	s.cache.Set(ctx, key, detail)
	return detail, nil
}

func (s *listingService) findListing(ctx context.Context, listingID string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}
	return &listing, nil
}

// Update replaces the writable fields of an ACTIVE listing. Only the owning
// seller may update, and only while no offer has been accepted.
func (s *listingService) Update(ctx context.Context, listingID, actorID string, input ListingInput) (*models.Listing, error) {
	if fields := validateListingInput(input); len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	images := input.Images
	if images == nil {
		images = []string{}
	}
	update := bson.M{"$set": bson.M{
		"title":        input.Title,
		"description":  input.Description,
		"category":     input.Category,
		"brand":        input.Brand,
		"model":        input.Model,
		"year":         input.Year,
		"condition":    input.Condition,
		"asking_price": input.AskingPrice,
		"images":       images,
		"end_date":     input.EndDate,
		"updated_at":   time.Now().UTC(),
	}}

	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{
		"_id":       listingID,
		"seller_id": actorID,
		"status":    models.ListingStatusActive,
		"deleted":   false,
	}, update)
	if err != nil {
		return nil, fmt.Errorf("db error updating listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return nil, s.diagnoseWriteMiss(ctx, listingID, actorID, "update")
	}

	s.cache.Invalidate(ctx, cache.ListingKey(listingID))
	return s.findListing(ctx, listingID)
}

// Delete soft-deletes a listing. The owning seller may delete while ACTIVE;
// admins may delete regardless of status.
func (s *listingService) Delete(ctx context.Context, listingID, actorID string, isAdmin bool) error {
	filter := bson.M{"_id": listingID, "deleted": false}
	if !isAdmin {
		filter["seller_id"] = actorID
		filter["status"] = models.ListingStatusActive
	}

	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("db error deleting listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return s.diagnoseWriteMiss(ctx, listingID, actorID, "delete")
	}

	s.cache.Invalidate(ctx, cache.ListingKey(listingID))

	var listing models.Listing
	if err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing); err == nil {
		if err := s.users.IncListingCount(ctx, listing.SellerID, -1); err != nil {
			log.Printf("WARN: listing %s deleted but counter update failed: %v", listingID, err)
		}
	}
	return nil
}

// diagnoseWriteMiss works out why a guarded listing write matched nothing, so
// the caller gets a precise error instead of a blanket 404.
func (s *listingService) diagnoseWriteMiss(ctx context.Context, listingID, actorID, op string) error {
	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.SellerID != actorID {
		return fmt.Errorf("%w: only the seller may %s listing %s", ErrForbidden, op, listingID)
	}
	return fmt.Errorf("%w: listing %s is %s and can no longer be changed", ErrConflict, listingID, listing.Status)
}

// List returns a filtered page of listings, newest first, with the total count
// for pagination. Deleted listings never appear; status defaults to ACTIVE.
func (s *listingService) List(ctx context.Context, filter ListingFilter) ([]models.ListingDetail, int64, error) {
	query := bson.M{"deleted": false}
	if filter.Status != "" {
		query["status"] = filter.Status
	} else {
		query["status"] = models.ListingStatusActive
	}
	if filter.Category != "" {
		if !models.ValidCategory(filter.Category) {
			return nil, 0, NewValidationError(map[string]string{"category": "Unknown category"})
		}
		query["category"] = filter.Category
	}
	if filter.SellerID != "" {
		query["seller_id"] = filter.SellerID
	}
	if filter.MinPrice > 0 || filter.MaxPrice > 0 {
		price := bson.M{}
		if filter.MinPrice > 0 {
			price["$gte"] = filter.MinPrice
		}
		if filter.MaxPrice > 0 {
			price["$lte"] = filter.MaxPrice
		}
		query["asking_price"] = price
	}
	if filter.Search != "" {
		query["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"brand": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"model": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	coll := s.db.Collection(listingsCollection)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listings: %w", err)
	}

	// The index page joins seller names in one batch lookup instead of a
	// query per row.
	sellers, err := s.sellerSummaries(ctx, listings)
	if err != nil {
		return nil, 0, err
	}
	details := make([]models.ListingDetail, 0, len(listings))
	for _, l := range listings {
		details = append(details, models.ListingDetail{Listing: l, Seller: sellers[l.SellerID]})
	}
	return details, total, nil
}

func (s *listingService) sellerSummaries(ctx context.Context, listings []models.Listing) (map[string]models.UserSummary, error) {
	ids := make([]string, 0, len(listings))
	seen := map[string]bool{}
	for _, l := range listings {
		if !seen[l.SellerID] {
			seen[l.SellerID] = true
			ids = append(ids, l.SellerID)
		}
	}
	summaries := map[string]models.UserSummary{}
	if len(ids) == 0 {
		return summaries, nil
	}
	cursor, err := s.db.Collection(usersCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "name": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}
	defer cursor.Close(ctx)
	var users []models.UserSummary
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode sellers: %w", err)
	}
	for _, u := range users {
		summaries[u.ID] = u
	}
	return summaries, nil
}

// AddImage appends a processed image key to a listing. Called by the image
// worker after normalization, so there is no actor check here.
func (s *listingService) AddImage(ctx context.Context, listingID, imageKey string) error {
	result, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "deleted": false},
		bson.M{
			"$addToSet": bson.M{"images": imageKey},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("db error adding image to listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
	}
	s.cache.Invalidate(ctx, cache.ListingKey(listingID))
	return nil
}

// ExpireDue flips every ACTIVE listing whose end date has passed to EXPIRED.
// Called from the background sweep task. Returns the number flipped.
func (s *listingService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.Collection(listingsCollection).UpdateMany(ctx, bson.M{
		"status":   models.ListingStatusActive,
		"deleted":  false,
		"end_date": bson.M{"$ne": nil, "$lte": now},
	}, bson.M{"$set": bson.M{
		"status":     models.ListingStatusExpired,
		"updated_at": now,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	return result.ModifiedCount, nil
}
