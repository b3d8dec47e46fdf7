package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/cache"
	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

// IOfferService defines the interface for offer operations.
type IOfferService interface {
	Create(ctx context.Context, listingID, buyerID string, amount float64, message string) (*models.Offer, error)
	Accept(ctx context.Context, offerID, actorID string) (*models.Offer, error)
	FindByID(ctx context.Context, offerID string) (*models.Offer, error)
	ListForListing(ctx context.Context, listingID, actorID string) ([]models.OfferDetail, error)
	ListForBuyer(ctx context.Context, buyerID string) ([]models.OfferDetail, error)
}

const offersCollection = "offers"

// offerService implements IOfferService.
type offerService struct {
	db            *mongo.Database
	cache         *cache.JSONCache
	users         IUserService
	notifications INotificationService
}

// NewOfferService creates a new OfferService. cache may be nil.
func NewOfferService(db *mongo.Database, c *cache.JSONCache, users IUserService, notifications INotificationService) IOfferService {
	return &offerService{db: db, cache: c, users: users, notifications: notifications}
}

// Create places a sealed offer on an ACTIVE listing. A buyer cannot bid on
// their own listing and holds at most one PENDING offer per listing; the
// partial unique index on (listing_id, buyer_id, status=PENDING) backstops the
// pre-check under concurrency.
func (s *offerService) Create(ctx context.Context, listingID, buyerID string, amount float64, message string) (*models.Offer, error) {
	if amount <= 0 {
		return nil, NewValidationError(map[string]string{"amount": "Offer amount must be positive"})
	}
	if len(message) > 1000 {
		return nil, NewValidationError(map[string]string{"message": "Message must be at most 1000 characters"})
	}

	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer.Banned {
		return nil, fmt.Errorf("%w: banned users cannot make offers", ErrForbidden)
	}

	var listing models.Listing
	err = s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}
	if listing.SellerID == buyerID {
		return nil, fmt.Errorf("%w: you cannot make an offer on your own listing", ErrForbidden)
	}
	if listing.Status != models.ListingStatusActive {
		return nil, fmt.Errorf("%w: listing %s is %s and no longer accepts offers", ErrConflict, listingID, listing.Status)
	}

	now := time.Now().UTC()
	offer := &models.Offer{
		ListingID: listingID,
		BuyerID:   buyerID,
		Amount:    amount,
		Message:   message,
		Status:    models.OfferStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	offer.GenID()
	// Plain InsertOne here: a duplicate key means "buyer already has a
	// PENDING offer", never a ULID collision, so retrying would be wrong.
	if _, err := s.db.Collection(offersCollection).InsertOne(ctx, offer); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: you already have a pending offer on this listing", ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert offer: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ListingKey(listingID))
	s.notifications.Notify(ctx, listing.SellerID, "New Offer",
		fmt.Sprintf("You received an offer of %.2f on %q.", amount, listing.Title),
		models.NotificationInfo)
	return offer, nil
}

// Accept marks one PENDING offer as the winner. Only the listing's seller may
// accept, and only while the listing is ACTIVE.
//
// The whole operation hinges on one conditional update: flipping the listing
// from ACTIVE to SOLD with the seller and status in the filter. Exactly one
// concurrent acceptance can win that write, so the follow-up offer updates
// cannot race even without multi-document transactions. If the process dies
// between the flip and the offer updates, the listing carries sold_offer_id
// and the repair is a re-run of the offer updates.
func (s *offerService) Accept(ctx context.Context, offerID, actorID string) (*models.Offer, error) {
	offer, err := s.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusPending {
		return nil, fmt.Errorf("%w: offer %s is %s", ErrConflict, offerID, offer.Status)
	}

	var listing models.Listing
	err = s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": offer.ListingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, offer.ListingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", offer.ListingID, err)
	}
	if listing.SellerID != actorID {
		return nil, fmt.Errorf("%w: only the seller may accept offers", ErrForbidden)
	}

	now := time.Now().UTC()
	gate, err := s.db.Collection(listingsCollection).UpdateOne(ctx, bson.M{
		"_id":       listing.ID,
		"seller_id": actorID,
		"status":    models.ListingStatusActive,
		"deleted":   false,
	}, bson.M{"$set": bson.M{
		"status":        models.ListingStatusSold,
		"sold_offer_id": offerID,
		"updated_at":    now,
	}})
	if err != nil {
		return nil, fmt.Errorf("db error accepting offer %s: %w", offerID, err)
	}
	if gate.MatchedCount == 0 {
		// Someone else flipped the listing first (or it expired).
		return nil, fmt.Errorf("%w: listing %s is no longer active", ErrConflict, listing.ID)
	}

	if _, err := s.db.Collection(offersCollection).UpdateOne(ctx,
		bson.M{"_id": offerID},
		bson.M{"$set": bson.M{"status": models.OfferStatusAccepted, "updated_at": now}},
	); err != nil {
		return nil, fmt.Errorf("listing %s sold but offer %s not marked accepted: %w", listing.ID, offerID, err)
	}

	if _, err := s.db.Collection(offersCollection).UpdateMany(ctx,
		bson.M{"listing_id": listing.ID, "status": models.OfferStatusPending},
		bson.M{"$set": bson.M{"status": models.OfferStatusRejected, "updated_at": now}},
	); err != nil {
		return nil, fmt.Errorf("failed to reject sibling offers on listing %s: %w", listing.ID, err)
	}

	s.cache.Invalidate(ctx, cache.ListingKey(listing.ID))

	s.notifications.Notify(ctx, offer.BuyerID, "Offer Accepted",
		fmt.Sprintf("Your offer of %.2f on %q was accepted. Complete the payment to finish the purchase.", offer.Amount, listing.Title),
		models.NotificationSuccess)
	s.notifications.Notify(ctx, listing.SellerID, "Listing Sold",
		fmt.Sprintf("You accepted an offer of %.2f on %q.", offer.Amount, listing.Title),
		models.NotificationSuccess)

	offer.Status = models.OfferStatusAccepted
	offer.UpdatedAt = now
	return offer, nil
}

// FindByID finds an offer by id.
func (s *offerService) FindByID(ctx context.Context, offerID string) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.Collection(offersCollection).FindOne(ctx, bson.M{"_id": offerID}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: offer %s", ErrNotFound, offerID)
		}
		return nil, fmt.Errorf("error finding offer %s: %w", offerID, err)
	}
	return &offer, nil
}

// ListForListing returns a listing's offers. Offers are sealed: the seller
// sees all of them, a buyer sees only their own, everyone else sees nothing.
func (s *offerService) ListForListing(ctx context.Context, listingID, actorID string) ([]models.OfferDetail, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}

	query := bson.M{"listing_id": listingID}
	if listing.SellerID != actorID {
		query["buyer_id"] = actorID
	}
	return s.queryDetails(ctx, query)
}

// ListForBuyer returns all offers the buyer has made, newest first.
func (s *offerService) ListForBuyer(ctx context.Context, buyerID string) ([]models.OfferDetail, error) {
	return s.queryDetails(ctx, bson.M{"buyer_id": buyerID})
}

func (s *offerService) queryDetails(ctx context.Context, query bson.M) ([]models.OfferDetail, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(offersCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer cursor.Close(ctx)

	var offers []models.Offer
	if err = cursor.All(ctx, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}

	details := make([]models.OfferDetail, 0, len(offers))
	for _, o := range offers {
		detail := models.OfferDetail{Offer: o}
		if buyer, err := s.users.FindByID(ctx, o.BuyerID); err == nil {
			detail.Buyer = buyer.Summary()
		}
		var listing models.Listing
		if err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": o.ListingID}).Decode(&listing); err == nil {
			detail.Listing = models.ListingSummary{ID: listing.ID, Title: listing.Title, AskingPrice: listing.AskingPrice}
		}
		details = append(details, detail)
	}
	return details, nil
}
