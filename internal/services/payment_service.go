package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/cache"
	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/payments"
)

// IPaymentService defines the interface for checkout and settlement.
type IPaymentService interface {
	CreateCheckoutSession(ctx context.Context, offerID, buyerID string) (*payments.CheckoutSession, error)
	HandleProviderEvent(ctx context.Context, event *payments.Event) error
	FindByOffer(ctx context.Context, offerID, actorID string) (*models.Payment, error)
}

// EmailEnqueuer queues an email for background delivery.
type EmailEnqueuer interface {
	EnqueueEmail(to, subject, body string) error
}

const (
	paymentsCollection      = "payments"
	transactionsCollection  = "transactions"
	webhookEventsCollection = "webhook_events"
)

// paymentService implements IPaymentService.
type paymentService struct {
	db            *mongo.Database
	cfg           *config.Config
	provider      payments.Provider
	cache         *cache.JSONCache
	users         IUserService
	notifications INotificationService
	emails        EmailEnqueuer
}

// NewPaymentService creates a new PaymentService. cache and emails may be nil.
func NewPaymentService(db *mongo.Database, cfg *config.Config, provider payments.Provider,
	c *cache.JSONCache, users IUserService, notifications INotificationService, emails EmailEnqueuer) IPaymentService {
	return &paymentService{
		db:            db,
		cfg:           cfg,
		provider:      provider,
		cache:         c,
		users:         users,
		notifications: notifications,
		emails:        emails,
	}
}

// CreateCheckoutSession opens a hosted checkout for an accepted offer. Only
// the winning buyer may pay; the charged total is the offer amount plus the
// platform commission. An existing PENDING payment for the offer is reused so
// abandoning checkout and coming back does not pile up payment rows.
func (s *paymentService) CreateCheckoutSession(ctx context.Context, offerID, buyerID string) (*payments.CheckoutSession, error) {
	var offer models.Offer
	err := s.db.Collection(offersCollection).FindOne(ctx, bson.M{"_id": offerID}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: offer %s", ErrNotFound, offerID)
		}
		return nil, fmt.Errorf("error finding offer %s: %w", offerID, err)
	}
	if offer.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: only the offer's buyer may pay", ErrForbidden)
	}
	if offer.Status != models.OfferStatusAccepted {
		return nil, fmt.Errorf("%w: offer %s is %s, only accepted offers can be paid", ErrConflict, offerID, offer.Status)
	}

	var listing models.Listing
	err = s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": offer.ListingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, offer.ListingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", offer.ListingID, err)
	}

	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	commission := payments.CalculateCommission(offer.Amount, s.cfg.CommissionRate)
	payment, err := s.findOrCreatePending(ctx, &offer, &listing, commission)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		Currency:      s.cfg.CurrencyCode,
		SuccessURL:    s.cfg.CheckoutSuccessURL,
		CancelURL:     s.cfg.CheckoutCancelURL,
		CustomerEmail: buyer.Email,
		Metadata: map[string]string{
			"payment_id": payment.ID,
			"offer_id":   offer.ID,
			"listing_id": listing.ID,
			"buyer_id":   buyerID,
		},
		Items: []payments.CheckoutItem{
			{
				Name:        listing.Title,
				Description: fmt.Sprintf("Accepted offer on %s", listing.Title),
				AmountCents: payments.ToCents(offer.Amount),
			},
			{
				Name:        "Platform fee",
				Description: fmt.Sprintf("%.0f%% buyer commission", s.cfg.CommissionRate*100),
				AmountCents: payments.ToCents(commission),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Collection(paymentsCollection).UpdateOne(ctx,
		bson.M{"_id": payment.ID},
		bson.M{"$set": bson.M{"provider_session_id": session.ID, "updated_at": time.Now().UTC()}},
	); err != nil {
		return nil, fmt.Errorf("failed to attach session to payment %s: %w", payment.ID, err)
	}
	return session, nil
}

func (s *paymentService) findOrCreatePending(ctx context.Context, offer *models.Offer, listing *models.Listing, commission float64) (*models.Payment, error) {
	var existing models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{
		"offer_id": offer.ID,
		"status":   models.PaymentStatusPending,
	}).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding payment for offer %s: %w", offer.ID, err)
	}

	now := time.Now().UTC()
	doc, err := db.InsertOne(ctx, s.db.Collection(paymentsCollection), &models.Payment{
		ListingID:   listing.ID,
		OfferID:     offer.ID,
		BuyerID:     offer.BuyerID,
		Amount:      offer.Amount,
		Commission:  commission,
		Currency:    strings.ToUpper(s.cfg.CurrencyCode),
		Status:      models.PaymentStatusPending,
		Description: fmt.Sprintf("Purchase of %s", listing.Title),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment for offer %s: %w", offer.ID, err)
	}
	return doc.(*models.Payment), nil
}

// HandleProviderEvent applies one verified provider event. Events are
// deduplicated by inserting the provider's event id as the _id of a
// webhook_events row: a duplicate key insert means the event was already
// handled and the whole call is a no-op, so provider redeliveries are safe.
// If settlement fails the row is removed again, so a redelivery retries the
// settlement instead of hitting the dedup short-circuit.
func (s *paymentService) HandleProviderEvent(ctx context.Context, event *payments.Event) error {
	if event.Kind == payments.EventIgnored {
		return nil
	}

	_, err := s.db.Collection(webhookEventsCollection).InsertOne(ctx, &models.WebhookEvent{
		ID:         event.ID,
		Type:       event.RawType,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			log.Printf("Duplicate webhook event %s, skipping", event.ID)
			return nil
		}
		return fmt.Errorf("failed to record webhook event %s: %w", event.ID, err)
	}

	var settleErr error
	switch event.Kind {
	case payments.EventCheckoutCompleted:
		settleErr = s.settleCompleted(ctx, event)
	case payments.EventPaymentFailed:
		settleErr = s.settleFailed(ctx, event)
	}
	if settleErr != nil {
		// Release the dedup slot so the provider's redelivery can replay
		// the settlement. Every settlement write is conditional, so a
		// partial first attempt replays cleanly.
		if _, delErr := s.db.Collection(webhookEventsCollection).DeleteOne(ctx, bson.M{"_id": event.ID}); delErr != nil {
			log.Printf("CRITICAL: webhook event %s failed and could not be released for retry: %v", event.ID, delErr)
		}
		return settleErr
	}
	return nil
}

// settleCompleted finalizes a capture: payment COMPLETED, ledger entries for
// the payment and the commission, offer ACCEPTED, sibling offers REJECTED,
// listing SOLD, counters bumped, both parties notified. Every step is
// conditional or idempotent, so a partial failure can be replayed.
func (s *paymentService) settleCompleted(ctx context.Context, event *payments.Event) error {
	payment, err := s.paymentFromEvent(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.Collection(paymentsCollection).UpdateOne(ctx,
		bson.M{"_id": payment.ID, "status": bson.M{"$ne": models.PaymentStatusCompleted}},
		bson.M{"$set": bson.M{
			"status":             models.PaymentStatusCompleted,
			"provider_intent_id": event.IntentID,
			"updated_at":         now,
		}})
	if err != nil {
		return fmt.Errorf("failed to complete payment %s: %w", payment.ID, err)
	}
	if result.MatchedCount == 0 {
		log.Printf("Payment %s already completed, skipping settlement", payment.ID)
		return nil
	}

	var listing models.Listing
	if err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": payment.ListingID}).Decode(&listing); err != nil {
		return fmt.Errorf("error finding listing %s during settlement: %w", payment.ListingID, err)
	}

	total := payment.Amount + payment.Commission
	ledger := []*models.Transaction{
		{
			Type:             models.TransactionTypePayment,
			Status:           models.TransactionStatusCompleted,
			Amount:           total,
			Description:      fmt.Sprintf("Payment for %s", listing.Title),
			UserID:           payment.BuyerID,
			ListingID:        payment.ListingID,
			ProviderIntentID: event.IntentID,
			CreatedAt:        now,
		},
		{
			Type:             models.TransactionTypeCommission,
			Status:           models.TransactionStatusCompleted,
			Amount:           payment.Commission,
			Description:      fmt.Sprintf("Platform commission for %s", listing.Title),
			UserID:           listing.SellerID,
			ListingID:        payment.ListingID,
			ProviderIntentID: event.IntentID,
			CreatedAt:        now,
		},
	}
	for _, entry := range ledger {
		if _, err := db.InsertOne(ctx, s.db.Collection(transactionsCollection), entry); err != nil {
			return fmt.Errorf("failed to insert %s transaction for payment %s: %w", entry.Type, payment.ID, err)
		}
	}

	// The offer is normally already ACCEPTED and the listing already SOLD
	// from the acceptance step; these writes only matter after a failed
	// payment put the offer back to PENDING.
	if _, err := s.db.Collection(offersCollection).UpdateOne(ctx,
		bson.M{"_id": payment.OfferID, "status": bson.M{"$ne": models.OfferStatusAccepted}},
		bson.M{"$set": bson.M{"status": models.OfferStatusAccepted, "updated_at": now}},
	); err != nil {
		return fmt.Errorf("failed to mark offer %s accepted: %w", payment.OfferID, err)
	}
	if _, err := s.db.Collection(offersCollection).UpdateMany(ctx,
		bson.M{"listing_id": payment.ListingID, "status": models.OfferStatusPending},
		bson.M{"$set": bson.M{"status": models.OfferStatusRejected, "updated_at": now}},
	); err != nil {
		return fmt.Errorf("failed to reject sibling offers on listing %s: %w", payment.ListingID, err)
	}
	if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": payment.ListingID, "status": bson.M{"$ne": models.ListingStatusSold}},
		bson.M{"$set": bson.M{
			"status":        models.ListingStatusSold,
			"sold_offer_id": payment.OfferID,
			"updated_at":    now,
		}},
	); err != nil {
		return fmt.Errorf("failed to mark listing %s sold: %w", payment.ListingID, err)
	}
	s.cache.Invalidate(ctx, cache.ListingKey(payment.ListingID))

	if err := s.users.RecordSale(ctx, payment.BuyerID, listing.SellerID, total, payment.Amount); err != nil {
		log.Printf("WARN: settlement %s completed but counter update failed: %v", payment.ID, err)
	}

	s.notifications.Notify(ctx, payment.BuyerID, "Payment Successful",
		fmt.Sprintf("Your payment of %.2f for %q was received.", total, listing.Title),
		models.NotificationSuccess)
	s.notifications.Notify(ctx, listing.SellerID, "Item Sold",
		fmt.Sprintf("%q sold for %.2f. You will receive %.2f after commission.", listing.Title, payment.Amount, payment.Amount),
		models.NotificationSuccess)
	s.sendReceiptEmails(ctx, payment, &listing, total)
	return nil
}

// sendReceiptEmails queues the settlement emails. Like the notifications this
// is best-effort: settlement has already committed.
func (s *paymentService) sendReceiptEmails(ctx context.Context, payment *models.Payment, listing *models.Listing, total float64) {
	if s.emails == nil {
		return
	}
	if buyer, err := s.users.FindByID(ctx, payment.BuyerID); err == nil {
		if err := s.emails.EnqueueEmail(buyer.Email, "Your Luxbid receipt",
			fmt.Sprintf("Your payment of %.2f %s for %q was received. Thank you for your purchase.",
				total, payment.Currency, listing.Title)); err != nil {
			log.Printf("WARN: failed to queue buyer receipt for payment %s: %v", payment.ID, err)
		}
	}
	if seller, err := s.users.FindByID(ctx, listing.SellerID); err == nil {
		if err := s.emails.EnqueueEmail(seller.Email, "Your item sold on Luxbid",
			fmt.Sprintf("%q sold for %.2f %s. The proceeds will be transferred after commission.",
				listing.Title, payment.Amount, payment.Currency)); err != nil {
			log.Printf("WARN: failed to queue seller notice for payment %s: %v", payment.ID, err)
		}
	}
}

// settleFailed marks the payment FAILED and reopens the offer so the buyer
// can retry checkout. The listing stays SOLD-gated by the accepted offer flow
// only if another offer was accepted; here it returns to ACTIVE.
func (s *paymentService) settleFailed(ctx context.Context, event *payments.Event) error {
	payment, err := s.paymentFromEvent(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.Collection(paymentsCollection).UpdateOne(ctx,
		bson.M{"_id": payment.ID, "status": models.PaymentStatusPending},
		bson.M{"$set": bson.M{
			"status":             models.PaymentStatusFailed,
			"provider_intent_id": event.IntentID,
			"updated_at":         now,
		}})
	if err != nil {
		return fmt.Errorf("failed to mark payment %s failed: %w", payment.ID, err)
	}
	if result.MatchedCount == 0 {
		log.Printf("Payment %s not pending, ignoring failure event %s", payment.ID, event.ID)
		return nil
	}

	if _, err := s.db.Collection(offersCollection).UpdateOne(ctx,
		bson.M{"_id": payment.OfferID, "status": models.OfferStatusAccepted},
		bson.M{"$set": bson.M{"status": models.OfferStatusPending, "updated_at": now}},
	); err != nil {
		return fmt.Errorf("failed to reopen offer %s: %w", payment.OfferID, err)
	}
	if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": payment.ListingID, "status": models.ListingStatusSold, "sold_offer_id": payment.OfferID},
		bson.M{"$set": bson.M{"status": models.ListingStatusActive, "updated_at": now},
			"$unset": bson.M{"sold_offer_id": ""}},
	); err != nil {
		return fmt.Errorf("failed to reopen listing %s: %w", payment.ListingID, err)
	}
	s.cache.Invalidate(ctx, cache.ListingKey(payment.ListingID))

	s.notifications.Notify(ctx, payment.BuyerID, "Payment Failed",
		"Your payment could not be processed. Please try again.",
		models.NotificationError)
	return nil
}

// paymentFromEvent resolves the payment a provider event refers to, by the
// payment_id metadata stamped onto the checkout session.
func (s *paymentService) paymentFromEvent(ctx context.Context, event *payments.Event) (*models.Payment, error) {
	paymentID := event.Metadata["payment_id"]
	if paymentID == "" {
		return nil, fmt.Errorf("%w: event %s carries no payment_id metadata", ErrNotFound, event.ID)
	}
	var payment models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{"_id": paymentID}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: payment %s from event %s", ErrNotFound, paymentID, event.ID)
		}
		return nil, fmt.Errorf("error finding payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

func findNewestFirst() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
}

// FindByOffer returns the most recent payment attempt for an offer. Offers
// are sealed, so only the paying buyer and the listing's seller may look.
func (s *paymentService) FindByOffer(ctx context.Context, offerID, actorID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{"offer_id": offerID},
		findNewestFirst()).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no payment for offer %s", ErrNotFound, offerID)
		}
		return nil, fmt.Errorf("error finding payment for offer %s: %w", offerID, err)
	}

	if payment.BuyerID != actorID {
		var listing models.Listing
		if err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": payment.ListingID}).Decode(&listing); err != nil {
			return nil, fmt.Errorf("error finding listing %s: %w", payment.ListingID, err)
		}
		if listing.SellerID != actorID {
			return nil, fmt.Errorf("%w: only the buyer or seller may view this payment", ErrForbidden)
		}
	}
	return &payment, nil
}
