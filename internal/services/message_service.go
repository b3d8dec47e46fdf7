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

// IMessageService defines the interface for listing-thread messaging.
type IMessageService interface {
	Send(ctx context.Context, listingID, senderID, content string) (*models.Message, error)
	Thread(ctx context.Context, listingID, actorID string) ([]models.Message, error)
	Conversations(ctx context.Context, userID string) ([]models.Conversation, error)
}

const messagesCollection = "messages"

// messageService implements IMessageService. A thread belongs to a listing;
// the participants are the seller and anyone who has messaged or made an
// offer on it.
type messageService struct {
	db            *mongo.Database
	notifications INotificationService
}

// NewMessageService creates a new MessageService.
func NewMessageService(db *mongo.Database, notifications INotificationService) IMessageService {
	return &messageService{db: db, notifications: notifications}
}

// Send appends a message to a listing thread and notifies the counterparty.
func (s *messageService) Send(ctx context.Context, listingID, senderID, content string) (*models.Message, error) {
	if content == "" {
		return nil, NewValidationError(map[string]string{"content": "Message content is required"})
	}
	if len(content) > 2000 {
		return nil, NewValidationError(map[string]string{"content": "Message must be at most 2000 characters"})
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

	doc, err := db.InsertOne(ctx, s.db.Collection(messagesCollection), &models.Message{
		ListingID: listingID,
		SenderID:  senderID,
		Content:   content,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert message on listing %s: %w", listingID, err)
	}
	msg := doc.(*models.Message)

	// Buyers message the seller; the seller's replies go to the thread, so
	// only seller-bound sends trigger a notification here.
	if senderID != listing.SellerID {
		s.notifications.Notify(ctx, listing.SellerID, "New Message",
			fmt.Sprintf("You have a new message about %q.", listing.Title),
			models.NotificationInfo)
	}
	return msg, nil
}

// Thread returns a listing's messages oldest first and marks the ones not
// sent by the caller as read. Only participants may read: the seller, or a
// user who has messaged on the listing.
func (s *messageService) Thread(ctx context.Context, listingID, actorID string) ([]models.Message, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx,
		bson.M{"_id": listingID, "deleted": false}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID, err)
	}
	if actorID != listing.SellerID {
		sent, err := s.db.Collection(messagesCollection).CountDocuments(ctx,
			bson.M{"listing_id": listingID, "sender_id": actorID})
		if err != nil {
			return nil, fmt.Errorf("failed to check thread membership on listing %s: %w", listingID, err)
		}
		if sent == 0 {
			return nil, fmt.Errorf("%w: only thread participants may read messages", ErrForbidden)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for listing %s: %w", listingID, err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	_, err = s.db.Collection(messagesCollection).UpdateMany(ctx,
		bson.M{"listing_id": listingID, "sender_id": bson.M{"$ne": actorID}, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read on listing %s: %w", listingID, err)
	}
	return messages, nil
}

// Conversations aggregates the caller's message threads into an inbox: one
// row per listing with the last message and the unread count.
func (s *messageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	// A user participates in a thread if they sent a message or own the
	// listing.
	ownedIDs, err := s.ownedListingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"listing_id": bson.M{"$in": ownedIDs}},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$listing_id",
			"last_message": bson.M{"$first": "$content"},
			"last_at":      bson.M{"$first": "$created_at"},
			"unread_count": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$is_read", false}},
					bson.M{"$ne": bson.A{"$sender_id", userID}},
				}}, 1, 0,
			}}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         listingsCollection,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "listing",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"listing_title": bson.M{"$first": "$listing.title"},
		}}},
		{{Key: "$project", Value: bson.M{"listing": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_at", Value: -1}}}},
	}

	cursor, err := s.db.Collection(messagesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

func (s *messageService) ownedListingIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"seller_id": userID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode listing ids: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
