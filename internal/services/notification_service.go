package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

// INotificationService defines the interface for notification operations.
type INotificationService interface {
	Create(ctx context.Context, userID, title, message string, nType models.NotificationType) (*models.Notification, error)
	Notify(ctx context.Context, userID, title, message string, nType models.NotificationType)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
}

const notificationsCollection = "notifications"

// notificationService implements INotificationService. It is insert-only:
// there is no delivery channel, retry queue, or read receipt beyond the
// is_read flag.
type notificationService struct {
	db *mongo.Database
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database) INotificationService {
	return &notificationService{db: db}
}

// Create inserts a notification row.
func (s *notificationService) Create(ctx context.Context, userID, title, message string, nType models.NotificationType) (*models.Notification, error) {
	doc, err := db.InsertOne(ctx, s.db.Collection(notificationsCollection), &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      nType,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification for user %s: %w", userID, err)
	}
	return doc.(*models.Notification), nil
}

// Notify is the fire-and-forget variant: an insert failure is logged and
// swallowed so it never blocks the operation that triggered it.
func (s *notificationService) Notify(ctx context.Context, userID, title, message string, nType models.NotificationType) {
	if _, err := s.Create(ctx, userID, title, message, nType); err != nil {
		log.Printf("WARN: best-effort notification for user %s dropped: %v", userID, err)
	}
}

// ListForUser returns the newest notifications for a user.
func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.db.Collection(notificationsCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. Only the owning user may do so.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	result, err := s.db.Collection(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": notificationID, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return fmt.Errorf("db error marking notification %s read: %w", notificationID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}
	return nil
}
