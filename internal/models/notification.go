package models

import (
	"time"
)

// NotificationType colours a notification in the UI.
type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationError   NotificationType = "ERROR"
)

// Notification is a purely advisory, user-scoped record. There is no delivery
// guarantee beyond the insert.
type Notification struct {
	Base      `bson:",inline"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Type      NotificationType `bson:"type" json:"type"`
	IsRead    bool             `bson:"is_read" json:"is_read"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
}
