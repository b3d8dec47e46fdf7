package models

import (
	"time"
)

// Message is free-text communication on a listing thread.
type Message struct {
	Base      `bson:",inline"`
	ListingID string    `bson:"listing_id" json:"listing_id"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	Content   string    `bson:"content" json:"content"`
	IsRead    bool      `bson:"is_read" json:"is_read"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Conversation summarizes a listing thread for the inbox view.
type Conversation struct {
	ListingID    string    `bson:"_id" json:"listing_id"`
	ListingTitle string    `bson:"listing_title" json:"listing_title"`
	LastMessage  string    `bson:"last_message" json:"last_message"`
	LastAt       time.Time `bson:"last_at" json:"last_at"`
	UnreadCount  int64     `bson:"unread_count" json:"unread_count"`
}
