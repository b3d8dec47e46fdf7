package models

import (
	"time"
)

// PaymentStatus is the lifecycle state of a capture attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment records one monetary capture attempt against a listing/offer.
// Created when checkout begins, finalized by the settlement processor.
type Payment struct {
	Base              `bson:",inline"`
	ListingID         string        `bson:"listing_id" json:"listing_id"`
	OfferID           string        `bson:"offer_id,omitempty" json:"offer_id,omitempty"`
	BuyerID           string        `bson:"buyer_id" json:"buyer_id"`
	Amount            float64       `bson:"amount" json:"amount"`
	Commission        float64       `bson:"commission" json:"commission"`
	Currency          string        `bson:"currency" json:"currency"`
	Status            PaymentStatus `bson:"status" json:"status"`
	ProviderSessionID string        `bson:"provider_session_id,omitempty" json:"provider_session_id,omitempty"`
	ProviderIntentID  string        `bson:"provider_intent_id,omitempty" json:"provider_intent_id,omitempty"`
	Description       string        `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}

// TransactionType distinguishes buyer payments from platform commission.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeCommission TransactionType = "COMMISSION"
)

// TransactionStatus mirrors PaymentStatus for ledger entries.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is a platform-visible ledger entry. One or more are written per
// completed payment.
type Transaction struct {
	Base             `bson:",inline"`
	Type             TransactionType   `bson:"type" json:"type"`
	Status           TransactionStatus `bson:"status" json:"status"`
	Amount           float64           `bson:"amount" json:"amount"`
	Description      string            `bson:"description" json:"description"`
	UserID           string            `bson:"user_id" json:"user_id"`
	ListingID        string            `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	ProviderIntentID string            `bson:"provider_intent_id,omitempty" json:"provider_intent_id,omitempty"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
}

// WebhookEvent records a processed provider event. The _id is the provider's
// event id, so a duplicate delivery fails the insert and is treated as a
// no-op.
type WebhookEvent struct {
	ID         string    `bson:"_id" json:"id"`
	Type       string    `bson:"type" json:"type"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
}
