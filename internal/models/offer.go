package models

import (
	"time"
)

// OfferStatus is the lifecycle state of an offer.
// PENDING -> ACCEPTED or REJECTED; both are terminal and an offer is never
// reopened, except that a failed settlement puts an ACCEPTED offer back to
// PENDING so the buyer can retry.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusRejected OfferStatus = "REJECTED"
)

// Offer is a private, sealed bid by one buyer on one listing. A (buyer,
// listing) pair holds at most one PENDING offer at a time.
type Offer struct {
	Base      `bson:",inline"`
	ListingID string      `bson:"listing_id" json:"listing_id"`
	BuyerID   string      `bson:"buyer_id" json:"buyer_id"`
	Amount    float64     `bson:"amount" json:"amount"`
	Message   string      `bson:"message,omitempty" json:"message,omitempty"`
	Status    OfferStatus `bson:"status" json:"status"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updated_at"`
}

// OfferDetail is an offer joined with buyer and listing summaries for API
// responses.
type OfferDetail struct {
	Offer   `bson:",inline"`
	Buyer   UserSummary    `json:"buyer"`
	Listing ListingSummary `json:"listing"`
}

// ListingSummary is the slice of a listing embedded in offer responses.
type ListingSummary struct {
	ID          string  `bson:"_id" json:"id"`
	Title       string  `bson:"title" json:"title"`
	AskingPrice float64 `bson:"asking_price" json:"asking_price"`
}
