package models

import (
	"time"
)

// Review is a 1-5 rating left by a buyer who completed a payment for the
// listing. The purchase requirement is enforced by the review service, not by
// a schema constraint.
type Review struct {
	Base       `bson:",inline"`
	ListingID  string    `bson:"listing_id" json:"listing_id"`
	ReviewerID string    `bson:"reviewer_id" json:"reviewer_id"`
	Rating     int       `bson:"rating" json:"rating"`
	Comment    string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// ReviewStats aggregates ratings for a seller.
type ReviewStats struct {
	Count         int64   `json:"count"`
	AverageRating float64 `json:"average_rating"`
}
