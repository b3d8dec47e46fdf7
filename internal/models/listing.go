package models

import (
	"time"
)

// Category is the kind of luxury item being sold.
type Category string

const (
	CategoryWatch   Category = "WATCH"
	CategoryBag     Category = "BAG"
	CategoryJewelry Category = "JEWELRY"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWatch, CategoryBag, CategoryJewelry:
		return true
	}
	return false
}

// Condition grades the physical state of an item.
type Condition string

const (
	ConditionNew       Condition = "NEW"
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
)

// ValidCondition reports whether c is one of the known conditions.
func ValidCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// ListingStatus is the lifecycle state of a listing.
// ACTIVE -> SOLD via offer acceptance or settlement; ACTIVE -> EXPIRED via the
// expiry sweep; ACTIVE -> CANCELLED via admin action. All three are terminal.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "ACTIVE"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusExpired   ListingStatus = "EXPIRED"
	ListingStatusCancelled ListingStatus = "CANCELLED"
)

// Listing represents a sale item owned by exactly one seller.
type Listing struct {
	Base        `bson:",inline"`
	SellerID    string        `bson:"seller_id" json:"seller_id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Category    Category      `bson:"category" json:"category"`
	Brand       string        `bson:"brand,omitempty" json:"brand,omitempty"`
	Model       string        `bson:"model,omitempty" json:"model,omitempty"`
	Year        *int          `bson:"year,omitempty" json:"year,omitempty"`
	Condition   Condition     `bson:"condition" json:"condition"`
	AskingPrice float64       `bson:"asking_price" json:"asking_price"`
	Images      []string      `bson:"images" json:"images"` // Ordered image keys/URLs
	Status      ListingStatus `bson:"status" json:"status"`
	SoldOfferID string        `bson:"sold_offer_id,omitempty" json:"sold_offer_id,omitempty"`
	EndDate     *time.Time    `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
	Deleted     bool          `bson:"deleted" json:"-"` // Soft delete flag
}

// ListingDetail is a listing joined with its seller summary and offer count.
type ListingDetail struct {
	Listing    `bson:",inline"`
	Seller     UserSummary `json:"seller"`
	OfferCount int64       `json:"offer_count"`
}
