package models

import (
	"time"
)

// Role defines the access level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AccountType distinguishes private sellers from dealers.
type AccountType string

const (
	AccountTypeIndividual AccountType = "INDIVIDUAL"
	AccountTypeCompany    AccountType = "COMPANY"
)

// MembershipTier is the paid membership level of an account.
type MembershipTier string

const (
	TierFree    MembershipTier = "FREE"
	TierBasic   MembershipTier = "BASIC"
	TierPremium MembershipTier = "PREMIUM"
	TierVIP     MembershipTier = "VIP"
	TierDiamond MembershipTier = "DIAMOND"
)

// User represents a marketplace account. Users are never hard-deleted.
type User struct {
	Base             `bson:",inline"`
	Name             string         `bson:"name" json:"name"`
	Email            string         `bson:"email" json:"email"`
	PasswordHash     string         `bson:"password" json:"-"` // Store hash, not plaintext
	Role             Role           `bson:"role" json:"role"`
	AccountType      AccountType    `bson:"account_type" json:"account_type"`
	MembershipTier   MembershipTier `bson:"membership_tier" json:"membership_tier"`
	MembershipExpiry *time.Time     `bson:"membership_expiry,omitempty" json:"membership_expiry,omitempty"`
	TotalSpent       float64        `bson:"total_spent" json:"total_spent"`
	TotalEarned      float64        `bson:"total_earned" json:"total_earned"`
	ListingCount     int            `bson:"listing_count" json:"listing_count"`
	Banned           bool           `bson:"banned" json:"banned"`
	CreatedAt        time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updated_at"`
	Deleted          bool           `bson:"deleted" json:"-"` // Soft delete flag
}

// UserSummary is the public slice of a user embedded in listing/offer responses.
type UserSummary struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name}
}
