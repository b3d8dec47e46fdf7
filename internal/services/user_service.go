package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AVAproject2025/Luxbid/internal/auth"
	"github.com/AVAproject2025/Luxbid/internal/config"
	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
)

// IUserService defines the interface for user account operations.
type IUserService interface {
	Register(ctx context.Context, name, email, password string, accountType models.AccountType) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpgradeMembership(ctx context.Context, userID string, tier models.MembershipTier) (*models.User, error)
	SetBanned(ctx context.Context, userID string, banned bool) error
	RecordSale(ctx context.Context, buyerID, sellerID string, total, net float64) error
	IncListingCount(ctx context.Context, userID string, delta int) error
}

const usersCollection = "users"

// MembershipFees maps paid tiers to their monthly fee in cents. FREE is absent
// on purpose.
var MembershipFees = map[models.MembershipTier]int64{
	models.TierBasic:   990,
	models.TierPremium: 2990,
	models.TierVIP:     9990,
	models.TierDiamond: 29990,
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// Register creates a new account with a bcrypt password hash.
func (s *userService) Register(ctx context.Context, name, email, password string, accountType models.AccountType) (*models.User, error) {
	fields := map[string]string{}
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		fields["name"] = "Name is required"
	}
	if !emailPattern.MatchString(email) {
		fields["email"] = "A valid email address is required"
	}
	if matched, _ := regexp.MatchString(s.cfg.PasswordRegexp, password); !matched {
		fields["password"] = "Password does not meet requirements"
	}
	if accountType != models.AccountTypeIndividual && accountType != models.AccountTypeCompany {
		fields["account_type"] = "Account type must be INDIVIDUAL or COMPANY"
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Role:           models.RoleUser,
		AccountType:    accountType,
		MembershipTier: models.TierFree,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	user.GenID()
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: an account with this email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return user, nil
}

// Authenticate verifies credentials and returns the user. Banned accounts
// cannot log in.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same error as a bad password so probing for accounts fails.
			return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrForbidden)
	}
	if user.Banned {
		return nil, fmt.Errorf("%w: account is banned", ErrForbidden)
	}
	return user, nil
}

// FindByID finds a non-deleted user by id.
func (s *userService) FindByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	return &user, nil
}

// FindByEmail finds a non-deleted user by email.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &user, nil
}

// UpgradeMembership moves the user to a paid tier, records a COMPLETED
// payment for the monthly fee and bumps totalSpent.
func (s *userService) UpgradeMembership(ctx context.Context, userID string, tier models.MembershipTier) (*models.User, error) {
	fee, ok := MembershipFees[tier]
	if !ok {
		return nil, NewValidationError(map[string]string{"tier": "Unknown membership tier"})
	}
	feeAmount := float64(fee) / 100

	now := time.Now().UTC()
	expiry := now.AddDate(0, 1, 0) // Monthly billing

	update := bson.M{"$set": bson.M{
		"membership_tier":   tier,
		"membership_expiry": expiry,
		"updated_at":        now,
	}}
	if feeAmount > 0 {
		update["$inc"] = bson.M{"total_spent": feeAmount}
	}

	result := s.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "deleted": false, "banned": false}, update)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to upgrade membership for user %s: %w", userID, err)
	}

	if feeAmount > 0 {
		_, err := db.InsertOne(ctx, s.db.Collection(paymentsCollection), &models.Payment{
			BuyerID:     userID,
			Amount:      feeAmount,
			Commission:  0,
			Currency:    strings.ToUpper(s.cfg.CurrencyCode),
			Status:      models.PaymentStatusCompleted,
			Description: fmt.Sprintf("%s membership upgrade", tier),
		})
		if err != nil {
			return nil, fmt.Errorf("membership upgraded but payment record failed for user %s: %w", userID, err)
		}
	}

	return s.FindByID(ctx, userID)
}

// SetBanned bans or unbans a user. The flag is checked at login and on offer
// creation.
func (s *userService) SetBanned(ctx context.Context, userID string, banned bool) error {
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "deleted": false},
		bson.M{"$set": bson.M{"banned": banned, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("db error updating ban flag for user %s: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}

// RecordSale bumps the aggregate counters after a completed settlement: the
// buyer's totalSpent by the captured total, the seller's totalEarned by the
// sale amount net of commission.
func (s *userService) RecordSale(ctx context.Context, buyerID, sellerID string, total, net float64) error {
	coll := s.db.Collection(usersCollection)
	now := time.Now().UTC()
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": buyerID},
		bson.M{"$inc": bson.M{"total_spent": total}, "$set": bson.M{"updated_at": now}}); err != nil {
		return fmt.Errorf("failed to update buyer %s counters: %w", buyerID, err)
	}
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": sellerID},
		bson.M{"$inc": bson.M{"total_earned": net}, "$set": bson.M{"updated_at": now}}); err != nil {
		return fmt.Errorf("failed to update seller %s counters: %w", sellerID, err)
	}
	return nil
}

// IncListingCount adjusts a user's listing counter.
func (s *userService) IncListingCount(ctx context.Context, userID string, delta int) error {
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"listing_count": delta}})
	if err != nil {
		return fmt.Errorf("failed to update listing count for user %s: %w", userID, err)
	}
	return nil
}
