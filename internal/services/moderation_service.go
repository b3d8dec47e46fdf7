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

// IModerationService defines the interface for reports and admin moderation.
type IModerationService interface {
	FileReport(ctx context.Context, reporterID string, targetType models.ReportTargetType, targetID, reason string) (*models.Report, error)
	ListReports(ctx context.Context, status models.ReportStatus, page, pageSize int) ([]models.Report, int64, error)
	ReviewReport(ctx context.Context, reportID, adminID string, status models.ReportStatus) (*models.Report, error)
	BanUser(ctx context.Context, userID, adminID string) error
	UnbanUser(ctx context.Context, userID, adminID string) error
}

const reportsCollection = "reports"

// moderationService implements IModerationService. Reports are persisted
// documents with a reviewable lifecycle, not an in-memory queue.
type moderationService struct {
	db            *mongo.Database
	users         IUserService
	notifications INotificationService
}

// NewModerationService creates a new ModerationService.
func NewModerationService(db *mongo.Database, users IUserService, notifications INotificationService) IModerationService {
	return &moderationService{db: db, users: users, notifications: notifications}
}

// FileReport records a moderation flag against a listing, user or message.
// The target must exist; anyone authenticated may report.
func (s *moderationService) FileReport(ctx context.Context, reporterID string, targetType models.ReportTargetType, targetID, reason string) (*models.Report, error) {
	fields := map[string]string{}
	if reason == "" {
		fields["reason"] = "A reason is required"
	} else if len(reason) > 2000 {
		fields["reason"] = "Reason must be at most 2000 characters"
	}
	if targetID == "" {
		fields["target_id"] = "Target id is required"
	}
	var coll string
	switch targetType {
	case models.ReportTargetListing:
		coll = listingsCollection
	case models.ReportTargetUser:
		coll = usersCollection
	case models.ReportTargetMessage:
		coll = messagesCollection
	default:
		fields["target_type"] = "Target type must be LISTING, USER or MESSAGE"
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	count, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{"_id": targetID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify report target %s: %w", targetID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, targetType, targetID)
	}

	now := time.Now().UTC()
	doc, err := db.InsertOne(ctx, s.db.Collection(reportsCollection), &models.Report{
		TargetType: targetType,
		TargetID:   targetID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     models.ReportStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}
	return doc.(*models.Report), nil
}

// ListReports returns a page of reports, newest first, optionally filtered by
// status.
func (s *moderationService) ListReports(ctx context.Context, status models.ReportStatus, page, pageSize int) ([]models.Report, int64, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	coll := s.db.Collection(reportsCollection)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err = cursor.All(ctx, &reports); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, total, nil
}

// ReviewReport moves a report to REVIEWED or RESOLVED and stamps the acting
// admin.
func (s *moderationService) ReviewReport(ctx context.Context, reportID, adminID string, status models.ReportStatus) (*models.Report, error) {
	if status != models.ReportStatusReviewed && status != models.ReportStatusResolved {
		return nil, NewValidationError(map[string]string{"status": "Status must be REVIEWED or RESOLVED"})
	}

	result := s.db.Collection(reportsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": reportID},
		bson.M{"$set": bson.M{
			"status":      status,
			"reviewed_by": adminID,
			"updated_at":  time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var report models.Report
	if err := result.Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportID)
		}
		return nil, fmt.Errorf("failed to review report %s: %w", reportID, err)
	}
	return &report, nil
}

// BanUser bans the account and notifies it. Admins cannot ban themselves.
func (s *moderationService) BanUser(ctx context.Context, userID, adminID string) error {
	if userID == adminID {
		return fmt.Errorf("%w: you cannot ban your own account", ErrForbidden)
	}
	if err := s.users.SetBanned(ctx, userID, true); err != nil {
		return err
	}
	s.notifications.Notify(ctx, userID, "Account Suspended",
		"Your account has been suspended by a moderator.",
		models.NotificationError)
	return nil
}

// UnbanUser lifts a ban.
func (s *moderationService) UnbanUser(ctx context.Context, userID, adminID string) error {
	if err := s.users.SetBanned(ctx, userID, false); err != nil {
		return err
	}
	s.notifications.Notify(ctx, userID, "Account Restored",
		"Your account suspension has been lifted.",
		models.NotificationSuccess)
	return nil
}
