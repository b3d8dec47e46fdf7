package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AVAproject2025/Luxbid/internal/db"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/testutil"
)

func setupModerationTestDB(t *testing.T, dbName string) *mongo.Database {
	database := testutil.SetupTestDB(t, dbName,
		"users", "listings", "messages", "reports", "notifications")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func newModerationServiceForTest(database *mongo.Database) (IModerationService, INotificationService) {
	users := NewUserService(database, testConfig())
	notifications := NewNotificationService(database)
	return NewModerationService(database, users, notifications), notifications
}

func TestModerationService_ReportLifecycle(t *testing.T) {
	database := setupModerationTestDB(t, "testdb_mod_reports")
	svc, _ := newModerationServiceForTest(database)
	ctx := context.Background()

	seller := insertTestUser(t, database, "Seller", "seller@example.com")
	reporter := insertTestUser(t, database, "Reporter", "reporter@example.com")
	admin := insertTestUser(t, database, "Admin", "admin@example.com")
	listing := insertTestListing(t, database, seller.ID, 3000)

	report, err := svc.FileReport(ctx, reporter.ID, models.ReportTargetListing, listing.ID, "Counterfeit item")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)

	// Target must exist
	_, err = svc.FileReport(ctx, reporter.ID, models.ReportTargetListing, "no-such-listing", "spam")
	assert.ErrorIs(t, err, ErrNotFound)

	// Reason and target type are validated
	_, err = svc.FileReport(ctx, reporter.ID, "REVIEW", listing.ID, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "reason")
	assert.Contains(t, ve.Fields, "target_type")

	pending, total, err := svc.ListReports(ctx, models.ReportStatusPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)

	reviewed, err := svc.ReviewReport(ctx, report.ID, admin.ID, models.ReportStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, reviewed.Status)
	assert.Equal(t, admin.ID, reviewed.ReviewedBy)

	// PENDING is not a valid review outcome
	_, err = svc.ReviewReport(ctx, report.ID, admin.ID, models.ReportStatusPending)
	assert.ErrorAs(t, err, &ve)

	_, total, err = svc.ListReports(ctx, models.ReportStatusPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestModerationService_BanUnban(t *testing.T) {
	database := setupModerationTestDB(t, "testdb_mod_ban")
	svc, notifications := newModerationServiceForTest(database)
	ctx := context.Background()

	admin := insertTestUser(t, database, "Admin", "admin@example.com")
	target := insertTestUser(t, database, "Target", "target@example.com")

	// Admins cannot ban themselves
	err := svc.BanUser(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.BanUser(ctx, target.ID, admin.ID))
	users := NewUserService(database, testConfig())
	banned, err := users.FindByID(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, banned.Banned)

	require.NoError(t, svc.UnbanUser(ctx, target.ID, admin.ID))
	restored, err := users.FindByID(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, restored.Banned)

	feed, err := notifications.ListForUser(ctx, target.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "Account Restored", feed[0].Title)
	assert.Equal(t, "Account Suspended", feed[1].Title)
}
