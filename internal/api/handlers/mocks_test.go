package handlers_test

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/AVAproject2025/Luxbid/internal/api/middleware"
	"github.com/AVAproject2025/Luxbid/internal/models"
	"github.com/AVAproject2025/Luxbid/internal/payments"
	"github.com/AVAproject2025/Luxbid/internal/services"
)

// asUser fakes the auth middleware so handlers see an authenticated principal.
func asUser(userID string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, email, password string, accountType models.AccountType) (*models.User, error) {
	args := m.Called(ctx, name, email, password, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpgradeMembership(ctx context.Context, userID string, tier models.MembershipTier) (*models.User, error) {
	args := m.Called(ctx, userID, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetBanned(ctx context.Context, userID string, banned bool) error {
	args := m.Called(ctx, userID, banned)
	return args.Error(0)
}

func (m *MockUserService) RecordSale(ctx context.Context, buyerID, sellerID string, total, net float64) error {
	args := m.Called(ctx, buyerID, sellerID, total, net)
	return args.Error(0)
}

func (m *MockUserService) IncListingCount(ctx context.Context, userID string, delta int) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Create(ctx context.Context, sellerID string, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, sellerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Get(ctx context.Context, listingID string) (*models.ListingDetail, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingDetail), args.Error(1)
}

func (m *MockListingService) Update(ctx context.Context, listingID, actorID string, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, listingID, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, listingID, actorID string, isAdmin bool) error {
	args := m.Called(ctx, listingID, actorID, isAdmin)
	return args.Error(0)
}

func (m *MockListingService) List(ctx context.Context, filter services.ListingFilter) ([]models.ListingDetail, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ListingDetail), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingService) AddImage(ctx context.Context, listingID, imageKey string) error {
	args := m.Called(ctx, listingID, imageKey)
	return args.Error(0)
}

func (m *MockListingService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockOfferService
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) Create(ctx context.Context, listingID, buyerID string, amount float64, message string) (*models.Offer, error) {
	args := m.Called(ctx, listingID, buyerID, amount, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) Accept(ctx context.Context, offerID, actorID string) (*models.Offer, error) {
	args := m.Called(ctx, offerID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) FindByID(ctx context.Context, offerID string) (*models.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) ListForListing(ctx context.Context, listingID, actorID string) ([]models.OfferDetail, error) {
	args := m.Called(ctx, listingID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OfferDetail), args.Error(1)
}

func (m *MockOfferService) ListForBuyer(ctx context.Context, buyerID string) ([]models.OfferDetail, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OfferDetail), args.Error(1)
}

// MockPaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateCheckoutSession(ctx context.Context, offerID, buyerID string) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, offerID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *MockPaymentService) HandleProviderEvent(ctx context.Context, event *payments.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPaymentService) FindByOffer(ctx context.Context, offerID, actorID string) (*models.Payment, error) {
	args := m.Called(ctx, offerID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

// MockProvider implements payments.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *MockProvider) ConstructEvent(payload []byte, signature string) (*payments.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Event), args.Error(1)
}

// MockS3Storage implements storage.IS3Storage.
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, listingID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockS3Storage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockS3Storage) Client() *s3.Client {
	return nil
}

// MockAsynqClient implements handlers.IAsynqClient.
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockModerationService
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) FileReport(ctx context.Context, reporterID string, targetType models.ReportTargetType, targetID, reason string) (*models.Report, error) {
	args := m.Called(ctx, reporterID, targetType, targetID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockModerationService) ListReports(ctx context.Context, status models.ReportStatus, page, pageSize int) ([]models.Report, int64, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Report), args.Get(1).(int64), args.Error(2)
}

func (m *MockModerationService) ReviewReport(ctx context.Context, reportID, adminID string, status models.ReportStatus) (*models.Report, error) {
	args := m.Called(ctx, reportID, adminID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockModerationService) BanUser(ctx context.Context, userID, adminID string) error {
	args := m.Called(ctx, userID, adminID)
	return args.Error(0)
}

func (m *MockModerationService) UnbanUser(ctx context.Context, userID, adminID string) error {
	args := m.Called(ctx, userID, adminID)
	return args.Error(0)
}

// MockAnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) PlatformStats(ctx context.Context) (*services.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PlatformStats), args.Error(1)
}

func (m *MockAnalyticsService) ExportTransactionsCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	args := m.Called(ctx, w, from, to)
	return args.Error(0)
}
