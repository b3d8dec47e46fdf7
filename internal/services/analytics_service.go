package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AVAproject2025/Luxbid/internal/models"
)

// PlatformStats is the admin dashboard aggregate.
type PlatformStats struct {
	TotalUsers      int64   `json:"total_users"`
	BannedUsers     int64   `json:"banned_users"`
	ActiveListings  int64   `json:"active_listings"`
	SoldListings    int64   `json:"sold_listings"`
	PendingOffers   int64   `json:"pending_offers"`
	PendingReports  int64   `json:"pending_reports"`
	GrossVolume     float64 `json:"gross_volume"`
	CommissionTotal float64 `json:"commission_total"`
}

// IAnalyticsService defines the interface for platform reporting.
type IAnalyticsService interface {
	PlatformStats(ctx context.Context) (*PlatformStats, error)
	ExportTransactionsCSV(ctx context.Context, w io.Writer, from, to time.Time) error
}

// analyticsService implements IAnalyticsService.
type analyticsService struct {
	db *mongo.Database
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(db *mongo.Database) IAnalyticsService {
	return &analyticsService{db: db}
}

// PlatformStats collects the headline numbers for the admin dashboard.
func (s *analyticsService) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{}

	counts := []struct {
		coll   string
		query  bson.M
		target *int64
	}{
		{usersCollection, bson.M{"deleted": false}, &stats.TotalUsers},
		{usersCollection, bson.M{"deleted": false, "banned": true}, &stats.BannedUsers},
		{listingsCollection, bson.M{"deleted": false, "status": models.ListingStatusActive}, &stats.ActiveListings},
		{listingsCollection, bson.M{"deleted": false, "status": models.ListingStatusSold}, &stats.SoldListings},
		{offersCollection, bson.M{"status": models.OfferStatusPending}, &stats.PendingOffers},
		{reportsCollection, bson.M{"status": models.ReportStatusPending}, &stats.PendingReports},
	}
	for _, c := range counts {
		n, err := s.db.Collection(c.coll).CountDocuments(ctx, c.query)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.coll, err)
		}
		*c.target = n
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.TransactionStatusCompleted}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := s.db.Collection(transactionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transaction totals: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Type  models.TransactionType `bson:"_id"`
		Total float64                `bson:"total"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode transaction totals: %w", err)
	}
	for _, row := range rows {
		switch row.Type {
		case models.TransactionTypePayment:
			stats.GrossVolume = row.Total
		case models.TransactionTypeCommission:
			stats.CommissionTotal = row.Total
		}
	}
	return stats, nil
}

// ExportTransactionsCSV streams the ledger for [from, to) as CSV. Rows come
// out newest first, matching the dashboard view.
func (s *analyticsService) ExportTransactionsCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	if !to.After(from) {
		return NewValidationError(map[string]string{"to": "End of range must be after start"})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(transactionsCollection).Find(ctx, bson.M{
		"created_at": bson.M{"$gte": from, "$lt": to},
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cursor.Close(ctx)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "type", "status", "amount", "description", "user_id", "listing_id", "created_at"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for cursor.Next(ctx) {
		var tx models.Transaction
		if err := cursor.Decode(&tx); err != nil {
			return fmt.Errorf("failed to decode transaction: %w", err)
		}
		record := []string{
			tx.ID,
			string(tx.Type),
			string(tx.Status),
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Description,
			tx.UserID,
			tx.ListingID,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("transaction cursor failed: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
