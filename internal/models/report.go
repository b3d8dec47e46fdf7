package models

import (
	"time"
)

// ReportTargetType identifies what a moderation report points at.
type ReportTargetType string

const (
	ReportTargetListing ReportTargetType = "LISTING"
	ReportTargetUser    ReportTargetType = "USER"
	ReportTargetMessage ReportTargetType = "MESSAGE"
)

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusReviewed ReportStatus = "REVIEWED"
	ReportStatusResolved ReportStatus = "RESOLVED"
)

// Report is a persisted moderation flag against a listing, user or message.
type Report struct {
	Base       `bson:",inline"`
	TargetType ReportTargetType `bson:"target_type" json:"target_type"`
	TargetID   string           `bson:"target_id" json:"target_id"`
	ReporterID string           `bson:"reporter_id" json:"reporter_id"`
	Reason     string           `bson:"reason" json:"reason"`
	Status     ReportStatus     `bson:"status" json:"status"`
	ReviewedBy string           `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at" json:"updated_at"`
}
