package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAbsent marks an adapter call that produced no source. Every adapter failure wraps it.
	ErrAbsent = errors.New("source absent")

	// ErrInvalidQuery is returned before any adapter runs when the query is out of range.
	ErrInvalidQuery = errors.New("invalid weather query")

	// ErrInsufficientReports is returned by the consensus adapter when too few reports qualify.
	ErrInsufficientReports = errors.New("not enough community reports")
)

// Adapter fetches from exactly one external source and normalizes its output
// (e.g. one Open-Meteo model, WeatherAPI, NWS, the community consensus).
type Adapter interface {
	ID() string
	Name() string
	Fetch(ctx context.Context, q Query) (WeatherSource, error)
}

// AccuracyRating is the reporter's own label for how accurate the forecast they saw was.
type AccuracyRating string

const (
	RatingVeryAccurate     AccuracyRating = "very_accurate"
	RatingAccurate         AccuracyRating = "accurate"
	RatingSomewhatAccurate AccuracyRating = "somewhat_accurate"
	RatingInaccurate       AccuracyRating = "inaccurate"
)

// Score maps the rating onto the scalar used by the consensus weight. Unset or unknown labels score 0.5.
func (r AccuracyRating) Score() float64 {
	switch r {
	case RatingVeryAccurate:
		return 1.0
	case RatingAccurate:
		return 0.8
	case RatingSomewhatAccurate:
		return 0.6
	case RatingInaccurate:
		return 0.3
	default:
		return 0.5
	}
}

// ReportStatus is the moderation state of a community report.
type ReportStatus string

const (
	ReportActive ReportStatus = "active"
	ReportHidden ReportStatus = "hidden"
)

// CommunityReport is a crowd-sourced condition report. The engine only reads them.
type CommunityReport struct {
	ID                string         `json:"id"`
	Latitude          float64        `json:"latitude"`
	Longitude         float64        `json:"longitude"`
	ReportedCondition string         `json:"reportedCondition"`
	ActualCondition   string         `json:"actualCondition,omitempty"`
	Accuracy          AccuracyRating `json:"accuracy,omitempty"`
	Status            ReportStatus   `json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Condition returns the condition the report votes for: the actual condition when set,
// otherwise the reported one.
func (r CommunityReport) Condition() Condition {
	if r.ActualCondition != "" {
		return ParseCondition(r.ActualCondition)
	}
	return ParseCondition(r.ReportedCondition)
}

// BoundingBox is an axis-aligned box in degrees.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoxAround returns the box of ±delta degrees around a point.
func BoxAround(lat, lon, delta float64) BoundingBox {
	return BoundingBox{
		MinLat: lat - delta,
		MaxLat: lat + delta,
		MinLon: lon - delta,
		MaxLon: lon + delta,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// ReportQuery selects reports created at or after Since, inside Box, with the given Status.
type ReportQuery struct {
	Box    BoundingBox
	Since  time.Time
	Status ReportStatus
}

// Matches reports whether r satisfies the query.
func (q ReportQuery) Matches(r CommunityReport) bool {
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if r.CreatedAt.Before(q.Since) {
		return false
	}
	return q.Box.Contains(r.Latitude, r.Longitude)
}

// ReportReader is the read-only view of the community reports store used by the consensus adapter.
type ReportReader interface {
	RecentReports(ctx context.Context, q ReportQuery) ([]CommunityReport, error)
}

// ReportStore is the contract the memory, SQLite and Redis report stores satisfy.
type ReportStore interface {
	ReportReader
	SaveReport(ctx context.Context, r CommunityReport) error
	PruneReports(ctx context.Context, before time.Time) (int, error)
}
