package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

var (
	// ErrNotFound is returned when a report ID is unknown to the store.
	ErrNotFound = errors.New("community report not found")

	// ErrInvalidReport is returned when a report cannot be stored as given.
	ErrInvalidReport = errors.New("invalid community report")
)

// MemoryStore is a concurrency-safe in-memory report store.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by CreatedAt, oldest first
	reports []weather.CommunityReport

	// retention configuration
	maxReports int           // max number of reports kept (0 = unlimited)
	maxAge     time.Duration // reports older than this are dropped on write (0 = unlimited)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxReports is <= 0, it is treated as unlimited.
func NewMemoryStore(maxReports int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxReports: maxReports,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveReport inserts r in creation order and enforces retention.
func (s *MemoryStore) SaveReport(_ context.Context, r weather.CommunityReport) error {
	if err := checkReport(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.reports), func(i int) bool {
		return s.reports[i].CreatedAt.After(r.CreatedAt)
	})
	s.reports = append(s.reports, weather.CommunityReport{})
	copy(s.reports[i+1:], s.reports[i:])
	s.reports[i] = r

	// Enforce retention by count.
	if s.maxReports > 0 && len(s.reports) > s.maxReports {
		over := len(s.reports) - s.maxReports
		s.reports = append([]weather.CommunityReport(nil), s.reports[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		s.dropBefore(s.now().Add(-s.maxAge))
	}
	return nil
}

// RecentReports returns the reports matching q, oldest first.
func (s *MemoryStore) RecentReports(ctx context.Context, q weather.ReportQuery) ([]weather.CommunityReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.reports), func(i int) bool {
		return !s.reports[i].CreatedAt.Before(q.Since)
	})

	var result []weather.CommunityReport
	for _, r := range s.reports[start:] {
		if q.Matches(r) {
			result = append(result, r)
		}
	}
	return result, nil
}

// GetReport returns a single report by ID.
func (s *MemoryStore) GetReport(_ context.Context, id string) (weather.CommunityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return weather.CommunityReport{}, ErrNotFound
}

// PruneReports removes every report created before the cutoff.
func (s *MemoryStore) PruneReports(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropBefore(before), nil
}

func (s *MemoryStore) dropBefore(cutoff time.Time) int {
	i := sort.Search(len(s.reports), func(i int) bool {
		return !s.reports[i].CreatedAt.Before(cutoff)
	})
	if i > 0 {
		s.reports = append([]weather.CommunityReport(nil), s.reports[i:]...)
	}
	return i
}

func checkReport(r weather.CommunityReport) error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidReport)
	case r.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing creation time", ErrInvalidReport)
	}
	return nil
}
