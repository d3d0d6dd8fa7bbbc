package providers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

const (
	// MaxCommunityAccuracy caps the consensus weight: crowd reports are never
	// trusted above a numerical model.
	MaxCommunityAccuracy = 0.85
	// MinCommunityReports is the smallest number of reports that forms a consensus.
	MinCommunityReports = 2

	communityBaseAccuracy = 0.62
	communityPerReport    = 0.08

	DefaultConsensusWindow = time.Hour
	DefaultConsensusBox    = 0.1
)

// CommunityAdapter derives a synthetic source from recent crowd reports near the point.
// It only reads from the report store.
type CommunityAdapter struct {
	reports weather.ReportReader
	window  time.Duration
	box     float64
	now     func() time.Time
}

// NewCommunityAdapter creates the consensus adapter. Non-positive window or box
// select the defaults (60 minutes, ±0.1°).
func NewCommunityAdapter(reports weather.ReportReader, window time.Duration, box float64) *CommunityAdapter {
	if window <= 0 {
		window = DefaultConsensusWindow
	}
	if box <= 0 {
		box = DefaultConsensusBox
	}
	return &CommunityAdapter{
		reports: reports,
		window:  window,
		box:     box,
		now:     time.Now,
	}
}

func (c *CommunityAdapter) ID() string {
	return CommunityID
}

func (c *CommunityAdapter) Name() string {
	return "Community Reports"
}

func (c *CommunityAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	reports, err := c.reports.RecentReports(ctx, weather.ReportQuery{
		Box:    weather.BoxAround(q.Lat, q.Lon, c.box),
		Since:  c.now().Add(-c.window),
		Status: weather.ReportActive,
	})
	if err != nil {
		return weather.WeatherSource{}, fmt.Errorf("%w: %s: %v", weather.ErrAbsent, CommunityID, err)
	}

	n := len(reports)
	if n < MinCommunityReports {
		return weather.WeatherSource{}, fmt.Errorf("%w: %w: %d qualifying", weather.ErrAbsent, weather.ErrInsufficientReports, n)
	}

	cond := TallyConditions(reports)
	if cond == weather.ConditionUnknown {
		return weather.WeatherSource{}, fmt.Errorf("%w: %s: no recognizable condition in %d reports", weather.ErrAbsent, CommunityID, n)
	}

	return weather.WeatherSource{
		ID:        CommunityID,
		Source:    fmt.Sprintf("Community Reports (%d)", n),
		Location:  q.Label(),
		Latitude:  q.Lat,
		Longitude: q.Lon,
		Accuracy:  CommunityAccuracy(reports),
		Synthetic: true,
		CurrentWeather: weather.CurrentWeather{
			Condition: cond,
		},
		HourlyForecast: []weather.HourlyPoint{},
		DailyForecast:  []weather.DailyPoint{},
	}, nil
}

// TallyConditions returns the plurality condition among reports, oldest first.
// Ties go to the condition seen first; unrecognizable conditions do not vote.
func TallyConditions(reports []weather.CommunityReport) weather.Condition {
	ordered := make([]weather.CommunityReport, len(reports))
	copy(ordered, reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	counts := make(map[weather.Condition]int)
	var seen []weather.Condition
	for _, r := range ordered {
		cond := r.Condition()
		if cond == weather.ConditionUnknown {
			continue
		}
		if counts[cond] == 0 {
			seen = append(seen, cond)
		}
		counts[cond]++
	}

	best, bestCount := weather.ConditionUnknown, 0
	for _, cond := range seen {
		if counts[cond] > bestCount {
			best, bestCount = cond, counts[cond]
		}
	}
	return best
}

// CommunityAccuracy computes min(0.85, 0.62 + 0.08·n) × mean(self-rating), rounded to
// three decimals. It is non-decreasing in n for a fixed mean rating.
func CommunityAccuracy(reports []weather.CommunityReport) float64 {
	n := len(reports)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range reports {
		sum += r.Accuracy.Score()
	}
	avg := sum / float64(n)
	base := math.Min(MaxCommunityAccuracy, communityBaseAccuracy+communityPerReport*float64(n))
	return math.Round(base*avg*1000) / 1000
}
