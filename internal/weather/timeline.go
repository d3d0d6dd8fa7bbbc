package weather

import (
	"sort"
	"time"
)

const (
	// MaxHourlyPoints caps HourlyForecast.
	MaxHourlyPoints = 24
	// MaxDailyPoints caps DailyForecast; day 0 is today.
	MaxDailyPoints = 10

	dateLayout = "2006-01-02"
)

// HourLabel formats a forecast hour for display ("3 PM").
func HourLabel(t time.Time) string {
	return t.Format("3 PM")
}

// DateKey formats t as YYYY-MM-DD in its own location.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// DayLabel labels a forecast day relative to today ("Today", "Tomorrow", "Mon").
func DayLabel(date, today string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return d.Format("Mon")
	}
	switch d.Sub(t) {
	case 0:
		return "Today"
	case 24 * time.Hour:
		return "Tomorrow"
	default:
		return d.Format("Mon")
	}
}

// HourlyFrom orders points by time, drops those before the hour containing now and caps
// the result at MaxHourlyPoints. now should be expressed in the provider's local time.
func HourlyFrom(points []HourlyPoint, now time.Time) []HourlyPoint {
	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	sorted := make([]HourlyPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]HourlyPoint, 0, MaxHourlyPoints)
	for _, p := range sorted {
		if p.Timestamp.Before(start) {
			continue
		}
		if len(out) == MaxHourlyPoints {
			break
		}
		out = append(out, p)
	}
	return out
}

// DailyFrom orders points by date, drops days before today, relabels them relative to
// today and caps the result at MaxDailyPoints.
func DailyFrom(points []DailyPoint, today string) []DailyPoint {
	sorted := make([]DailyPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	out := make([]DailyPoint, 0, MaxDailyPoints)
	for _, p := range sorted {
		if p.Date < today {
			continue
		}
		if len(out) == MaxDailyPoints {
			break
		}
		p.Day = DayLabel(p.Date, today)
		out = append(out, p)
	}
	return out
}
