package weather

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourlyFromStartsAtCurrentHourAndCaps(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2026, 7, 1, 10, 30, 0, 0, zone)

	var points []HourlyPoint
	for h := -3; h < 40; h++ {
		ts := time.Date(2026, 7, 1, 10, 0, 0, 0, zone).Add(time.Duration(h) * time.Hour)
		points = append(points, HourlyPoint{Time: HourLabel(ts), Timestamp: ts, Temperature: h})
	}
	rand.New(rand.NewSource(1)).Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
	})

	got := HourlyFrom(points, now)
	require.Len(t, got, MaxHourlyPoints)
	assert.Equal(t, "10 AM", got[0].Time)
	assert.Equal(t, 0, got[0].Temperature)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp), "ascending at %d", i)
	}
}

func TestDailyFromStartsTodayAndCaps(t *testing.T) {
	today := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	var points []DailyPoint
	for d := 11; d >= -1; d-- {
		points = append(points, DailyPoint{Date: DateKey(today.AddDate(0, 0, d)), High: d})
	}

	got := DailyFrom(points, DateKey(today))
	require.Len(t, got, MaxDailyPoints)
	assert.Equal(t, "2026-07-01", got[0].Date)
	assert.Equal(t, "Today", got[0].Day)
	assert.Equal(t, "Tomorrow", got[1].Day)
	assert.Equal(t, "Fri", got[2].Day)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Date, got[i-1].Date)
	}
}

func TestDayLabelBadInput(t *testing.T) {
	assert.Equal(t, "someday", DayLabel("someday", "2026-07-01"))
}
