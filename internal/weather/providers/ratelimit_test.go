package providers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

type countingAdapter struct {
	calls atomic.Int32
}

func (c *countingAdapter) ID() string   { return "counting" }
func (c *countingAdapter) Name() string { return "Counting" }

func (c *countingAdapter) Fetch(context.Context, weather.Query) (weather.WeatherSource, error) {
	c.calls.Add(1)
	return weather.WeatherSource{ID: "counting"}, nil
}

func TestRateLimitedAdapterGivesUpAtDeadline(t *testing.T) {
	inner := &countingAdapter{}
	ad := NewRateLimitedAdapter(inner, 0.01, 1)
	assert.Equal(t, "counting", ad.ID())
	assert.Equal(t, "Counting", ad.Name())

	_, err := ad.Fetch(context.Background(), weather.Query{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = ad.Fetch(ctx, weather.Query{})

	assert.ErrorIs(t, err, weather.ErrAbsent)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestRateLimitedAdapterPassesWithinBurst(t *testing.T) {
	inner := &countingAdapter{}
	ad := NewRateLimitedAdapter(inner, 1, 3)
	for i := 0; i < 3; i++ {
		_, err := ad.Fetch(context.Background(), weather.Query{})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, inner.calls.Load())
}
