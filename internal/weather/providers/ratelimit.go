package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// RateLimitedAdapter wraps an Adapter with a token bucket so free public services
// are not hit harder than their usage policies allow.
type RateLimitedAdapter struct {
	adapter weather.Adapter
	limiter *rate.Limiter
}

// NewRateLimitedAdapter creates a rate limited adapter.
// rps is the maximum requests per second (fractional allowed), burst the bucket size.
func NewRateLimitedAdapter(adapter weather.Adapter, rps float64, burst int) *RateLimitedAdapter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedAdapter{
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedAdapter) ID() string {
	return r.adapter.ID()
}

func (r *RateLimitedAdapter) Name() string {
	return r.adapter.Name()
}

// Fetch waits for a token or for ctx to end, whichever comes first. A wait that would
// outlast the deadline fails right away and the source is absent.
func (r *RateLimitedAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return weather.WeatherSource{}, fmt.Errorf("%w: %s: rate limit wait canceled: %v", weather.ErrAbsent, r.adapter.ID(), err)
	}
	return r.adapter.Fetch(ctx, q)
}

var _ weather.Adapter = (*RateLimitedAdapter)(nil)
