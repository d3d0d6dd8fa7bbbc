// Package geocode resolves display labels for coordinates. Labels are cosmetic:
// a failed lookup never fails a weather request.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

// ErrNoResult is returned when the geocoder knows nothing about a point.
var ErrNoResult = errors.New("no address for location")

// Resolver turns coordinates into a human readable place label.
type Resolver interface {
	Label(ctx context.Context, lat, lon float64) (string, error)
}

// GoogleResolver reverse geocodes through the Google Geocoding API and caches
// labels per ~1 km cell.
type GoogleResolver struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)

	mu    sync.RWMutex
	cache map[string]string
}

// NewGoogleResolver configures the geocoder with apiKey.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	geocoder.ApiKey = apiKey
	return &GoogleResolver{
		reverse: geocoder.GeocodingReverse,
		cache:   make(map[string]string),
	}
}

func (g *GoogleResolver) Label(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)

	g.mu.RLock()
	label, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return label, nil
	}

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	// The geocoder client takes no context, so the caller's deadline is enforced here.
	done := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		done <- result{addrs: addrs, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return "", fmt.Errorf("reverse geocode %s: %w", key, res.err)
	}
	if len(res.addrs) == 0 {
		return "", ErrNoResult
	}

	label = formatLabel(res.addrs[0])
	if label == "" {
		return "", ErrNoResult
	}

	g.mu.Lock()
	g.cache[key] = label
	g.mu.Unlock()
	return label, nil
}

// formatLabel prefers "City, State, Country" and falls back to the formatted address.
func formatLabel(a geocoder.Address) string {
	var parts []string
	for _, p := range []string{a.City, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if a.City != "" && len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(a.FormattedAddress)
}
