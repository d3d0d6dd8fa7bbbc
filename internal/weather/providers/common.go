package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client    *http.Client
	Backoff   BackoffConfig
	UserAgent string
}

// defaultBackoff fits inside one adapter deadline: one retry, short delay.
var defaultBackoff = BackoffConfig{
	MaxRetries:      1,
	InitialInterval: 250 * time.Millisecond,
	MaxInterval:     1 * time.Second,
}

const defaultUserAgent = "weather-ensemble/1.0 (+https://github.com/i474232898/weather-ensemble)"

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errMalformed     = errors.New("malformed payload")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// A 4xx means the provider answered; e.g. NWS rejects points outside the US.
		// A canceled caller says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errUnexpected) || errors.Is(err, context.Canceled)
		},
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Client errors (4xx other than 429) are not retried.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)
		if req.Header.Get("User-Agent") == "" {
			ua := cfg.UserAgent
			if ua == "" {
				ua = defaultUserAgent
			}
			req.Header.Set("User-Agent", ua)
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				drain(resp)
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				drain(resp)
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				drain(resp)
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if errors.Is(err, errUnexpected) {
			return nil, err
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// adapterBase carries what every HTTP adapter shares: its registry entry,
// transport settings, its own circuit breaker and a clock.
type adapterBase struct {
	spec    Spec
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func newAdapterBase(client *http.Client, userAgent string, spec Spec) adapterBase {
	return adapterBase{
		spec: spec,
		httpCfg: HTTPClientConfig{
			Client:    client,
			Backoff:   defaultBackoff,
			UserAgent: userAgent,
		},
		circuit: newBreaker(spec.ID),
		now:     time.Now,
	}
}

func (b *adapterBase) ID() string {
	return b.spec.ID
}

func (b *adapterBase) Name() string {
	return b.spec.Name
}

// absent wraps any adapter failure so that callers can match weather.ErrAbsent.
func (b *adapterBase) absent(err error) error {
	return fmt.Errorf("%w: %s: %v", weather.ErrAbsent, b.spec.ID, err)
}

// getJSON performs a resilient GET and decodes the JSON body into out.
func (b *adapterBase) getJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, b.httpCfg, b.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// newSource starts a WeatherSource echoing the request with the static accuracy weight.
func (b *adapterBase) newSource(q weather.Query) weather.WeatherSource {
	return weather.WeatherSource{
		ID:        b.spec.ID,
		Source:    b.spec.Name,
		Location:  q.Label(),
		Latitude:  q.Lat,
		Longitude: q.Lon,
		Accuracy:  b.spec.Accuracy,
	}
}

// approxZone derives a fixed solar-time zone from longitude, for providers that
// only report UTC timestamps.
func approxZone(lon float64) *time.Location {
	offset := int(math.Round(lon/15)) * 3600
	return time.FixedZone(fmt.Sprintf("UTC%+d", offset/3600), offset)
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(math.Round(v))
	}
}
