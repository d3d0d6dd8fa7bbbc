package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultAdapterTimeout bounds a single adapter call.
const DefaultAdapterTimeout = 4 * time.Second

var validate = validator.New()

// Validate checks coordinate ranges and the label length.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return nil
}

// Aggregator fans a query out to every adapter and collects whichever succeed.
type Aggregator struct {
	adapters []Adapter
	timeout  time.Duration
}

// NewAggregator creates an Aggregator. A non-positive timeout selects DefaultAdapterTimeout.
func NewAggregator(adapters []Adapter, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultAdapterTimeout
	}
	return &Aggregator{
		adapters: adapters,
		timeout:  timeout,
	}
}

// Adapters returns the configured adapters in invocation order.
func (a *Aggregator) Adapters() []Adapter {
	return a.adapters
}

// Aggregate validates q, then calls every adapter concurrently, each under its own timeout
// derived from ctx. The result keeps adapter order and holds only successful sources; it is
// empty, not nil, when nothing succeeded. The only error is ErrInvalidQuery.
func (a *Aggregator) Aggregate(ctx context.Context, q Query) ([]WeatherSource, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	type result struct {
		source WeatherSource
		ok     bool
	}

	var (
		wg      sync.WaitGroup
		results = make([]result, len(a.adapters))
		started = time.Now()
	)

	for i, ad := range a.adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()

			src, err := a.fetchOne(ctx, ad, q)
			if err != nil {
				log.Printf("DEBUG: adapter %s absent for %s: %v", ad.ID(), q.Label(), err)
				return
			}
			results[i] = result{source: src, ok: true}
		}()
	}

	wg.Wait()

	sources := make([]WeatherSource, 0, len(a.adapters))
	for _, r := range results {
		if r.ok {
			sources = append(sources, r.source)
		}
	}

	log.Printf("DEBUG: aggregated %d/%d sources for %s in %s",
		len(sources), len(a.adapters), q.Label(), time.Since(started).Round(time.Millisecond))
	return sources, nil
}

// fetchOne runs one adapter under its own deadline. A panic, an error, or a result that
// arrives after the deadline all count as absent. The adapter runs in its own goroutine so
// one that ignores ctx cannot hold the caller past the deadline; its late answer is dropped.
func (a *Aggregator) fetchOne(parent context.Context, ad Adapter, q Query) (WeatherSource, error) {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	type outcome struct {
		src WeatherSource
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: adapter panicked: %v", ErrAbsent, r)}
			}
		}()
		src, err := ad.Fetch(ctx, q)
		done <- outcome{src: src, err: err}
	}()

	select {
	case <-ctx.Done():
		return WeatherSource{}, fmt.Errorf("%w: %v", ErrAbsent, ctx.Err())
	case out := <-done:
		if out.err != nil {
			return WeatherSource{}, out.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WeatherSource{}, fmt.Errorf("%w: %v", ErrAbsent, ctxErr)
		}
		return sanitize(out.src, ad), nil
	}
}

// sanitize enforces the source invariants the aggregator guarantees to callers.
func sanitize(src WeatherSource, ad Adapter) WeatherSource {
	if src.ID == "" {
		src.ID = ad.ID()
	}
	if src.Source == "" {
		src.Source = ad.Name()
	}
	switch {
	case src.Accuracy < 0:
		src.Accuracy = 0
	case src.Accuracy > 1:
		src.Accuracy = 1
	}
	if len(src.HourlyForecast) > MaxHourlyPoints {
		src.HourlyForecast = src.HourlyForecast[:MaxHourlyPoints]
	}
	if len(src.DailyForecast) > MaxDailyPoints {
		src.DailyForecast = src.DailyForecast[:MaxDailyPoints]
	}
	if src.HourlyForecast == nil {
		src.HourlyForecast = []HourlyPoint{}
	}
	if src.DailyForecast == nil {
		src.DailyForecast = []DailyPoint{}
	}
	return src
}

// Ensemble is the full response for one query.
type Ensemble struct {
	Sources      []WeatherSource `json:"sources"`
	MostAccurate *WeatherSource  `json:"mostAccurate"`
	Summary      Summary         `json:"summary"`
}

// Service combines the aggregator, the selector and the summary for API callers.
type Service struct {
	aggregator *Aggregator
	selector   Selector
}

// NewService creates a new Service.
func NewService(aggregator *Aggregator, selector Selector) *Service {
	return &Service{
		aggregator: aggregator,
		selector:   selector,
	}
}

// AdapterIDs lists the adapters the service fans out to, in invocation order.
func (s *Service) AdapterIDs() []string {
	adapters := s.aggregator.Adapters()
	ids := make([]string, 0, len(adapters))
	for _, ad := range adapters {
		ids = append(ids, ad.ID())
	}
	return ids
}

// Ensemble aggregates q and attaches the most accurate pick and the blended summary.
func (s *Service) Ensemble(ctx context.Context, q Query) (Ensemble, error) {
	sources, err := s.aggregator.Aggregate(ctx, q)
	if err != nil {
		return Ensemble{}, err
	}

	ens := Ensemble{
		Sources: sources,
		Summary: Summarize(sources),
	}
	if best, ok := s.selector.SelectBest(sources); ok {
		ens.MostAccurate = &best
	}
	return ens, nil
}
