package weather

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a scripted Adapter.
type fakeAdapter struct {
	id    string
	fetch func(ctx context.Context, q Query) (WeatherSource, error)
	calls atomic.Int32
}

func (f *fakeAdapter) ID() string   { return f.id }
func (f *fakeAdapter) Name() string { return "Fake " + f.id }

func (f *fakeAdapter) Fetch(ctx context.Context, q Query) (WeatherSource, error) {
	f.calls.Add(1)
	return f.fetch(ctx, q)
}

func sourceOf(id string, accuracy float64, temp int) WeatherSource {
	return WeatherSource{
		ID:       id,
		Source:   id,
		Accuracy: accuracy,
		CurrentWeather: CurrentWeather{
			Temperature: temp,
			Humidity:    50,
			Condition:   ConditionClear,
		},
	}
}

func returning(id string, accuracy float64) *fakeAdapter {
	return &fakeAdapter{id: id, fetch: func(context.Context, Query) (WeatherSource, error) {
		return sourceOf(id, accuracy, 70), nil
	}}
}

func blocking(id string) *fakeAdapter {
	return &fakeAdapter{id: id, fetch: func(ctx context.Context, _ Query) (WeatherSource, error) {
		<-ctx.Done()
		return WeatherSource{}, fmt.Errorf("%w: %v", ErrAbsent, ctx.Err())
	}}
}

func TestAggregateOneTimeoutSixSuccesses(t *testing.T) {
	timeout := 150 * time.Millisecond
	adapters := []Adapter{blocking("slow")}
	for i := 0; i < 6; i++ {
		adapters = append(adapters, returning(fmt.Sprintf("ok-%d", i), 0.9))
	}

	start := time.Now()
	got, err := NewAggregator(adapters, timeout).Aggregate(context.Background(), Query{Lat: 40, Lon: -74})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, got, 6)
	for i, src := range got {
		assert.Equal(t, fmt.Sprintf("ok-%d", i), src.ID, "adapter order is kept")
	}
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
}

func TestAggregateRejectsInvalidQueryBeforeCallingAdapters(t *testing.T) {
	ad := returning("a", 0.9)
	agg := NewAggregator([]Adapter{ad}, time.Second)

	for _, q := range []Query{{Lat: 91}, {Lat: -90.5}, {Lon: 181}, {Lon: -180.01}} {
		got, err := agg.Aggregate(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.Nil(t, got)
	}
	assert.Zero(t, ad.calls.Load())

	_, err := agg.Aggregate(context.Background(), Query{Lat: 90, Lon: -180})
	assert.NoError(t, err, "range edges are valid")
}

func TestAggregateAllAbsentIsEmptyNotError(t *testing.T) {
	failing := &fakeAdapter{id: "down", fetch: func(context.Context, Query) (WeatherSource, error) {
		return WeatherSource{}, fmt.Errorf("%w: connection refused", ErrAbsent)
	}}
	got, err := NewAggregator([]Adapter{failing, blocking("slow")}, 20*time.Millisecond).
		Aggregate(context.Background(), Query{})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = NewAggregator(nil, 0).Aggregate(context.Background(), Query{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateRecoversPanics(t *testing.T) {
	panicky := &fakeAdapter{id: "panicky", fetch: func(context.Context, Query) (WeatherSource, error) {
		panic("index out of range")
	}}
	got, err := NewAggregator([]Adapter{panicky, returning("ok", 0.8)}, time.Second).
		Aggregate(context.Background(), Query{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestAggregateDropsLateResults(t *testing.T) {
	// Ignores its context and answers after the deadline.
	late := &fakeAdapter{id: "late", fetch: func(context.Context, Query) (WeatherSource, error) {
		time.Sleep(2 * time.Second)
		return sourceOf("late", 0.9, 60), nil
	}}

	start := time.Now()
	got, err := NewAggregator([]Adapter{late, returning("ok", 0.8)}, 50*time.Millisecond).
		Aggregate(context.Background(), Query{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
	assert.Less(t, elapsed, time.Second, "an adapter ignoring its context must not stall the others")
}

func TestAggregateCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	got, err := NewAggregator([]Adapter{blocking("a"), blocking("b")}, 5*time.Second).Aggregate(ctx, Query{})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAggregateSanitizesSources(t *testing.T) {
	greedy := &fakeAdapter{id: "greedy", fetch: func(context.Context, Query) (WeatherSource, error) {
		src := WeatherSource{Accuracy: 1.7, CurrentWeather: CurrentWeather{Temperature: 50}}
		for i := 0; i < 30; i++ {
			src.HourlyForecast = append(src.HourlyForecast, HourlyPoint{Temperature: i})
		}
		for i := 0; i < 14; i++ {
			src.DailyForecast = append(src.DailyForecast, DailyPoint{High: i})
		}
		return src, nil
	}}
	negative := &fakeAdapter{id: "negative", fetch: func(context.Context, Query) (WeatherSource, error) {
		return WeatherSource{ID: "negative", Accuracy: -0.2}, nil
	}}

	got, err := NewAggregator([]Adapter{greedy, negative}, time.Second).Aggregate(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "greedy", got[0].ID)
	assert.Equal(t, "Fake greedy", got[0].Source)
	assert.Equal(t, 1.0, got[0].Accuracy)
	assert.Len(t, got[0].HourlyForecast, MaxHourlyPoints)
	assert.Len(t, got[0].DailyForecast, MaxDailyPoints)

	assert.Equal(t, 0.0, got[1].Accuracy)
	assert.NotNil(t, got[1].HourlyForecast)
	assert.NotNil(t, got[1].DailyForecast)
}

func TestServiceEnsemble(t *testing.T) {
	community := &fakeAdapter{id: "community", fetch: func(context.Context, Query) (WeatherSource, error) {
		return WeatherSource{
			ID:             "community",
			Accuracy:       0.68,
			Synthetic:      true,
			CurrentWeather: CurrentWeather{Condition: ConditionRain},
		}, nil
	}}
	svc := NewService(
		NewAggregator([]Adapter{returning("b", 0.90), returning("a", 0.95), community}, time.Second),
		NewSelector([]string{"a", "b", "community"}),
	)

	ens, err := svc.Ensemble(context.Background(), Query{Lat: 1, Lon: 2, LocationName: "Somewhere"})
	require.NoError(t, err)
	require.Len(t, ens.Sources, 3)
	require.NotNil(t, ens.MostAccurate)
	assert.Equal(t, "a", ens.MostAccurate.ID)
	assert.Equal(t, 2, ens.Summary.NumericSources)
	assert.Equal(t, []string{"b", "a", "community"}, svc.AdapterIDs())

	_, err = svc.Ensemble(context.Background(), Query{Lat: 100})
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}
