package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryWeights(t *testing.T) {
	want := map[string]float64{
		"openmeteo-ecmwf":       0.95,
		"openmeteo-icon":        0.93,
		"openmeteo-meteofrance": 0.92,
		"openmeteo-ukmo":        0.91,
		"metno":                 0.91,
		"openmeteo-gfs":         0.90,
		"nws":                   0.90,
		"openmeteo-gem":         0.89,
		"brightsky":             0.89,
		"openmeteo-jma":         0.88,
		"weatherapi":            0.87,
		"7timer":                0.82,
		"community":             0.85,
	}
	require.Len(t, DefaultRegistry, len(want))
	for _, spec := range DefaultRegistry {
		assert.Equal(t, want[spec.ID], spec.Accuracy, spec.ID)
		assert.Greater(t, spec.Accuracy, 0.0)
		assert.LessOrEqual(t, spec.Accuracy, 1.0)
	}
}

func TestRegistryOrderIsNonIncreasingAmongPhysicalSources(t *testing.T) {
	order := PriorityOrder()
	assert.Equal(t, "openmeteo-ecmwf", order[0])
	assert.Equal(t, CommunityID, order[len(order)-1])

	prev := 1.0
	for _, spec := range DefaultRegistry {
		if spec.Kind == KindCommunity {
			continue
		}
		assert.LessOrEqual(t, spec.Accuracy, prev, spec.ID)
		prev = spec.Accuracy
	}
}

func TestLookup(t *testing.T) {
	spec, ok := Lookup("openmeteo-meteofrance")
	require.True(t, ok)
	assert.Equal(t, "meteofrance_seamless", spec.Model)
	assert.Equal(t, KindNumericalModel, spec.Kind)

	_, ok = Lookup("openweather")
	assert.False(t, ok)
}

func adapterIDs(cfg BuildConfig) []string {
	var ids []string
	for _, ad := range Build(cfg) {
		ids = append(ids, ad.ID())
	}
	return ids
}

func TestBuildSkipsUnconfiguredAdapters(t *testing.T) {
	ids := adapterIDs(BuildConfig{UserAgent: testUserAgent})
	assert.NotContains(t, ids, "weatherapi", "no key")
	assert.NotContains(t, ids, CommunityID, "no report store")
	assert.Len(t, ids, len(DefaultRegistry)-2)
	assert.Equal(t, "openmeteo-ecmwf", ids[0])

	ids = adapterIDs(BuildConfig{
		UserAgent:     testUserAgent,
		WeatherAPIKey: "k",
		Reports:       sliceReports{},
		Disabled:      map[string]bool{"nws": true, "7timer": true},
	})
	assert.Contains(t, ids, "weatherapi")
	assert.Contains(t, ids, CommunityID)
	assert.NotContains(t, ids, "nws")
	assert.NotContains(t, ids, "7timer")
	assert.Len(t, ids, len(DefaultRegistry)-2)
	assert.Equal(t, CommunityID, ids[len(ids)-1])
}

func TestBuildWrapsRateLimitedProviders(t *testing.T) {
	adapters := Build(BuildConfig{UserAgent: testUserAgent, RateLimitRPS: 2, RateLimitBurst: 4})
	for _, ad := range adapters {
		spec, ok := Lookup(ad.ID())
		require.True(t, ok)
		_, limited := ad.(*RateLimitedAdapter)
		assert.Equal(t, spec.RateLimited, limited, ad.ID())
	}

	for _, ad := range Build(BuildConfig{UserAgent: testUserAgent}) {
		_, limited := ad.(*RateLimitedAdapter)
		assert.False(t, limited, "no limiter without a rate")
	}
}

func TestBuildAppliesOverrides(t *testing.T) {
	adapters := Build(BuildConfig{
		UserAgent: testUserAgent,
		Overrides: map[string]string{"nws": "http://localhost:9999"},
	})
	for _, ad := range adapters {
		if nws, ok := ad.(*NWSAdapter); ok {
			assert.Equal(t, "http://localhost:9999", nws.spec.BaseURL)
			return
		}
	}
	t.Fatal("nws adapter not built")
}
