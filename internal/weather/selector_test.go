package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modelPriority = []string{
	"openmeteo-ecmwf", "openmeteo-icon", "openmeteo-meteofrance", "openmeteo-ukmo",
	"metno", "openmeteo-gfs", "nws", "openmeteo-gem", "brightsky", "openmeteo-jma",
	"weatherapi", "7timer", "community",
}

func TestSelectBestSevenModels(t *testing.T) {
	sources := []WeatherSource{
		sourceOf("openmeteo-gfs", 0.90, 71),
		sourceOf("openmeteo-icon", 0.93, 70),
		sourceOf("openmeteo-jma", 0.88, 72),
		sourceOf("openmeteo-ecmwf", 0.95, 69),
		sourceOf("openmeteo-gem", 0.89, 70),
		sourceOf("openmeteo-ukmo", 0.91, 68),
		sourceOf("openmeteo-meteofrance", 0.92, 70),
	}
	sel := NewSelector(modelPriority)

	best, ok := sel.SelectBest(sources)
	require.True(t, ok)
	assert.Equal(t, "openmeteo-ecmwf", best.ID)
	assert.Equal(t, 0.95, best.Accuracy)

	again, ok := sel.SelectBest(sources)
	require.True(t, ok)
	assert.Equal(t, best, again, "selection is idempotent")
}

func TestSelectBestNeverPicksSyntheticOrEmpty(t *testing.T) {
	sel := NewSelector(modelPriority)
	consensus := WeatherSource{
		ID:             "community",
		Accuracy:       0.85,
		Synthetic:      true,
		CurrentWeather: CurrentWeather{Condition: ConditionRain},
	}
	zeroed := WeatherSource{ID: "7timer", Accuracy: 0.99, CurrentWeather: CurrentWeather{Condition: ConditionClear}}

	_, ok := sel.SelectBest([]WeatherSource{consensus})
	assert.False(t, ok)

	_, ok = sel.SelectBest([]WeatherSource{consensus, zeroed})
	assert.False(t, ok)

	_, ok = sel.SelectBest(nil)
	assert.False(t, ok)

	best, ok := sel.SelectBest([]WeatherSource{consensus, zeroed, sourceOf("openmeteo-jma", 0.88, 60)})
	require.True(t, ok)
	assert.Equal(t, "openmeteo-jma", best.ID)
}

func TestSelectBestTieBreaks(t *testing.T) {
	sel := NewSelector(modelPriority)

	best, ok := sel.SelectBest([]WeatherSource{
		sourceOf("metno", 0.91, 60),
		sourceOf("openmeteo-ukmo", 0.91, 61),
	})
	require.True(t, ok)
	assert.Equal(t, "openmeteo-ukmo", best.ID, "registry priority breaks accuracy ties")

	best, _ = sel.SelectBest([]WeatherSource{
		sourceOf("zeta", 0.9, 60),
		sourceOf("alpha", 0.9, 60),
	})
	assert.Equal(t, "alpha", best.ID, "unknown IDs fall back to lexical order")

	best, _ = sel.SelectBest([]WeatherSource{
		sourceOf("alpha", 0.9, 60),
		sourceOf("7timer", 0.9, 60),
	})
	assert.Equal(t, "7timer", best.ID, "known IDs rank before unknown ones")
}
