package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

func sevenTimerFixture() obj {
	var series []obj
	for tp := 3; tp <= 72; tp += 3 {
		series = append(series, obj{
			"timepoint":   tp,
			"cloudcover":  6,
			"prec_type":   "rain",
			"prec_amount": 2,
			"temp2m":      tp,
			"rh2m":        "75%",
			"wind10m":     obj{"direction": "SW", "speed": 3},
			"weather":     "lightrainday",
		})
	}
	return obj{"product": "civil", "init": "2026050100", "dataseries": series}
}

func TestSevenTimerFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("product") != "civil" || q.Get("output") != "json" {
			http.Error(w, "bad product", http.StatusBadRequest)
			return
		}
		writeJSON(w, sevenTimerFixture())
	}))
	defer srv.Close()

	ad := NewSevenTimerAdapter(srv.Client(), testUserAgent, specAt(t, "7timer", srv.URL))
	fixClock(&ad.adapterBase)

	src, err := ad.Fetch(context.Background(), weather.Query{Lat: 51.48, Lon: 0})
	require.NoError(t, err)

	assert.Equal(t, 0.82, src.Accuracy)

	cur := src.CurrentWeather
	assert.Equal(t, 48, cur.Temperature, "timepoint 9 is the latest step not after now")
	assert.Equal(t, 75, cur.Humidity)
	assert.Equal(t, 13, cur.WindSpeed)
	assert.Equal(t, 225, cur.WindDirection)
	assert.Equal(t, weather.ConditionDrizzle, cur.Condition)

	require.NotEmpty(t, src.HourlyForecast)
	assert.Equal(t, "12 PM", src.HourlyForecast[0].Time)
	assert.Equal(t, 52, src.HourlyForecast[0].PrecipProbability)

	require.NotEmpty(t, src.DailyForecast)
	assert.Equal(t, "Today", src.DailyForecast[0].Day)
}

func TestSevenTimerBadInitIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, obj{"init": "soon", "dataseries": []obj{}})
	}))
	defer srv.Close()

	ad := NewSevenTimerAdapter(srv.Client(), testUserAgent, specAt(t, "7timer", srv.URL))
	_, err := ad.Fetch(context.Background(), weather.Query{})
	assert.ErrorIs(t, err, weather.ErrAbsent)
}

func TestSevenTimerPrecipChance(t *testing.T) {
	assert.Equal(t, 0, sevenTimerPrecipChance("none", 4))
	assert.Equal(t, 46, sevenTimerPrecipChance("snow", 1))
	assert.Equal(t, 95, sevenTimerPrecipChance("rain", 10))
}
