package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

func metNoFixture() obj {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var series []obj
	for i := 0; i < 48; i++ {
		entry := obj{
			"time": start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			"data": obj{
				"instant": obj{"details": obj{
					"air_temperature":           float64(i) / 2,
					"air_pressure_at_sea_level": 1008.4,
					"relative_humidity":         81.0,
					"wind_speed":                4.0,
					"wind_from_direction":       190.0,
				}},
				"next_1_hours": obj{
					"summary": obj{"symbol_code": "partlycloudy_day"},
					"details": obj{"probability_of_precipitation": 15.0},
				},
			},
		}
		if i%6 == 0 {
			entry["data"].(obj)["next_6_hours"] = obj{
				"summary": obj{"symbol_code": "rainshowers_day"},
				"details": obj{"probability_of_precipitation": 45.0},
			}
		}
		series = append(series, entry)
	}
	return obj{"properties": obj{"timeseries": series}}
}

func TestMetNoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != testUserAgent {
			http.Error(w, "identify yourself", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("lat") != "59.9139" || r.URL.Query().Get("lon") != "10.7522" {
			http.Error(w, "bad coordinates", http.StatusBadRequest)
			return
		}
		writeJSON(w, metNoFixture())
	}))
	defer srv.Close()

	ad := NewMetNoAdapter(srv.Client(), testUserAgent, specAt(t, "metno", srv.URL))
	fixClock(&ad.adapterBase)

	src, err := ad.Fetch(context.Background(), weather.Query{Lat: 59.913868, Lon: 10.752245, LocationName: "Oslo"})
	require.NoError(t, err)

	assert.Equal(t, "metno", src.ID)
	assert.Equal(t, "Oslo", src.Location)

	cur := src.CurrentWeather
	assert.Equal(t, 41, cur.Temperature, "10:00Z is the latest instant not after now")
	assert.Equal(t, 81, cur.Humidity)
	assert.Equal(t, 9, cur.WindSpeed)
	assert.Equal(t, 190, cur.WindDirection)
	assert.Equal(t, 1008, cur.Pressure)
	assert.Equal(t, weather.ConditionPartlyCloudy, cur.Condition)

	require.Len(t, src.HourlyForecast, weather.MaxHourlyPoints)
	assert.Equal(t, "11 AM", src.HourlyForecast[0].Time)
	assert.Equal(t, 15, src.HourlyForecast[0].PrecipProbability)

	require.NotEmpty(t, src.DailyForecast)
	today := src.DailyForecast[0]
	assert.Equal(t, "Today", today.Day)
	assert.Equal(t, "2026-05-01", today.Date)
	assert.Equal(t, 45, today.PrecipProbability)
}

func TestMetNoEmptyTimeseriesIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, obj{"properties": obj{"timeseries": []obj{}}})
	}))
	defer srv.Close()

	ad := NewMetNoAdapter(srv.Client(), testUserAgent, specAt(t, "metno", srv.URL))
	_, err := ad.Fetch(context.Background(), weather.Query{Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, weather.ErrAbsent)
}

func TestMapMetNoCondition(t *testing.T) {
	tests := map[string]weather.Condition{
		"clearsky_night":       weather.ConditionClear,
		"fair_day":             weather.ConditionPartlyCloudy,
		"lightrain":            weather.ConditionDrizzle,
		"lightrainshowers_day": weather.ConditionRain,
		"heavyrainandthunder":  weather.ConditionThunderstorm,
		"heavysnowshowers_day": weather.ConditionHeavySnow,
		"sleet":                weather.ConditionSleet,
		"":                     weather.ConditionUnknown,
	}
	for symbol, want := range tests {
		assert.Equal(t, want, mapMetNoCondition(symbol), symbol)
	}
}
