package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

func weatherAPIFixture() obj {
	var days []obj
	for d := 0; d < 3; d++ {
		date := time.Date(2026, 5, 1+d, 0, 0, 0, 0, time.UTC)
		var hours []obj
		for h := 0; h < 24; h++ {
			hours = append(hours, obj{
				"time_epoch":     date.Add(time.Duration(h) * time.Hour).Unix(),
				"temp_c":         10.0 + float64(h)/2,
				"chance_of_rain": 20,
				"chance_of_snow": 0,
				"condition":      obj{"text": "Patchy rain possible", "code": 1063},
			})
		}
		days = append(days, obj{
			"date": weather.DateKey(date),
			"day": obj{
				"maxtemp_c":            18.0,
				"mintemp_c":            8.0,
				"daily_chance_of_rain": 60,
				"daily_chance_of_snow": 5,
				"condition":            obj{"text": "Moderate rain", "code": 1189},
			},
			"astro": obj{"sunrise": "05:30 AM", "sunset": "08:30 PM"},
			"hour":  hours,
		})
	}

	return obj{
		"location": obj{
			"name":      "London",
			"region":    "City of London, Greater London",
			"country":   "United Kingdom",
			"tz_id":     "UTC",
			"localtime": "2026-05-01 10:20",
		},
		"current": obj{
			"temp_c":      15.0,
			"feelslike_c": 14.0,
			"humidity":    70,
			"wind_kph":    20.0,
			"wind_degree": 225,
			"vis_km":      10.0,
			"uv":          3.0,
			"pressure_mb": 1020.0,
			"condition":   obj{"text": "Light rain", "code": 1183},
			"air_quality": obj{"pm2_5": 12.0},
		},
		"forecast": obj{"forecastday": days},
	}
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "secret" {
			http.Error(w, `{"error":{"code":2006,"message":"API key is invalid."}}`, http.StatusUnauthorized)
			return
		}
		if q.Get("q") != "51.507400,-0.127800" || q.Get("days") != "10" || q.Get("aqi") != "yes" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		writeJSON(w, weatherAPIFixture())
	}))
	defer srv.Close()

	ad := NewWeatherAPIAdapter(srv.Client(), testUserAgent, specAt(t, "weatherapi", srv.URL), "secret")
	fixClock(&ad.adapterBase)

	src, err := ad.Fetch(context.Background(), weather.Query{Lat: 51.5074, Lon: -0.1278})
	require.NoError(t, err)

	assert.Equal(t, "weatherapi", src.ID)
	assert.Equal(t, 0.87, src.Accuracy)
	assert.Equal(t, "London, City of London, Greater London", src.Location)
	require.NotNil(t, src.StationInfo)
	assert.Equal(t, "United Kingdom", src.StationInfo.Country)

	cur := src.CurrentWeather
	assert.Equal(t, 59, cur.Temperature)
	assert.Equal(t, 57, cur.FeelsLike)
	assert.Equal(t, 70, cur.Humidity)
	assert.Equal(t, 12, cur.WindSpeed)
	assert.Equal(t, 225, cur.WindDirection)
	assert.Equal(t, 6.2, cur.Visibility)
	assert.Equal(t, 1020, cur.Pressure)
	assert.Equal(t, weather.ConditionRain, cur.Condition)
	require.NotNil(t, cur.AQI)
	assert.Equal(t, 56, *cur.AQI)
	require.NotNil(t, cur.DaylightMinutes)
	assert.Equal(t, 900, *cur.DaylightMinutes)

	require.Len(t, src.HourlyForecast, weather.MaxHourlyPoints)
	assert.Equal(t, "10 AM", src.HourlyForecast[0].Time)
	assert.Equal(t, 20, src.HourlyForecast[0].PrecipProbability)

	require.Len(t, src.DailyForecast, 3)
	assert.Equal(t, "Today", src.DailyForecast[0].Day)
	assert.Equal(t, 64, src.DailyForecast[0].High)
	assert.Equal(t, 46, src.DailyForecast[0].Low)
	assert.Equal(t, 60, src.DailyForecast[0].PrecipProbability)
}

func TestWeatherAPIFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":2006}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	noKey := NewWeatherAPIAdapter(srv.Client(), testUserAgent, specAt(t, "weatherapi", srv.URL), "")
	_, err := noKey.Fetch(context.Background(), weather.Query{})
	assert.ErrorIs(t, err, weather.ErrAbsent)
	assert.Zero(t, calls.Load(), "no request without a key")

	badKey := NewWeatherAPIAdapter(srv.Client(), testUserAgent, specAt(t, "weatherapi", srv.URL), "wrong")
	_, err = badKey.Fetch(context.Background(), weather.Query{})
	assert.ErrorIs(t, err, weather.ErrAbsent)
	assert.EqualValues(t, 1, calls.Load())
}
