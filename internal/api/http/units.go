package httpapi

import (
	"math"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

const (
	unitsImperial = "imperial"
	unitsMetric   = "metric"
)

// metricEnsemble converts a canonical (°F, mph, miles) ensemble to °C, km/h and km.
// Pressure is hPa in both systems.
func metricEnsemble(ens weather.Ensemble) weather.Ensemble {
	out := weather.Ensemble{
		Sources: make([]weather.WeatherSource, len(ens.Sources)),
		Summary: ens.Summary,
	}
	for i, src := range ens.Sources {
		out.Sources[i] = metricSource(src)
	}
	if ens.MostAccurate != nil {
		best := metricSource(*ens.MostAccurate)
		out.MostAccurate = &best
	}

	if s := &out.Summary; s.NumericSources > 0 {
		s.Temperature = round1((s.Temperature - 32) * 5 / 9)
		s.FeelsLike = round1((s.FeelsLike - 32) * 5 / 9)
		s.WindSpeed = round1(s.WindSpeed * 1.609344)
	}
	return out
}

func metricSource(src weather.WeatherSource) weather.WeatherSource {
	cur := &src.CurrentWeather
	if src.HasMeasurements() {
		cur.Temperature = weather.FahrenheitToCelsius(float64(cur.Temperature))
		cur.FeelsLike = weather.FahrenheitToCelsius(float64(cur.FeelsLike))
		cur.WindSpeed = weather.MPHToKPH(float64(cur.WindSpeed))
		cur.Visibility = weather.MilesToKilometers(cur.Visibility)
	}

	hourly := make([]weather.HourlyPoint, len(src.HourlyForecast))
	for i, h := range src.HourlyForecast {
		h.Temperature = weather.FahrenheitToCelsius(float64(h.Temperature))
		hourly[i] = h
	}
	daily := make([]weather.DailyPoint, len(src.DailyForecast))
	for i, d := range src.DailyForecast {
		d.High = weather.FahrenheitToCelsius(float64(d.High))
		d.Low = weather.FahrenheitToCelsius(float64(d.Low))
		daily[i] = d
	}
	src.HourlyForecast = hourly
	src.DailyForecast = daily
	return src
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
