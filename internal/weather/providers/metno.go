package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// MetNoAdapter implements weather.Adapter for the MET Norway locationforecast API.
// Its terms of service require an identifying User-Agent.
type MetNoAdapter struct {
	adapterBase
}

func NewMetNoAdapter(client *http.Client, userAgent string, spec Spec) *MetNoAdapter {
	return &MetNoAdapter{adapterBase: newAdapterBase(client, userAgent, spec)}
}

type metNoSummary struct {
	SymbolCode string `json:"symbol_code"`
}

type metNoResponse struct {
	Properties struct {
		Timeseries []struct {
			Time string `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						AirTemperature        *float64 `json:"air_temperature"`
						AirPressureAtSeaLevel *float64 `json:"air_pressure_at_sea_level"`
						RelativeHumidity      *float64 `json:"relative_humidity"`
						WindSpeed             *float64 `json:"wind_speed"`
						WindFromDirection     *float64 `json:"wind_from_direction"`
						UltravioletIndexClear *float64 `json:"ultraviolet_index_clear_sky"`
					} `json:"details"`
				} `json:"instant"`
				Next1Hours *struct {
					Summary metNoSummary `json:"summary"`
					Details struct {
						ProbabilityOfPrecipitation *float64 `json:"probability_of_precipitation"`
					} `json:"details"`
				} `json:"next_1_hours"`
				Next6Hours *struct {
					Summary metNoSummary `json:"summary"`
					Details struct {
						AirTemperatureMax          *float64 `json:"air_temperature_max"`
						AirTemperatureMin          *float64 `json:"air_temperature_min"`
						ProbabilityOfPrecipitation *float64 `json:"probability_of_precipitation"`
					} `json:"details"`
				} `json:"next_6_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

func (p *MetNoAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	values := url.Values{}
	// The API rejects more than four decimals.
	values.Set("lat", fmt.Sprintf("%.4f", q.Lat))
	values.Set("lon", fmt.Sprintf("%.4f", q.Lon))

	var payload metNoResponse
	if err := p.getJSON(ctx, fmt.Sprintf("%s?%s", p.spec.BaseURL, values.Encode()), nil, &payload); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}
	series := payload.Properties.Timeseries
	if len(series) == 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: empty timeseries", errMalformed))
	}

	zone := approxZone(q.Lon)
	now := p.now().In(zone)
	today := weather.DateKey(now)

	type dayAgg struct {
		point    weather.DailyPoint
		noonDist time.Duration
		seen     bool
	}
	days := make(map[string]*dayAgg)
	var order []string

	var hourly []weather.HourlyPoint
	currentIdx := -1

	for i, entry := range series {
		t, err := time.Parse(time.RFC3339, entry.Time)
		if err != nil {
			continue
		}
		t = t.In(zone)
		inst := entry.Data.Instant.Details
		if inst.AirTemperature == nil {
			continue
		}
		if !t.After(now) || currentIdx < 0 {
			currentIdx = i
		}
		temp := weather.CelsiusToFahrenheit(*inst.AirTemperature)

		symbol, pop := "", 0
		if n1 := entry.Data.Next1Hours; n1 != nil {
			symbol = n1.Summary.SymbolCode
			pop = clampPercent(valueOr(n1.Details.ProbabilityOfPrecipitation, 0))
			hourly = append(hourly, weather.HourlyPoint{
				Time:              weather.HourLabel(t),
				Timestamp:         t,
				Temperature:       temp,
				Condition:         mapMetNoCondition(symbol),
				PrecipProbability: pop,
			})
		}

		key := weather.DateKey(t)
		d, ok := days[key]
		if !ok {
			d = &dayAgg{point: weather.DailyPoint{Date: key, Condition: weather.ConditionUnknown, High: temp, Low: temp}}
			days[key] = d
			order = append(order, key)
		}
		d.point.High = max(d.point.High, temp)
		d.point.Low = min(d.point.Low, temp)

		if n6 := entry.Data.Next6Hours; n6 != nil {
			if n6.Details.AirTemperatureMax != nil {
				d.point.High = max(d.point.High, weather.CelsiusToFahrenheit(*n6.Details.AirTemperatureMax))
			}
			if n6.Details.AirTemperatureMin != nil {
				d.point.Low = min(d.point.Low, weather.CelsiusToFahrenheit(*n6.Details.AirTemperatureMin))
			}
			if p6 := clampPercent(valueOr(n6.Details.ProbabilityOfPrecipitation, 0)); p6 > pop {
				pop = p6
			}
			if symbol == "" {
				symbol = n6.Summary.SymbolCode
			}
		}
		if pop > d.point.PrecipProbability {
			d.point.PrecipProbability = pop
		}

		// The day's condition is the symbol closest to local noon.
		if symbol != "" {
			noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, zone)
			dist := absDuration(t.Sub(noon))
			if !d.seen || dist < d.noonDist {
				d.point.Condition = mapMetNoCondition(symbol)
				d.noonDist = dist
				d.seen = true
			}
		}
	}

	if currentIdx < 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: no instant temperature", errMalformed))
	}
	cur := series[currentIdx].Data
	inst := cur.Instant.Details

	src := p.newSource(q)
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   weather.CelsiusToFahrenheit(*inst.AirTemperature),
		Humidity:      clampPercent(valueOr(inst.RelativeHumidity, 0)),
		WindSpeed:     weather.MPSToMPH(valueOr(inst.WindSpeed, 0)),
		WindDirection: int(math.Round(valueOr(inst.WindFromDirection, 0))),
		Pressure:      weather.HPa(valueOr(inst.AirPressureAtSeaLevel, 0)),
		UVIndex:       inst.UltravioletIndexClear,
		Condition:     weather.ConditionUnknown,
	}
	src.CurrentWeather.FeelsLike = src.CurrentWeather.Temperature
	switch {
	case cur.Next1Hours != nil:
		src.CurrentWeather.Condition = mapMetNoCondition(cur.Next1Hours.Summary.SymbolCode)
	case cur.Next6Hours != nil:
		src.CurrentWeather.Condition = mapMetNoCondition(cur.Next6Hours.Summary.SymbolCode)
	}

	daily := make([]weather.DailyPoint, 0, len(order))
	for _, key := range order {
		daily = append(daily, days[key].point)
	}

	src.HourlyForecast = weather.HourlyFrom(hourly, now)
	src.DailyForecast = weather.DailyFrom(daily, today)
	return src, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
