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

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoAdapter fetches one numerical model from the Open-Meteo multi-model API.
// Each model is its own adapter with its own accuracy weight.
type OpenMeteoAdapter struct {
	adapterBase
}

// NewOpenMeteoAdapter creates an adapter for spec.Model.
func NewOpenMeteoAdapter(client *http.Client, userAgent string, spec Spec) *OpenMeteoAdapter {
	return &OpenMeteoAdapter{adapterBase: newAdapterBase(client, userAgent, spec)}
}

type openMeteoResponse struct {
	UTCOffsetSeconds     int    `json:"utc_offset_seconds"`
	TimezoneAbbreviation string `json:"timezone_abbreviation"`
	Current              struct {
		Time                string   `json:"time"`
		Temperature2m       *float64 `json:"temperature_2m"`
		RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		WeatherCode         *float64 `json:"weather_code"`
		WindSpeed10m        *float64 `json:"wind_speed_10m"`
		WindDirection10m    *float64 `json:"wind_direction_10m"`
		PressureMSL         *float64 `json:"pressure_msl"`
		Visibility          *float64 `json:"visibility"`
		UVIndex             *float64 `json:"uv_index"`
	} `json:"current"`
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		WeatherCode              []*float64 `json:"weather_code"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		WeatherCode                 []*float64 `json:"weather_code"`
		Temperature2mMax            []*float64 `json:"temperature_2m_max"`
		Temperature2mMin            []*float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		Sunrise                     []string   `json:"sunrise"`
		Sunset                      []string   `json:"sunset"`
		DaylightDuration            []*float64 `json:"daylight_duration"`
	} `json:"daily"`
}

func (p *OpenMeteoAdapter) requestURL(q weather.Query) string {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", q.Lat))
	values.Set("longitude", fmt.Sprintf("%f", q.Lon))
	values.Set("models", p.spec.Model)
	values.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,pressure_msl,visibility,uv_index")
	values.Set("hourly", "temperature_2m,weather_code,precipitation_probability")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max,sunrise,sunset,daylight_duration")
	values.Set("wind_speed_unit", "ms")
	values.Set("timezone", "auto")
	values.Set("forecast_days", "10")
	return fmt.Sprintf("%s?%s", p.spec.BaseURL, values.Encode())
}

func (p *OpenMeteoAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	var payload openMeteoResponse
	if err := p.getJSON(ctx, p.requestURL(q), nil, &payload); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}

	cur := payload.Current
	if cur.Temperature2m == nil {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: model %s returned no current temperature", errMalformed, p.spec.Model))
	}

	zone := time.FixedZone(payload.TimezoneAbbreviation, payload.UTCOffsetSeconds)
	now := p.now().In(zone)
	today := weather.DateKey(now)

	src := p.newSource(q)
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   weather.CelsiusToFahrenheit(*cur.Temperature2m),
		Condition:     wmoAt(cur.WeatherCode),
		Humidity:      clampPercent(valueOr(cur.RelativeHumidity2m, 0)),
		WindSpeed:     weather.MPSToMPH(valueOr(cur.WindSpeed10m, 0)),
		WindDirection: int(math.Round(valueOr(cur.WindDirection10m, 0))),
		Visibility:    weather.MetersToMiles(valueOr(cur.Visibility, 0)),
		FeelsLike:     weather.CelsiusToFahrenheit(valueOr(cur.ApparentTemperature, *cur.Temperature2m)),
		Pressure:      weather.HPa(valueOr(cur.PressureMSL, 0)),
		UVIndex:       cur.UVIndex,
	}

	hourly := make([]weather.HourlyPoint, 0, len(payload.Hourly.Time))
	for i, ts := range payload.Hourly.Time {
		t, err := time.ParseInLocation(openMeteoTimeLayout, ts, zone)
		if err != nil {
			continue
		}
		temp := at(payload.Hourly.Temperature2m, i)
		if temp == nil {
			continue
		}
		hourly = append(hourly, weather.HourlyPoint{
			Time:              weather.HourLabel(t),
			Timestamp:         t,
			Temperature:       weather.CelsiusToFahrenheit(*temp),
			Condition:         wmoAt(at(payload.Hourly.WeatherCode, i)),
			PrecipProbability: clampPercent(valueOr(at(payload.Hourly.PrecipitationProbability, i), 0)),
		})
	}
	src.HourlyForecast = weather.HourlyFrom(hourly, now)

	daily := make([]weather.DailyPoint, 0, len(payload.Daily.Time))
	for i, date := range payload.Daily.Time {
		high := at(payload.Daily.Temperature2mMax, i)
		low := at(payload.Daily.Temperature2mMin, i)
		if high == nil || low == nil {
			continue
		}
		daily = append(daily, weather.DailyPoint{
			Date:              date,
			Condition:         wmoAt(at(payload.Daily.WeatherCode, i)),
			High:              weather.CelsiusToFahrenheit(*high),
			Low:               weather.CelsiusToFahrenheit(*low),
			PrecipProbability: clampPercent(valueOr(at(payload.Daily.PrecipitationProbabilityMax, i), 0)),
		})

		if date != today {
			continue
		}
		if i < len(payload.Daily.Sunrise) {
			if t, err := time.ParseInLocation(openMeteoTimeLayout, payload.Daily.Sunrise[i], zone); err == nil {
				src.CurrentWeather.Sunrise = timePtr(t)
			}
		}
		if i < len(payload.Daily.Sunset) {
			if t, err := time.ParseInLocation(openMeteoTimeLayout, payload.Daily.Sunset[i], zone); err == nil {
				src.CurrentWeather.Sunset = timePtr(t)
			}
		}
		if d := at(payload.Daily.DaylightDuration, i); d != nil {
			src.CurrentWeather.DaylightMinutes = intPtr(int(math.Round(*d / 60)))
		}
	}
	src.DailyForecast = weather.DailyFrom(daily, today)

	return src, nil
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func wmoAt(code *float64) weather.Condition {
	if code == nil {
		return weather.ConditionUnknown
	}
	return mapWMOCondition(int(*code))
}
