package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// WeatherAPIAdapter implements weather.Adapter for the WeatherAPI.com forecast endpoint.
type WeatherAPIAdapter struct {
	adapterBase
	apiKey string
}

func NewWeatherAPIAdapter(client *http.Client, userAgent string, spec Spec, apiKey string) *WeatherAPIAdapter {
	return &WeatherAPIAdapter{
		adapterBase: newAdapterBase(client, userAgent, spec),
		apiKey:      apiKey,
	}
}

type weatherAPICondition struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

type weatherAPIResponse struct {
	Location struct {
		Name      string `json:"name"`
		Region    string `json:"region"`
		Country   string `json:"country"`
		TzID      string `json:"tz_id"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current *struct {
		TempC      *float64            `json:"temp_c"`
		FeelsLikeC *float64            `json:"feelslike_c"`
		Humidity   float64             `json:"humidity"`
		WindKph    float64             `json:"wind_kph"`
		WindDegree float64             `json:"wind_degree"`
		VisKm      float64             `json:"vis_km"`
		UV         *float64            `json:"uv"`
		PressureMb float64             `json:"pressure_mb"`
		Condition  weatherAPICondition `json:"condition"`
		AirQuality *struct {
			PM25 *float64 `json:"pm2_5"`
		} `json:"air_quality"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64             `json:"maxtemp_c"`
				MinTempC          float64             `json:"mintemp_c"`
				DailyChanceOfRain float64             `json:"daily_chance_of_rain"`
				DailyChanceOfSnow float64             `json:"daily_chance_of_snow"`
				Condition         weatherAPICondition `json:"condition"`
			} `json:"day"`
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
			Hour []struct {
				TimeEpoch    int64               `json:"time_epoch"`
				TempC        float64             `json:"temp_c"`
				ChanceOfRain float64             `json:"chance_of_rain"`
				ChanceOfSnow float64             `json:"chance_of_snow"`
				Condition    weatherAPICondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	if p.apiKey == "" {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("weatherapi api key is not configured"))
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", q.Lat, q.Lon))
	values.Set("days", "10")
	values.Set("aqi", "yes")
	values.Set("alerts", "no")

	var payload weatherAPIResponse
	if err := p.getJSON(ctx, fmt.Sprintf("%s?%s", p.spec.BaseURL, values.Encode()), nil, &payload); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}
	if payload.Current == nil || payload.Current.TempC == nil {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: missing current conditions", errMalformed))
	}

	zone, err := time.LoadLocation(payload.Location.TzID)
	if err != nil || payload.Location.TzID == "" {
		zone = approxZone(q.Lon)
	}
	now := p.now().In(zone)
	today := weather.DateKey(now)

	cur := payload.Current
	src := p.newSource(q)
	if q.LocationName == "" && payload.Location.Name != "" {
		src.Location = joinNonEmpty(payload.Location.Name, payload.Location.Region)
	}
	src.StationInfo = &weather.StationInfo{
		Name:      payload.Location.Name,
		Region:    payload.Location.Region,
		Country:   payload.Location.Country,
		LocalTime: payload.Location.Localtime,
	}
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   weather.CelsiusToFahrenheit(*cur.TempC),
		Condition:     mapWeatherAPICondition(cur.Condition.Code, cur.Condition.Text),
		Humidity:      clampPercent(cur.Humidity),
		WindSpeed:     weather.KPHToMPH(cur.WindKph),
		WindDirection: int(math.Round(cur.WindDegree)),
		Visibility:    weather.MetersToMiles(cur.VisKm * 1000),
		FeelsLike:     weather.CelsiusToFahrenheit(valueOr(cur.FeelsLikeC, *cur.TempC)),
		Pressure:      weather.HPa(cur.PressureMb),
		UVIndex:       cur.UV,
	}
	if cur.AirQuality != nil && cur.AirQuality.PM25 != nil {
		src.CurrentWeather.AQI = intPtr(weather.USAQIFromPM25(*cur.AirQuality.PM25))
	}

	var hourly []weather.HourlyPoint
	var daily []weather.DailyPoint
	for _, day := range payload.Forecast.Forecastday {
		daily = append(daily, weather.DailyPoint{
			Date:              day.Date,
			Condition:         mapWeatherAPICondition(day.Day.Condition.Code, day.Day.Condition.Text),
			High:              weather.CelsiusToFahrenheit(day.Day.MaxTempC),
			Low:               weather.CelsiusToFahrenheit(day.Day.MinTempC),
			PrecipProbability: clampPercent(math.Max(day.Day.DailyChanceOfRain, day.Day.DailyChanceOfSnow)),
		})

		if day.Date == today {
			if t, err := parseClock(day.Date, day.Astro.Sunrise, zone); err == nil {
				src.CurrentWeather.Sunrise = timePtr(t)
			}
			if t, err := parseClock(day.Date, day.Astro.Sunset, zone); err == nil {
				src.CurrentWeather.Sunset = timePtr(t)
			}
			if src.CurrentWeather.Sunrise != nil && src.CurrentWeather.Sunset != nil {
				mins := int(src.CurrentWeather.Sunset.Sub(*src.CurrentWeather.Sunrise).Minutes())
				src.CurrentWeather.DaylightMinutes = intPtr(mins)
			}
		}

		for _, h := range day.Hour {
			t := time.Unix(h.TimeEpoch, 0).In(zone)
			hourly = append(hourly, weather.HourlyPoint{
				Time:              weather.HourLabel(t),
				Timestamp:         t,
				Temperature:       weather.CelsiusToFahrenheit(h.TempC),
				Condition:         mapWeatherAPICondition(h.Condition.Code, h.Condition.Text),
				PrecipProbability: clampPercent(math.Max(h.ChanceOfRain, h.ChanceOfSnow)),
			})
		}
	}
	src.HourlyForecast = weather.HourlyFrom(hourly, now)
	src.DailyForecast = weather.DailyFrom(daily, today)

	return src, nil
}

// parseClock combines a YYYY-MM-DD date with a "07:12 AM" clock time.
func parseClock(date, clock string, zone *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 03:04 PM", date+" "+strings.TrimSpace(clock), zone)
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
