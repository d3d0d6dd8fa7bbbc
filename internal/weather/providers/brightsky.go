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

// BrightSkyAdapter implements weather.Adapter for Bright Sky, the free JSON API over
// DWD (Deutscher Wetterdienst) open data. Coverage outside central Europe is sparse,
// and an empty answer makes the source absent.
type BrightSkyAdapter struct {
	adapterBase
}

func NewBrightSkyAdapter(client *http.Client, userAgent string, spec Spec) *BrightSkyAdapter {
	return &BrightSkyAdapter{adapterBase: newAdapterBase(client, userAgent, spec)}
}

type brightSkyResponse struct {
	Weather []struct {
		Timestamp                string   `json:"timestamp"`
		SourceID                 int      `json:"source_id"`
		Temperature              *float64 `json:"temperature"`
		PressureMSL              *float64 `json:"pressure_msl"`
		RelativeHumidity         *float64 `json:"relative_humidity"`
		WindSpeed                *float64 `json:"wind_speed"`
		WindDirection            *float64 `json:"wind_direction"`
		Visibility               *float64 `json:"visibility"`
		PrecipitationProbability *float64 `json:"precipitation_probability"`
		Condition                string   `json:"condition"`
		Icon                     string   `json:"icon"`
	} `json:"weather"`
	Sources []struct {
		ID              int     `json:"id"`
		StationName     string  `json:"station_name"`
		ObservationType string  `json:"observation_type"`
		Distance        float64 `json:"distance"`
	} `json:"sources"`
}

func (p *BrightSkyAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	zone := approxZone(q.Lon)
	now := p.now().In(zone)
	today := weather.DateKey(now)

	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", q.Lat))
	values.Set("lon", fmt.Sprintf("%f", q.Lon))
	values.Set("date", today)
	values.Set("last_date", weather.DateKey(now.AddDate(0, 0, weather.MaxDailyPoints)))

	var payload brightSkyResponse
	if err := p.getJSON(ctx, fmt.Sprintf("%s?%s", p.spec.BaseURL, values.Encode()), nil, &payload); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}

	type dayAgg struct {
		point weather.DailyPoint
		votes map[weather.Condition]int
	}
	days := make(map[string]*dayAgg)
	var order []string
	var hourly []weather.HourlyPoint
	currentIdx := -1

	for i, w := range payload.Weather {
		if w.Temperature == nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			continue
		}
		t = t.In(zone)
		if !t.After(now) || currentIdx < 0 {
			currentIdx = i
		}

		temp := weather.CelsiusToFahrenheit(*w.Temperature)
		cond := mapBrightSkyCondition(w.Icon, w.Condition)
		pop := clampPercent(valueOr(w.PrecipitationProbability, 0))
		hourly = append(hourly, weather.HourlyPoint{
			Time:              weather.HourLabel(t),
			Timestamp:         t,
			Temperature:       temp,
			Condition:         cond,
			PrecipProbability: pop,
		})

		key := weather.DateKey(t)
		d, ok := days[key]
		if !ok {
			d = &dayAgg{
				point: weather.DailyPoint{Date: key, High: temp, Low: temp},
				votes: make(map[weather.Condition]int),
			}
			days[key] = d
			order = append(order, key)
		}
		d.point.High = max(d.point.High, temp)
		d.point.Low = min(d.point.Low, temp)
		d.point.PrecipProbability = max(d.point.PrecipProbability, pop)
		if t.Hour() >= 6 && t.Hour() < 21 {
			d.votes[cond]++
		}
	}

	if currentIdx < 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: no temperature records", errMalformed))
	}
	cur := payload.Weather[currentIdx]

	src := p.newSource(q)
	if len(payload.Sources) > 0 && payload.Sources[0].StationName != "" {
		src.StationInfo = &weather.StationInfo{
			Name:      payload.Sources[0].StationName,
			Country:   "DE",
			LocalTime: now.Format("2006-01-02 15:04"),
		}
	}
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   weather.CelsiusToFahrenheit(*cur.Temperature),
		Condition:     mapBrightSkyCondition(cur.Icon, cur.Condition),
		Humidity:      clampPercent(valueOr(cur.RelativeHumidity, 0)),
		WindSpeed:     weather.KPHToMPH(valueOr(cur.WindSpeed, 0)),
		WindDirection: int(math.Round(valueOr(cur.WindDirection, 0))),
		Visibility:    weather.MetersToMiles(valueOr(cur.Visibility, 0)),
		Pressure:      weather.HPa(valueOr(cur.PressureMSL, 0)),
	}
	src.CurrentWeather.FeelsLike = src.CurrentWeather.Temperature

	daily := make([]weather.DailyPoint, 0, len(order))
	for _, key := range order {
		d := days[key]
		d.point.Condition = plurality(d.votes)
		daily = append(daily, d.point)
	}

	src.HourlyForecast = weather.HourlyFrom(hourly, now)
	src.DailyForecast = weather.DailyFrom(daily, today)
	return src, nil
}

// plurality returns the most frequent condition, preferring the canonical taxonomy
// order on ties so results do not depend on map iteration.
func plurality(votes map[weather.Condition]int) weather.Condition {
	best, bestCount := weather.ConditionUnknown, 0
	for _, c := range weather.Conditions {
		if n := votes[c]; n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
