package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// SevenTimerAdapter implements weather.Adapter for the 7Timer! civil product, a
// lightweight global model with 3-hourly steps and coarse categorical values.
type SevenTimerAdapter struct {
	adapterBase
}

func NewSevenTimerAdapter(client *http.Client, userAgent string, spec Spec) *SevenTimerAdapter {
	return &SevenTimerAdapter{adapterBase: newAdapterBase(client, userAgent, spec)}
}

type sevenTimerResponse struct {
	Init       string `json:"init"`
	Dataseries []struct {
		Timepoint  int    `json:"timepoint"`
		Cloudcover int    `json:"cloudcover"`
		PrecType   string `json:"prec_type"`
		PrecAmount int    `json:"prec_amount"`
		Temp2m     *int   `json:"temp2m"`
		RH2m       string `json:"rh2m"`
		Wind10m    struct {
			Direction string `json:"direction"`
			Speed     int    `json:"speed"`
		} `json:"wind10m"`
		Weather string `json:"weather"`
	} `json:"dataseries"`
}

// sevenTimerWind maps the 1-8 wind scale onto the midpoint of each class in m/s.
var sevenTimerWind = map[int]float64{
	1: 0.2,
	2: 1.9,
	3: 5.7,
	4: 9.4,
	5: 14.0,
	6: 20.9,
	7: 28.6,
	8: 34.0,
}

func (p *SevenTimerAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.3f", q.Lat))
	values.Set("lon", fmt.Sprintf("%.3f", q.Lon))
	values.Set("product", "civil")
	values.Set("output", "json")

	var payload sevenTimerResponse
	if err := p.getJSON(ctx, fmt.Sprintf("%s?%s", p.spec.BaseURL, values.Encode()), nil, &payload); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}
	initTime, err := time.Parse("2006010215", payload.Init)
	if err != nil {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: init %q: %v", errMalformed, payload.Init, err))
	}

	zone := approxZone(q.Lon)
	now := p.now().In(zone)
	today := weather.DateKey(now)

	type dayAgg struct {
		point    weather.DailyPoint
		noonDist time.Duration
	}
	days := make(map[string]*dayAgg)
	var order []string
	var hourly []weather.HourlyPoint
	currentIdx := -1

	for i, d := range payload.Dataseries {
		if d.Temp2m == nil {
			continue
		}
		t := initTime.Add(time.Duration(d.Timepoint) * time.Hour).In(zone)
		if !t.After(now) || currentIdx < 0 {
			currentIdx = i
		}
		temp := weather.CelsiusToFahrenheit(float64(*d.Temp2m))
		cond := mapSevenTimerCondition(d.Weather)
		pop := sevenTimerPrecipChance(d.PrecType, d.PrecAmount)

		hourly = append(hourly, weather.HourlyPoint{
			Time:              weather.HourLabel(t),
			Timestamp:         t,
			Temperature:       temp,
			Condition:         cond,
			PrecipProbability: pop,
		})

		key := weather.DateKey(t)
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{
				point:    weather.DailyPoint{Date: key, Condition: cond, High: temp, Low: temp},
				noonDist: absDuration(t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, zone))),
			}
			days[key] = agg
			order = append(order, key)
		}
		agg.point.High = max(agg.point.High, temp)
		agg.point.Low = min(agg.point.Low, temp)
		agg.point.PrecipProbability = max(agg.point.PrecipProbability, pop)
		if dist := absDuration(t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, zone))); dist < agg.noonDist {
			agg.point.Condition = cond
			agg.noonDist = dist
		}
	}

	if currentIdx < 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: empty dataseries", errMalformed))
	}
	cur := payload.Dataseries[currentIdx]

	src := p.newSource(q)
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   weather.CelsiusToFahrenheit(float64(*cur.Temp2m)),
		Condition:     mapSevenTimerCondition(cur.Weather),
		Humidity:      parsePercent(cur.RH2m),
		WindSpeed:     weather.MPSToMPH(sevenTimerWind[cur.Wind10m.Speed]),
		WindDirection: compassDegrees(cur.Wind10m.Direction),
	}
	src.CurrentWeather.FeelsLike = src.CurrentWeather.Temperature

	daily := make([]weather.DailyPoint, 0, len(order))
	for _, key := range order {
		daily = append(daily, days[key].point)
	}

	src.HourlyForecast = weather.HourlyFrom(hourly, now)
	src.DailyForecast = weather.DailyFrom(daily, today)
	return src, nil
}

// sevenTimerPrecipChance estimates a probability from the categorical precipitation
// fields; the civil product has no probability of its own.
func sevenTimerPrecipChance(precType string, amount int) int {
	if precType == "" || precType == "none" {
		return 0
	}
	return min(95, 40+6*amount)
}

func parsePercent(s string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0
	}
	return clampPercent(float64(n))
}
