package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// NWSAdapter implements weather.Adapter for the US National Weather Service API.
// Points outside the US are answered with 404 and the source is absent.
type NWSAdapter struct {
	adapterBase
}

func NewNWSAdapter(client *http.Client, userAgent string, spec Spec) *NWSAdapter {
	return &NWSAdapter{adapterBase: newAdapterBase(client, userAgent, spec)}
}

var nwsHeaders = map[string]string{"Accept": "application/geo+json"}

type nwsPointResponse struct {
	Properties struct {
		Forecast            string `json:"forecast"`
		ForecastHourly      string `json:"forecastHourly"`
		ObservationStations string `json:"observationStations"`
		TimeZone            string `json:"timeZone"`
		RelativeLocation    struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type nwsValue struct {
	Value *float64 `json:"value"`
}

type nwsPeriod struct {
	Name                       string   `json:"name"`
	StartTime                  string   `json:"startTime"`
	IsDaytime                  bool     `json:"isDaytime"`
	Temperature                float64  `json:"temperature"`
	TemperatureUnit            string   `json:"temperatureUnit"`
	ProbabilityOfPrecipitation nwsValue `json:"probabilityOfPrecipitation"`
	RelativeHumidity           nwsValue `json:"relativeHumidity"`
	WindSpeed                  string   `json:"windSpeed"`
	WindDirection              string   `json:"windDirection"`
	ShortForecast              string   `json:"shortForecast"`
}

type nwsForecastResponse struct {
	Properties struct {
		Periods []nwsPeriod `json:"periods"`
	} `json:"properties"`
}

type nwsStationsResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Name              string `json:"name"`
			StationIdentifier string `json:"stationIdentifier"`
		} `json:"properties"`
	} `json:"features"`
}

type nwsObservationResponse struct {
	Properties struct {
		TextDescription    string   `json:"textDescription"`
		Temperature        nwsValue `json:"temperature"`
		WindSpeed          nwsValue `json:"windSpeed"`
		WindDirection      nwsValue `json:"windDirection"`
		BarometricPressure nwsValue `json:"barometricPressure"`
		Visibility         nwsValue `json:"visibility"`
		RelativeHumidity   nwsValue `json:"relativeHumidity"`
		HeatIndex          nwsValue `json:"heatIndex"`
		WindChill          nwsValue `json:"windChill"`
	} `json:"properties"`
}

type nwsStation struct {
	name string
	obs  *nwsObservationResponse
}

func (p *NWSAdapter) Fetch(ctx context.Context, q weather.Query) (weather.WeatherSource, error) {
	var point nwsPointResponse
	pointURL := fmt.Sprintf("%s/points/%.4f,%.4f", strings.TrimRight(p.spec.BaseURL, "/"), q.Lat, q.Lon)
	if err := p.getJSON(ctx, pointURL, nwsHeaders, &point); err != nil {
		return weather.WeatherSource{}, p.absent(err)
	}
	props := point.Properties
	if props.Forecast == "" || props.ForecastHourly == "" {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: point has no forecast urls", errMalformed))
	}

	var (
		wg                    sync.WaitGroup
		hourlyResp, dailyResp nwsForecastResponse
		hourlyErr, dailyErr   error
		station               *nwsStation
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		hourlyErr = p.getJSON(ctx, props.ForecastHourly, nwsHeaders, &hourlyResp)
	}()
	go func() {
		defer wg.Done()
		dailyErr = p.getJSON(ctx, props.Forecast, nwsHeaders, &dailyResp)
	}()
	go func() {
		defer wg.Done()
		station = p.latestObservation(ctx, props.ObservationStations)
	}()
	wg.Wait()

	if hourlyErr != nil {
		return weather.WeatherSource{}, p.absent(hourlyErr)
	}
	if dailyErr != nil {
		return weather.WeatherSource{}, p.absent(dailyErr)
	}
	periods := hourlyResp.Properties.Periods
	if len(periods) == 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: empty hourly forecast", errMalformed))
	}

	zone, err := time.LoadLocation(props.TimeZone)
	if err != nil || props.TimeZone == "" {
		zone = approxZone(q.Lon)
	}
	now := p.now().In(zone)
	today := weather.DateKey(now)

	hourly := make([]weather.HourlyPoint, 0, len(periods))
	for _, per := range periods {
		t, err := time.Parse(time.RFC3339, per.StartTime)
		if err != nil {
			continue
		}
		t = t.In(zone)
		hourly = append(hourly, weather.HourlyPoint{
			Time:              weather.HourLabel(t),
			Timestamp:         t,
			Temperature:       nwsFahrenheit(per.Temperature, per.TemperatureUnit),
			Condition:         weather.ConditionFromText(per.ShortForecast),
			PrecipProbability: clampPercent(valueOr(per.ProbabilityOfPrecipitation.Value, 0)),
		})
	}
	hourly = weather.HourlyFrom(hourly, now)
	if len(hourly) == 0 {
		return weather.WeatherSource{}, p.absent(fmt.Errorf("%w: hourly forecast is stale", errMalformed))
	}

	first := periods[0]
	for _, per := range periods {
		if t, err := time.Parse(time.RFC3339, per.StartTime); err == nil && !t.Before(hourly[0].Timestamp) {
			first = per
			break
		}
	}

	src := p.newSource(q)
	if q.LocationName == "" {
		rel := props.RelativeLocation.Properties
		if label := joinNonEmpty(rel.City, rel.State); label != "" {
			src.Location = label
		}
	}
	src.CurrentWeather = weather.CurrentWeather{
		Temperature:   nwsFahrenheit(first.Temperature, first.TemperatureUnit),
		Condition:     weather.ConditionFromText(first.ShortForecast),
		Humidity:      clampPercent(valueOr(first.RelativeHumidity.Value, 0)),
		WindSpeed:     parseNWSWind(first.WindSpeed),
		WindDirection: compassDegrees(first.WindDirection),
	}
	src.CurrentWeather.FeelsLike = src.CurrentWeather.Temperature
	if station != nil {
		src.StationInfo = &weather.StationInfo{Name: station.name, LocalTime: now.Format("2006-01-02 15:04")}
		applyNWSObservation(&src.CurrentWeather, station.obs)
	}

	src.HourlyForecast = hourly
	src.DailyForecast = weather.DailyFrom(nwsDaily(dailyResp.Properties.Periods, hourly, zone), today)
	return src, nil
}

// latestObservation returns the nearest station and its latest observation, or nil.
// Observations are optional: the forecast alone makes a complete source.
func (p *NWSAdapter) latestObservation(ctx context.Context, stationsURL string) *nwsStation {
	if stationsURL == "" {
		return nil
	}
	var stations nwsStationsResponse
	if err := p.getJSON(ctx, stationsURL, nwsHeaders, &stations); err != nil || len(stations.Features) == 0 {
		return nil
	}
	st := stations.Features[0]
	if st.ID == "" {
		return nil
	}

	var obs nwsObservationResponse
	obsURL := strings.TrimRight(st.ID, "/") + "/observations/latest"
	if err := p.getJSON(ctx, obsURL, nwsHeaders, &obs); err != nil {
		return &nwsStation{name: st.Properties.Name}
	}
	return &nwsStation{name: st.Properties.Name, obs: &obs}
}

// applyNWSObservation overlays measured values (SI units) on the forecast-derived current weather.
func applyNWSObservation(c *weather.CurrentWeather, obs *nwsObservationResponse) {
	if obs == nil {
		return
	}
	o := obs.Properties
	if o.Temperature.Value != nil {
		c.Temperature = weather.CelsiusToFahrenheit(*o.Temperature.Value)
		c.FeelsLike = c.Temperature
	}
	if o.HeatIndex.Value != nil {
		c.FeelsLike = weather.CelsiusToFahrenheit(*o.HeatIndex.Value)
	} else if o.WindChill.Value != nil {
		c.FeelsLike = weather.CelsiusToFahrenheit(*o.WindChill.Value)
	}
	if o.RelativeHumidity.Value != nil {
		c.Humidity = clampPercent(*o.RelativeHumidity.Value)
	}
	if o.WindSpeed.Value != nil {
		c.WindSpeed = weather.KPHToMPH(*o.WindSpeed.Value)
	}
	if o.WindDirection.Value != nil {
		c.WindDirection = int(math.Round(*o.WindDirection.Value))
	}
	if o.Visibility.Value != nil {
		c.Visibility = weather.MetersToMiles(*o.Visibility.Value)
	}
	if o.BarometricPressure.Value != nil {
		c.Pressure = weather.HPa(*o.BarometricPressure.Value / 100)
	}
	if cond := weather.ConditionFromText(o.TextDescription); cond != weather.ConditionUnknown {
		c.Condition = cond
	}
}

// nwsDaily folds 12-hour periods into days: the daytime period gives the high and the
// condition, the night period the low. Missing halves fall back to the hourly extremes.
func nwsDaily(periods []nwsPeriod, hourly []weather.HourlyPoint, zone *time.Location) []weather.DailyPoint {
	type day struct {
		point           weather.DailyPoint
		hasHigh, hasLow bool
	}
	days := make(map[string]*day)
	var order []string

	for _, per := range periods {
		t, err := time.Parse(time.RFC3339, per.StartTime)
		if err != nil {
			continue
		}
		key := weather.DateKey(t.In(zone))
		d, ok := days[key]
		if !ok {
			d = &day{point: weather.DailyPoint{Date: key, Condition: weather.ConditionUnknown}}
			days[key] = d
			order = append(order, key)
		}
		temp := nwsFahrenheit(per.Temperature, per.TemperatureUnit)
		pop := clampPercent(valueOr(per.ProbabilityOfPrecipitation.Value, 0))
		if pop > d.point.PrecipProbability {
			d.point.PrecipProbability = pop
		}
		if per.IsDaytime {
			d.point.High = temp
			d.hasHigh = true
			d.point.Condition = weather.ConditionFromText(per.ShortForecast)
		} else {
			d.point.Low = temp
			d.hasLow = true
			if d.point.Condition == weather.ConditionUnknown {
				d.point.Condition = weather.ConditionFromText(per.ShortForecast)
			}
		}
	}

	out := make([]weather.DailyPoint, 0, len(order))
	for _, key := range order {
		d := days[key]
		if !d.hasHigh || !d.hasLow {
			hi, lo, ok := hourlyExtremes(hourly, key)
			switch {
			case !d.hasHigh && ok:
				d.point.High = hi
			case !d.hasHigh:
				d.point.High = d.point.Low
			}
			switch {
			case !d.hasLow && ok:
				d.point.Low = lo
			case !d.hasLow:
				d.point.Low = d.point.High
			}
		}
		out = append(out, d.point)
	}
	return out
}

func hourlyExtremes(hourly []weather.HourlyPoint, date string) (hi, lo int, ok bool) {
	for _, h := range hourly {
		if weather.DateKey(h.Timestamp) != date {
			continue
		}
		if !ok {
			hi, lo, ok = h.Temperature, h.Temperature, true
			continue
		}
		hi = max(hi, h.Temperature)
		lo = min(lo, h.Temperature)
	}
	return hi, lo, ok
}

func nwsFahrenheit(v float64, unit string) int {
	if strings.EqualFold(unit, "C") {
		return weather.CelsiusToFahrenheit(v)
	}
	return int(math.Round(v))
}

// parseNWSWind parses "10 mph" or "5 to 10 mph", keeping the upper bound.
func parseNWSWind(s string) int {
	best := 0
	for _, f := range strings.Fields(s) {
		if n, err := strconv.Atoi(f); err == nil && n > best {
			best = n
		}
	}
	if strings.Contains(strings.ToLower(s), "km/h") {
		return weather.KPHToMPH(float64(best))
	}
	return best
}
