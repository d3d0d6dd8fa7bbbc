package weather

import (
	"fmt"
	"time"
)

// Condition represents one entry of the shared condition taxonomy every
// provider vocabulary is normalized into.
type Condition string

const (
	ConditionUnknown      Condition = "Unknown"
	ConditionClear        Condition = "Clear"
	ConditionPartlyCloudy Condition = "Partly Cloudy"
	ConditionCloudy       Condition = "Cloudy"
	ConditionOvercast     Condition = "Overcast"
	ConditionFoggy        Condition = "Foggy"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionRain         Condition = "Rain"
	ConditionHeavyRain    Condition = "Heavy Rain"
	ConditionFreezingRain Condition = "Freezing Rain"
	ConditionSleet        Condition = "Sleet"
	ConditionSnow         Condition = "Snow"
	ConditionHeavySnow    Condition = "Heavy Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
)

// Conditions lists the canonical taxonomy in display order, Unknown last.
var Conditions = []Condition{
	ConditionClear,
	ConditionPartlyCloudy,
	ConditionCloudy,
	ConditionOvercast,
	ConditionFoggy,
	ConditionDrizzle,
	ConditionRain,
	ConditionHeavyRain,
	ConditionFreezingRain,
	ConditionSleet,
	ConditionSnow,
	ConditionHeavySnow,
	ConditionThunderstorm,
	ConditionUnknown,
}

// Query identifies the point an ensemble is built for.
// LocationName is a display label only and is never used for lookup.
type Query struct {
	Lat          float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon          float64 `json:"lon" validate:"gte=-180,lte=180"`
	LocationName string  `json:"locationName,omitempty" validate:"max=200"`
}

// Label returns the display label for the query, falling back to the coordinates.
func (q Query) Label() string {
	if q.LocationName != "" {
		return q.LocationName
	}
	return fmt.Sprintf("%.4f, %.4f", q.Lat, q.Lon)
}

// StationInfo describes the physical station behind a source, when the provider exposes one.
type StationInfo struct {
	Name      string `json:"name"`
	Region    string `json:"region,omitempty"`
	Country   string `json:"country,omitempty"`
	LocalTime string `json:"localTime,omitempty"`
}

// CurrentWeather holds current conditions in canonical units:
// °F, mph, miles, hPa. Optional fields are nil when the provider does not report them.
type CurrentWeather struct {
	Temperature   int       `json:"temperature"`
	Condition     Condition `json:"condition"`
	Humidity      int       `json:"humidity"`
	WindSpeed     int       `json:"windSpeed"`
	WindDirection int       `json:"windDirection"`
	Visibility    float64   `json:"visibility"`
	FeelsLike     int       `json:"feelsLike"`
	Pressure      int       `json:"pressure"`

	UVIndex         *float64   `json:"uvIndex,omitempty"`
	Sunrise         *time.Time `json:"sunrise,omitempty"`
	Sunset          *time.Time `json:"sunset,omitempty"`
	DaylightMinutes *int       `json:"daylightMinutes,omitempty"`
	AQI             *int       `json:"aqi,omitempty"`
}

// HasMeasurements reports whether any physical quantity was measured.
// A condition-only value (as emitted by the community consensus) has none.
func (c CurrentWeather) HasMeasurements() bool {
	return c.Temperature != 0 ||
		c.Humidity != 0 ||
		c.WindSpeed != 0 ||
		c.WindDirection != 0 ||
		c.Visibility != 0 ||
		c.FeelsLike != 0 ||
		c.Pressure != 0 ||
		c.UVIndex != nil
}

// HourlyPoint is one entry of an hourly forecast.
type HourlyPoint struct {
	Time              string    `json:"time"`
	Timestamp         time.Time `json:"timestamp"`
	Temperature       int       `json:"temperature"`
	Condition         Condition `json:"condition"`
	PrecipProbability int       `json:"precipProbability"`
}

// DailyPoint is one entry of a daily forecast. Date is YYYY-MM-DD in the provider's local time.
type DailyPoint struct {
	Day               string    `json:"day"`
	Date              string    `json:"date"`
	Condition         Condition `json:"condition"`
	High              int       `json:"high"`
	Low               int       `json:"low"`
	PrecipProbability int       `json:"precipProbability"`
}

// WeatherSource is one provider's complete normalized payload for one request.
// It is built fresh per request and not mutated after construction.
type WeatherSource struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`

	// Synthetic marks pseudo-sources that carry no measured quantities.
	Synthetic bool `json:"synthetic,omitempty"`

	StationInfo    *StationInfo   `json:"stationInfo,omitempty"`
	CurrentWeather CurrentWeather `json:"currentWeather"`
	HourlyForecast []HourlyPoint  `json:"hourlyForecast"`
	DailyForecast  []DailyPoint   `json:"dailyForecast"`
}

// HasMeasurements reports whether the source may take part in numeric averaging
// and be selected as the primary display source.
func (s WeatherSource) HasMeasurements() bool {
	return !s.Synthetic && s.CurrentWeather.HasMeasurements()
}
