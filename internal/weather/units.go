package weather

import "math"

// Canonical units inside the engine are °F, mph, miles and hPa.
// Conversion to a caller's preferred units happens at presentation time only.

const (
	mpsToMPH      = 2.2369362921
	kphToMPH      = 0.6213711922
	metersPerMile = 1609.344
)

// CelsiusToFahrenheit converts and rounds to a whole degree.
func CelsiusToFahrenheit(c float64) int {
	return round(c*9/5 + 32)
}

// FahrenheitToCelsius converts and rounds to a whole degree.
func FahrenheitToCelsius(f float64) int {
	return round((f - 32) * 5 / 9)
}

// MPSToMPH converts metres per second to whole miles per hour.
func MPSToMPH(ms float64) int {
	return round(ms * mpsToMPH)
}

// MPHToMPS converts miles per hour to whole metres per second.
func MPHToMPS(mph float64) int {
	return round(mph / mpsToMPH)
}

// KPHToMPH converts kilometres per hour to whole miles per hour.
func KPHToMPH(kph float64) int {
	return round(kph * kphToMPH)
}

// MPHToKPH converts miles per hour to whole kilometres per hour.
func MPHToKPH(mph float64) int {
	return round(mph / kphToMPH)
}

// MetersToMiles converts a distance to miles with one decimal.
// Visibility under a mile is common in fog, so it keeps a decimal place.
func MetersToMiles(m float64) float64 {
	return round1(m / metersPerMile)
}

// MilesToMeters converts miles to whole metres.
func MilesToMeters(mi float64) int {
	return round(mi * metersPerMile)
}

// MilesToKilometers converts miles to kilometres with one decimal.
func MilesToKilometers(mi float64) float64 {
	return round1(mi * metersPerMile / 1000)
}

// HPa passes pressure through, rounded to a whole hectopascal.
func HPa(v float64) int {
	return round(v)
}

type aqiBreakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// EPA PM2.5 breakpoints (24h, 2024 revision).
var pm25Breakpoints = []aqiBreakpoint{
	{0.0, 9.0, 0, 50},
	{9.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 125.4, 151, 200},
	{125.5, 225.4, 201, 300},
	{225.5, 325.4, 301, 500},
}

// USAQIFromPM25 converts a PM2.5 concentration in µg/m³ to the US AQI.
func USAQIFromPM25(pm25 float64) int {
	if pm25 <= 0 || math.IsNaN(pm25) {
		return 0
	}
	c := math.Floor(pm25*10) / 10
	for _, bp := range pm25Breakpoints {
		if c <= bp.cHigh {
			if c < bp.cLow {
				c = bp.cLow
			}
			return round((bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + bp.iLow)
		}
	}
	return 500
}

func round(v float64) int {
	return int(math.Round(v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
