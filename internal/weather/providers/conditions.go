package providers

import (
	"strings"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// mapWMOCondition maps WMO weather interpretation codes (Open-Meteo).
func mapWMOCondition(code int) weather.Condition {
	switch code {
	case 0:
		return weather.ConditionClear
	case 1, 2:
		return weather.ConditionPartlyCloudy
	case 3:
		return weather.ConditionOvercast
	case 45, 48:
		return weather.ConditionFoggy
	case 51, 53, 55:
		return weather.ConditionDrizzle
	case 56, 57, 66, 67:
		return weather.ConditionFreezingRain
	case 61, 63, 80, 81:
		return weather.ConditionRain
	case 65, 82:
		return weather.ConditionHeavyRain
	case 71, 73, 77, 85:
		return weather.ConditionSnow
	case 75, 86:
		return weather.ConditionHeavySnow
	case 95, 96, 99:
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}

// weatherAPICodes covers the WeatherAPI.com condition code list.
var weatherAPICodes = map[int]weather.Condition{
	1000: weather.ConditionClear,
	1003: weather.ConditionPartlyCloudy,
	1006: weather.ConditionCloudy,
	1009: weather.ConditionOvercast,
	1030: weather.ConditionFoggy,
	1135: weather.ConditionFoggy,
	1147: weather.ConditionFoggy,
	1063: weather.ConditionRain,
	1150: weather.ConditionDrizzle,
	1153: weather.ConditionDrizzle,
	1072: weather.ConditionFreezingRain,
	1168: weather.ConditionFreezingRain,
	1171: weather.ConditionFreezingRain,
	1198: weather.ConditionFreezingRain,
	1201: weather.ConditionFreezingRain,
	1180: weather.ConditionRain,
	1183: weather.ConditionRain,
	1186: weather.ConditionRain,
	1189: weather.ConditionRain,
	1240: weather.ConditionRain,
	1192: weather.ConditionHeavyRain,
	1195: weather.ConditionHeavyRain,
	1243: weather.ConditionHeavyRain,
	1246: weather.ConditionHeavyRain,
	1069: weather.ConditionSleet,
	1204: weather.ConditionSleet,
	1207: weather.ConditionSleet,
	1237: weather.ConditionSleet,
	1249: weather.ConditionSleet,
	1252: weather.ConditionSleet,
	1261: weather.ConditionSleet,
	1264: weather.ConditionSleet,
	1066: weather.ConditionSnow,
	1210: weather.ConditionSnow,
	1213: weather.ConditionSnow,
	1216: weather.ConditionSnow,
	1219: weather.ConditionSnow,
	1255: weather.ConditionSnow,
	1114: weather.ConditionHeavySnow,
	1117: weather.ConditionHeavySnow,
	1222: weather.ConditionHeavySnow,
	1225: weather.ConditionHeavySnow,
	1258: weather.ConditionHeavySnow,
	1087: weather.ConditionThunderstorm,
	1273: weather.ConditionThunderstorm,
	1276: weather.ConditionThunderstorm,
	1279: weather.ConditionThunderstorm,
	1282: weather.ConditionThunderstorm,
}

// mapWeatherAPICondition prefers the numeric code and falls back to the text.
func mapWeatherAPICondition(code int, text string) weather.Condition {
	if c, ok := weatherAPICodes[code]; ok {
		return c
	}
	return weather.ConditionFromText(text)
}

// mapMetNoCondition maps MET Norway symbol codes such as "lightrainshowers_day".
func mapMetNoCondition(symbol string) weather.Condition {
	if i := strings.IndexByte(symbol, '_'); i >= 0 {
		symbol = symbol[:i]
	}
	switch {
	case symbol == "":
		return weather.ConditionUnknown
	case strings.Contains(symbol, "thunder"):
		return weather.ConditionThunderstorm
	case strings.Contains(symbol, "sleet"):
		return weather.ConditionSleet
	case strings.HasPrefix(symbol, "heavysnow"):
		return weather.ConditionHeavySnow
	case strings.Contains(symbol, "snow"):
		return weather.ConditionSnow
	case strings.HasPrefix(symbol, "heavyrain"):
		return weather.ConditionHeavyRain
	case strings.HasPrefix(symbol, "lightrain") && !strings.Contains(symbol, "showers"):
		return weather.ConditionDrizzle
	case strings.Contains(symbol, "rain"):
		return weather.ConditionRain
	}
	switch symbol {
	case "clearsky":
		return weather.ConditionClear
	case "fair", "partlycloudy":
		return weather.ConditionPartlyCloudy
	case "cloudy":
		return weather.ConditionCloudy
	case "fog":
		return weather.ConditionFoggy
	default:
		return weather.ConditionUnknown
	}
}

// mapBrightSkyCondition maps Bright Sky icon names, falling back to the coarse
// condition field when the icon is missing.
func mapBrightSkyCondition(icon, condition string) weather.Condition {
	switch icon {
	case "clear-day", "clear-night":
		return weather.ConditionClear
	case "partly-cloudy-day", "partly-cloudy-night":
		return weather.ConditionPartlyCloudy
	case "cloudy":
		return weather.ConditionCloudy
	case "fog":
		return weather.ConditionFoggy
	case "rain":
		return weather.ConditionRain
	case "sleet", "hail":
		return weather.ConditionSleet
	case "snow":
		return weather.ConditionSnow
	case "thunderstorm":
		return weather.ConditionThunderstorm
	case "wind":
		return weather.ConditionCloudy
	}
	switch condition {
	case "dry":
		return weather.ConditionClear
	case "fog":
		return weather.ConditionFoggy
	case "rain":
		return weather.ConditionRain
	case "sleet", "hail":
		return weather.ConditionSleet
	case "snow":
		return weather.ConditionSnow
	case "thunderstorm":
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}

// mapSevenTimerCondition maps the 7Timer civil product "weather" field, e.g. "pcloudyday".
func mapSevenTimerCondition(w string) weather.Condition {
	w = strings.TrimSuffix(strings.TrimSuffix(w, "day"), "night")
	switch w {
	case "clear":
		return weather.ConditionClear
	case "pcloudy":
		return weather.ConditionPartlyCloudy
	case "mcloudy":
		return weather.ConditionCloudy
	case "cloudy":
		return weather.ConditionOvercast
	case "humid":
		return weather.ConditionFoggy
	case "lightrain", "oshower", "ishower":
		return weather.ConditionDrizzle
	case "rain":
		return weather.ConditionRain
	case "lightsnow", "snow":
		return weather.ConditionSnow
	case "rainsnow":
		return weather.ConditionSleet
	case "ts", "tsrain":
		return weather.ConditionThunderstorm
	default:
		return weather.ConditionUnknown
	}
}

var compassPoints = map[string]int{
	"N": 0, "NNE": 23, "NE": 45, "ENE": 68,
	"E": 90, "ESE": 113, "SE": 135, "SSE": 158,
	"S": 180, "SSW": 203, "SW": 225, "WSW": 248,
	"W": 270, "WNW": 293, "NW": 315, "NNW": 338,
}

// compassDegrees converts a compass point ("NW") to degrees; unknown input yields 0.
func compassDegrees(dir string) int {
	return compassPoints[strings.ToUpper(strings.TrimSpace(dir))]
}
