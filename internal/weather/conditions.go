package weather

import (
	"github.com/i474232898/weather-ensemble/internal/common"
)

// ParseCondition maps free text onto the canonical taxonomy.
// Canonical names match case-insensitively; anything else goes through keyword matching.
// Unrecognized text yields ConditionUnknown.
func ParseCondition(text string) Condition {
	t := common.Normalize(text)
	if t == "" {
		return ConditionUnknown
	}
	for _, c := range Conditions {
		if common.Normalize(string(c)) == t {
			return c
		}
	}
	return ConditionFromText(t)
}

// ConditionFromText classifies a textual description ("Chance Light Rain",
// "Mostly Sunny", "Heavy snow showers") by keyword. Order matters: the most
// severe phenomenon mentioned wins.
func ConditionFromText(text string) Condition {
	t := common.Normalize(text)
	heavy := common.HasAny(t, "heavy", "torrential", "violent")

	switch {
	case t == "":
		return ConditionUnknown
	case common.HasAny(t, "thunder", "tstorm", "t storm", "lightning"):
		return ConditionThunderstorm
	case common.HasAny(t, "freezing rain", "freezing drizzle", "ice pellets", "glaze"):
		return ConditionFreezingRain
	case common.HasAny(t, "sleet", "wintry mix", "rain and snow", "snow and rain", "hail"):
		return ConditionSleet
	case common.HasAny(t, "snow", "blizzard", "flurr"):
		if heavy || common.HasAny(t, "blizzard") {
			return ConditionHeavySnow
		}
		return ConditionSnow
	case common.HasAny(t, "drizzle"):
		return ConditionDrizzle
	case common.HasAny(t, "rain", "shower"):
		if heavy {
			return ConditionHeavyRain
		}
		return ConditionRain
	case common.HasAny(t, "fog", "mist", "haze", "smoke"):
		return ConditionFoggy
	case common.HasAny(t, "overcast"):
		return ConditionOvercast
	case common.HasAny(t, "partly", "mostly sunny", "mostly clear", "few clouds", "scattered clouds", "fair"):
		return ConditionPartlyCloudy
	case common.HasAny(t, "cloud"):
		return ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
