package weather

import "math"

// Summary is the accuracy-weighted blend of an ensemble.
type Summary struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Pressure    float64   `json:"pressure"`
	Condition   Condition `json:"condition"`

	// NumericSources counts sources that took part in numeric averaging.
	NumericSources int `json:"numericSources"`
	// Contributors lists every source ID that voted on the condition.
	Contributors []string `json:"contributors"`
}

// Summarize blends the ensemble. Numeric fields are accuracy-weighted means over sources
// with measurements only; the condition is an accuracy-weighted vote over all sources,
// so the community consensus still contributes its condition. Vote ties go to the
// condition seen first.
func Summarize(sources []WeatherSource) Summary {
	summary := Summary{
		Condition:    ConditionUnknown,
		Contributors: make([]string, 0, len(sources)),
	}
	if len(sources) == 0 {
		return summary
	}

	var (
		sumWeight   float64
		sumTemp     float64
		sumFeels    float64
		sumHumidity float64
		sumWind     float64
		sumPressure float64
	)

	votes := make(map[Condition]float64)
	var order []Condition

	for _, s := range sources {
		summary.Contributors = append(summary.Contributors, s.ID)

		cond := s.CurrentWeather.Condition
		if cond != "" && cond != ConditionUnknown {
			if _, seen := votes[cond]; !seen {
				order = append(order, cond)
			}
			votes[cond] += voteWeight(s.Accuracy)
		}

		if !s.HasMeasurements() {
			continue
		}

		w := voteWeight(s.Accuracy)
		c := s.CurrentWeather
		sumWeight += w
		sumTemp += w * float64(c.Temperature)
		sumFeels += w * float64(c.FeelsLike)
		sumHumidity += w * float64(c.Humidity)
		sumWind += w * float64(c.WindSpeed)
		sumPressure += w * float64(c.Pressure)
		summary.NumericSources++
	}

	bestWeight := 0.0
	for _, cond := range order {
		if votes[cond] > bestWeight {
			bestWeight = votes[cond]
			summary.Condition = cond
		}
	}

	if sumWeight > 0 {
		summary.Temperature = round1(sumTemp / sumWeight)
		summary.FeelsLike = round1(sumFeels / sumWeight)
		summary.Humidity = round1(sumHumidity / sumWeight)
		summary.WindSpeed = round1(sumWind / sumWeight)
		summary.Pressure = round1(sumPressure / sumWeight)
	}

	return summary
}

// voteWeight keeps zero-accuracy sources from vanishing entirely from the blend.
func voteWeight(accuracy float64) float64 {
	return math.Max(accuracy, 0.01)
}
