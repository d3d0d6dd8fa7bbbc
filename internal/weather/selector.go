package weather

import "sort"

// Selector picks the single most accurate source for primary display.
type Selector struct {
	rank map[string]int
}

// NewSelector creates a Selector whose accuracy ties are broken by the given ID order.
// IDs missing from the order rank after all listed ones, by ID.
func NewSelector(priority []string) Selector {
	rank := make(map[string]int, len(priority))
	for i, id := range priority {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	return Selector{rank: rank}
}

// SelectBest returns the highest-accuracy source that carries measurements.
// Synthetic sources such as the community consensus are never picked, so when
// they are the only candidates the result is false.
func (s Selector) SelectBest(sources []WeatherSource) (WeatherSource, bool) {
	candidates := make([]WeatherSource, 0, len(sources))
	for _, src := range sources {
		if src.HasMeasurements() {
			candidates = append(candidates, src)
		}
	}
	if len(candidates) == 0 {
		return WeatherSource{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return s.less(candidates[i], candidates[j])
	})
	return candidates[0], true
}

func (s Selector) less(a, b WeatherSource) bool {
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	ra, aok := s.rank[a.ID]
	rb, bok := s.rank[b.ID]
	switch {
	case aok && bok:
		return ra < rb
	case aok != bok:
		return aok
	default:
		return a.ID < b.ID
	}
}
