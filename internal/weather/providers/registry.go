package providers

import (
	"log"
	"net/http"
	"time"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

// Kind groups providers by the kind of backend behind them.
type Kind string

const (
	KindNumericalModel Kind = "numerical-model"
	KindAggregator     Kind = "commercial-aggregator"
	KindNational       Kind = "national-service"
	KindGlobalModel    Kind = "lightweight-global-model"
	KindCommunity      Kind = "community"
)

// Spec is one row of the provider registry. Accuracy is a static prior, not computed,
// except for the community entry whose weight is derived per request.
type Spec struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Kind        Kind    `json:"kind"`
	BaseURL     string  `json:"-"`
	Model       string  `json:"model,omitempty"`
	Accuracy    float64 `json:"accuracy"`
	RateLimited bool    `json:"rateLimited"`
}

const (
	openMeteoURL  = "https://api.open-meteo.com/v1/forecast"
	weatherAPIURL = "https://api.weatherapi.com/v1/forecast.json"
	nwsURL        = "https://api.weather.gov"
	metNoURL      = "https://api.met.no/weatherapi/locationforecast/2.0/complete"
	brightSkyURL  = "https://api.brightsky.dev/weather"
	sevenTimerURL = "https://www.7timer.info/bin/api.pl"

	CommunityID = "community"
)

// DefaultRegistry lists every source in selection priority order; it is also the
// order adapters are invoked and results are returned in.
var DefaultRegistry = []Spec{
	{ID: "openmeteo-ecmwf", Name: "ECMWF IFS", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "ecmwf_ifs025", Accuracy: 0.95},
	{ID: "openmeteo-icon", Name: "DWD ICON", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "icon_seamless", Accuracy: 0.93},
	{ID: "openmeteo-meteofrance", Name: "Météo-France", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "meteofrance_seamless", Accuracy: 0.92},
	{ID: "openmeteo-ukmo", Name: "UK Met Office", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "ukmo_seamless", Accuracy: 0.91},
	{ID: "metno", Name: "MET Norway", Kind: KindNational, BaseURL: metNoURL, Accuracy: 0.91, RateLimited: true},
	{ID: "openmeteo-gfs", Name: "NOAA GFS", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "gfs_seamless", Accuracy: 0.90},
	{ID: "nws", Name: "National Weather Service", Kind: KindNational, BaseURL: nwsURL, Accuracy: 0.90, RateLimited: true},
	{ID: "openmeteo-gem", Name: "Canadian GEM", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "gem_seamless", Accuracy: 0.89},
	{ID: "brightsky", Name: "DWD (Bright Sky)", Kind: KindNational, BaseURL: brightSkyURL, Accuracy: 0.89, RateLimited: true},
	{ID: "openmeteo-jma", Name: "JMA", Kind: KindNumericalModel, BaseURL: openMeteoURL, Model: "jma_seamless", Accuracy: 0.88},
	{ID: "weatherapi", Name: "WeatherAPI.com", Kind: KindAggregator, BaseURL: weatherAPIURL, Accuracy: 0.87},
	{ID: "7timer", Name: "7Timer!", Kind: KindGlobalModel, BaseURL: sevenTimerURL, Accuracy: 0.82, RateLimited: true},
	{ID: CommunityID, Name: "Community Reports", Kind: KindCommunity, Accuracy: MaxCommunityAccuracy},
}

// Lookup returns the registry entry for id.
func Lookup(id string) (Spec, bool) {
	for _, s := range DefaultRegistry {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

// PriorityOrder returns registry IDs in tie-break order for weather.NewSelector.
func PriorityOrder() []string {
	ids := make([]string, 0, len(DefaultRegistry))
	for _, s := range DefaultRegistry {
		ids = append(ids, s.ID)
	}
	return ids
}

// BuildConfig carries what Build needs to construct adapters.
type BuildConfig struct {
	HTTPClient     *http.Client
	UserAgent      string
	WeatherAPIKey  string
	Disabled       map[string]bool
	RateLimitRPS   float64
	RateLimitBurst int

	// Reports feeds the community consensus adapter; nil disables it.
	Reports         weather.ReportReader
	ConsensusWindow time.Duration
	ConsensusBox    float64

	// Overrides replaces base URLs by provider ID.
	Overrides map[string]string
}

// Build constructs adapters from the registry in registry order.
func Build(cfg BuildConfig) []weather.Adapter {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var adapters []weather.Adapter
	for _, spec := range DefaultRegistry {
		if cfg.Disabled[spec.ID] {
			log.Printf("INFO: provider %s disabled by configuration", spec.ID)
			continue
		}
		if u, ok := cfg.Overrides[spec.ID]; ok && u != "" {
			spec.BaseURL = u
		}

		var ad weather.Adapter
		switch {
		case spec.Kind == KindNumericalModel:
			ad = NewOpenMeteoAdapter(client, cfg.UserAgent, spec)
		case spec.ID == "weatherapi":
			if cfg.WeatherAPIKey == "" {
				log.Printf("INFO: provider %s skipped: no API key configured", spec.ID)
				continue
			}
			ad = NewWeatherAPIAdapter(client, cfg.UserAgent, spec, cfg.WeatherAPIKey)
		case spec.ID == "nws":
			ad = NewNWSAdapter(client, cfg.UserAgent, spec)
		case spec.ID == "metno":
			ad = NewMetNoAdapter(client, cfg.UserAgent, spec)
		case spec.ID == "brightsky":
			ad = NewBrightSkyAdapter(client, cfg.UserAgent, spec)
		case spec.ID == "7timer":
			ad = NewSevenTimerAdapter(client, cfg.UserAgent, spec)
		case spec.Kind == KindCommunity:
			if cfg.Reports == nil {
				continue
			}
			ad = NewCommunityAdapter(cfg.Reports, cfg.ConsensusWindow, cfg.ConsensusBox)
		default:
			log.Printf("ERROR: no adapter implementation for provider %s", spec.ID)
			continue
		}

		if spec.RateLimited && cfg.RateLimitRPS > 0 {
			ad = NewRateLimitedAdapter(ad, cfg.RateLimitRPS, cfg.RateLimitBurst)
		}
		adapters = append(adapters, ad)
	}
	return adapters
}
