package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Report store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type AppConfig struct {
	Port string

	// HTTPTimeout bounds every outbound provider request at the client level.
	HTTPTimeout time.Duration
	// AdapterTimeout is the per-adapter deadline inside one aggregation.
	AdapterTimeout time.Duration
	// RequestTimeout bounds a whole inbound API request.
	RequestTimeout time.Duration

	WeatherAPIKey     string
	UserAgent         string
	DisabledProviders map[string]bool

	// Token bucket for the free national services.
	RateLimitRPS   float64
	RateLimitBurst int

	ReportsBackend       string
	SQLitePath           string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	ReportsRetention     time.Duration
	ReportsPruneInterval time.Duration

	ConsensusWindow     time.Duration
	ConsensusBoxDegrees float64

	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AdapterTimeout, err = getenvDuration("ADAPTER_TIMEOUT", 4*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.UserAgent = os.Getenv("USER_AGENT")
	cfg.DisabledProviders = getenvSet("DISABLED_PROVIDERS")

	if cfg.RateLimitRPS, err = getenvFloat("RATE_LIMIT_RPS", 2); err != nil {
		return nil, err
	}
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", 4)

	cfg.ReportsBackend = strings.ToLower(getenvDefault("REPORTS_BACKEND", BackendMemory))
	switch cfg.ReportsBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("invalid REPORTS_BACKEND %q: want memory, sqlite or redis", cfg.ReportsBackend)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "reports.db")
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)

	if cfg.ReportsRetention, err = getenvDuration("REPORTS_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReportsPruneInterval, err = getenvDuration("REPORTS_PRUNE_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ConsensusWindow, err = getenvDuration("CONSENSUS_WINDOW", 60*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ConsensusBoxDegrees, err = getenvFloat("CONSENSUS_BOX_DEGREES", 0.1); err != nil {
		return nil, err
	}

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// getenvSet parses a comma separated list into a lookup set.
func getenvSet(key string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}
