package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-ensemble/internal/api/http"
	"github.com/i474232898/weather-ensemble/internal/config"
	"github.com/i474232898/weather-ensemble/internal/geocode"
	"github.com/i474232898/weather-ensemble/internal/scheduler"
	"github.com/i474232898/weather-ensemble/internal/store"
	"github.com/i474232898/weather-ensemble/internal/weather"
	"github.com/i474232898/weather-ensemble/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	reports, closeReports, err := openReportStore(cfg)
	if err != nil {
		log.Fatalf("failed to open report store: %v", err)
	}
	defer closeReports()

	// Adapters in registry order, each with its own circuit breaker.
	adapters := providers.Build(providers.BuildConfig{
		HTTPClient:      httpClient,
		UserAgent:       cfg.UserAgent,
		WeatherAPIKey:   cfg.WeatherAPIKey,
		Disabled:        cfg.DisabledProviders,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		Reports:         reports,
		ConsensusWindow: cfg.ConsensusWindow,
		ConsensusBox:    cfg.ConsensusBoxDegrees,
	})
	log.Printf("INFO: %d weather sources configured", len(adapters))

	service := weather.NewService(
		weather.NewAggregator(adapters, cfg.AdapterTimeout),
		weather.NewSelector(providers.PriorityOrder()),
	)

	// Scheduler that periodically prunes old community reports.
	sched := scheduler.New(reports, cfg.ReportsRetention, cfg.ReportsPruneInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-ensemble",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 2*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-ensemble",
		})
	})

	opts := []httpapi.Option{
		httpapi.WithReports(reports),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
	}
	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, httpapi.WithLabels(geocode.NewGoogleResolver(cfg.GeocoderAPIKey)))
	}
	httpapi.RegisterRoutes(app, service, opts...)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// openReportStore returns the configured community report backend and its closer.
func openReportStore(cfg *config.AppConfig) (weather.ReportStore, func(), error) {
	switch cfg.ReportsBackend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("INFO: community reports in SQLite at %s", cfg.SQLitePath)
		return s, func() { s.Close() }, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := store.NewRedisStore(client, cfg.ReportsRetention)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Printf("INFO: community reports in Redis at %s", cfg.RedisAddr)
		return s, func() { client.Close() }, nil

	default:
		log.Println("INFO: community reports kept in memory")
		return store.NewMemoryStore(10000, cfg.ReportsRetention), func() {}, nil
	}
}
