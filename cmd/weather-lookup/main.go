package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/kvstore"
	"github.com/i474232898/weather-lookup/internal/location"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	// Load configuration (also reads .env).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Enabled:    cfg.LogEnabled,
		MaxEntries: cfg.LogMaxEntries,
	})

	// Durable backing for the application document.
	kv, err := kvstore.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer kv.Close()

	appStore, err := store.Open(kv, store.Options{
		Defaults: weather.Preferences{
			City:     cfg.DefaultCity,
			Unit:     cfg.DefaultUnit,
			Language: cfg.DefaultLang,
			Theme:    cfg.DefaultTheme,
		},
		HistoryLimit:    cfg.HistoryLimit,
		FavouritesLimit: cfg.FavouritesLimit,
		MaxAge:          cfg.CacheMaxAge,
	})
	if err != nil {
		log.Fatalf("failed to open app store: %v", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (circuit breaker); WeatherAPI.com only when a key is set.
	provs := []weather.Provider{
		providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, providers.WithBaseURL(cfg.OpenWeatherBaseURL)),
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, providers.WithWeatherAPIBaseURL(cfg.WeatherAPIBaseURL)))
	}
	provider := weather.NewFailover(provs...)

	// Core service orchestrating the provider and the history cache.
	service := weather.NewService(appStore, provider, appLog)

	resolverOpts := []location.Option{location.WithLogger(appLog)}
	if cfg.GeocoderAPIKey != "" {
		resolverOpts = append(resolverOpts, location.WithReverseGeocoder(location.NewGoogleGeocoder(cfg.GeocoderAPIKey)))
	}
	resolver := location.NewResolver(httpClient, location.Config{
		IPLocationURL: cfg.IPLocationURL,
		Timeout:       cfg.LocationDeviceTimeout,
	}, resolverOpts...)

	// Scheduler that periodically refreshes the current city and favourites.
	sched := scheduler.New(cfg.RefreshInterval, service, appStore, appLog)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"service":     "weather-lookup",
			"provider":    provider.Name(),
			"cacheMaxAge": appStore.MaxAge().String(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:  service,
		Store:    appStore,
		Resolver: resolver,
		Log:      appLog,
	})

	// Start server with graceful shutdown
	go func() {
		appLog.Info("listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

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
