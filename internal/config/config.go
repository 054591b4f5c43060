package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/kvstore"
	"github.com/i474232898/weather-lookup/internal/location"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	HTTPTimeout        time.Duration

	// WeatherAPIKey enables WeatherAPI.com as a failover provider.
	WeatherAPIKey     string
	WeatherAPIBaseURL string

	// Defaults written to a freshly created document.
	DefaultCity  string
	DefaultUnit  weather.Unit
	DefaultLang  string
	DefaultTheme string

	HistoryLimit    int
	FavouritesLimit int
	// CacheMaxAge is how long a history entry is served without a network call (0 = forever).
	CacheMaxAge time.Duration

	StoreDriver string
	StoreDSN    string

	// RefreshInterval controls the background refresh job (0 = disabled).
	RefreshInterval time.Duration

	IPLocationURL         string
	LocationDeviceTimeout time.Duration
	GeocoderAPIKey        string

	LogLevel      logger.Level
	LogMaxEntries int
	LogEnabled    bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", providers.DefaultOpenWeatherBaseURL)
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHERAPI_BASE_URL", providers.DefaultWeatherAPIBaseURL)

	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", "Cluj-Napoca")
	cfg.DefaultUnit = weather.Unit(getenvDefault("DEFAULT_UNIT", string(weather.UnitMetric)))
	if !cfg.DefaultUnit.Valid() {
		return nil, fmt.Errorf("invalid DEFAULT_UNIT: %q", cfg.DefaultUnit)
	}
	cfg.DefaultLang = getenvDefault("DEFAULT_LANG", i18n.DefaultLanguage)
	if !i18n.Supported(cfg.DefaultLang) {
		return nil, fmt.Errorf("invalid DEFAULT_LANG: %q", cfg.DefaultLang)
	}
	cfg.DefaultTheme = getenvDefault("DEFAULT_THEME", "light")

	if cfg.HistoryLimit, err = getenvInt("HISTORY_LIMIT", store.DefaultHistoryLimit); err != nil {
		return nil, err
	}
	if cfg.FavouritesLimit, err = getenvInt("FAVOURITES_LIMIT", store.DefaultFavouritesLimit); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", store.DefaultMaxAge); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", kvstore.DriverFile))
	switch cfg.StoreDriver {
	case kvstore.DriverMemory, kvstore.DriverFile, kvstore.DriverSQLite, kvstore.DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	cfg.StoreDSN = getenvDefault("STORE_DSN", defaultDSN(cfg.StoreDriver))

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	cfg.IPLocationURL = getenvDefault("IP_LOCATION_URL", location.DefaultIPLocationURL)
	if cfg.LocationDeviceTimeout, err = getenvDuration("LOCATION_DEVICE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.LogLevel, err = logger.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogMaxEntries, err = getenvInt("LOG_MAX_ENTRIES", 100); err != nil {
		return nil, err
	}
	if cfg.LogEnabled, err = getenvBool("LOG_ENABLED", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultDSN(driver string) string {
	switch driver {
	case kvstore.DriverFile:
		return "data"
	case kvstore.DriverSQLite:
		return "weather-lookup.db"
	default:
		return ""
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
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
