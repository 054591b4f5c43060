package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	// DefaultOpenWeatherBaseURL is the OpenWeather API root; the provider appends /weather.
	DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	iconBaseURL               = "https://openweathermap.org/img/wn"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenWeatherOption customizes an OpenWeatherProvider.
type OpenWeatherOption func(*OpenWeatherProvider)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithBackoff enables retries of server and network failures.
func WithBackoff(b BackoffConfig) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Backoff = b
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...OpenWeatherOption) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		circuit: newCircuitBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// BuildURL returns the /weather request URL for q.
func (p *OpenWeatherProvider) BuildURL(q weather.Query) (string, error) {
	values := url.Values{}
	values.Set("appid", p.apiKey)

	switch {
	case q.Coordinates != nil:
		values.Set("lat", strconv.FormatFloat(q.Coordinates.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(q.Coordinates.Lon, 'f', -1, 64))
	case q.City != "":
		values.Set("q", q.City)
	default:
		return "", errors.New("query needs a city or coordinates")
	}
	if q.Language != "" {
		values.Set("lang", q.Language)
	}
	if q.Unit != "" {
		values.Set("units", string(q.Unit))
	}

	return fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode()), nil
}

// openWeatherPayload is the subset of the /weather response the service reads.
type openWeatherPayload struct {
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, q weather.Query) (weather.CityRecord, error) {
	if p.apiKey == "" {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindAuth, fmt.Errorf("openweather api key is not configured"))
	}

	buildRequest := func() (*http.Request, error) {
		u, err := p.BuildURL(q)
		if err != nil {
			return nil, err
		}
		return http.NewRequest(http.MethodGet, u, http.NoBody)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.CityRecord{}, err
	}
	defer resp.Body.Close()

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindGeneral, fmt.Errorf("decode openweather response: %w", err))
	}
	if payload.Name == "" {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindCityNotFound, errors.New("response carries no city name"))
	}

	return p.toRecord(payload, q.Unit), nil
}

func (p *OpenWeatherProvider) toRecord(payload openWeatherPayload, unit weather.Unit) weather.CityRecord {
	conditions := make([]weather.Condition, 0, len(payload.Weather))
	for _, w := range payload.Weather {
		conditions = append(conditions, weather.Condition{
			ID:          w.ID,
			Main:        w.Main,
			Description: w.Description,
			Icon:        w.Icon,
		})
	}

	rec := weather.CityRecord{
		Name:        payload.Name,
		Country:     payload.Sys.Country,
		Coordinates: weather.Coordinates{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon},
		Weather:     conditions,
		Main: weather.Reading{
			Temp:      payload.Main.Temp,
			FeelsLike: payload.Main.FeelsLike,
			TempMin:   payload.Main.TempMin,
			TempMax:   payload.Main.TempMax,
			Pressure:  payload.Main.Pressure,
			Humidity:  payload.Main.Humidity,
		},
		Wind: weather.Wind{
			Speed: payload.Wind.Speed,
			Deg:   payload.Wind.Deg,
			Gust:  payload.Wind.Gust,
		},
		Visibility: payload.Visibility,
		Sunrise:    payload.Sys.Sunrise,
		Sunset:     payload.Sys.Sunset,
		Timezone:   payload.Timezone,
		ObservedAt: observedAt(payload.Dt),
		Unit:       unit,
	}
	if len(conditions) > 0 && conditions[0].Icon != "" {
		rec.IconURL = IconURL(conditions[0].Icon)
	}
	return rec
}

// IconURL returns the URL of the @2x icon image for an OpenWeather icon code.
func IconURL(icon string) string {
	return fmt.Sprintf("%s/%s@2x.png", iconBaseURL, url.PathEscape(icon))
}

// observedAt converts the provider's dt field.
func observedAt(dt int64) time.Time {
	if dt == 0 {
		return time.Time{}
	}
	return time.Unix(dt, 0).UTC()
}
