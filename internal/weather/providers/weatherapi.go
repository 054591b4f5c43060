package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com root; the provider appends /current.json.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// WeatherAPIOption customizes a WeatherAPIProvider.
type WeatherAPIOption func(*WeatherAPIProvider)

// WithWeatherAPIBaseURL overrides the API root.
func WithWeatherAPIBaseURL(u string) WeatherAPIOption {
	return func(p *WeatherAPIProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...WeatherAPIOption) *WeatherAPIProvider {
	p := &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// BuildURL returns the /current.json request URL for q.
func (p *WeatherAPIProvider) BuildURL(q weather.Query) (string, error) {
	values := url.Values{}
	values.Set("key", p.apiKey)

	// WeatherAPI uses "q" for both a city name and a "lat,lon" pair.
	switch {
	case q.Coordinates != nil:
		values.Set("q", fmt.Sprintf("%f,%f", q.Coordinates.Lat, q.Coordinates.Lon))
	case q.City != "":
		values.Set("q", q.City)
	default:
		return "", errors.New("query needs a city or coordinates")
	}
	if q.Language != "" && q.Language != "en" {
		values.Set("lang", q.Language)
	}

	return fmt.Sprintf("%s/current.json?%s", p.baseURL, values.Encode()), nil
}

type weatherAPIPayload struct {
	Location struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		TzID      string  `json:"tz_id"`
		Localtime int64   `json:"localtime_epoch"`
	} `json:"location"`
	Current struct {
		LastUpdated int64   `json:"last_updated_epoch"`
		TempC       float64 `json:"temp_c"`
		TempF       float64 `json:"temp_f"`
		FeelsLikeC  float64 `json:"feelslike_c"`
		FeelsLikeF  float64 `json:"feelslike_f"`
		Humidity    float64 `json:"humidity"`
		WindKph     float64 `json:"wind_kph"`
		WindMph     float64 `json:"wind_mph"`
		WindDegree  int     `json:"wind_degree"`
		GustKph     float64 `json:"gust_kph"`
		GustMph     float64 `json:"gust_mph"`
		PressureMb  float64 `json:"pressure_mb"`
		VisKm       float64 `json:"vis_km"`
		Condition   struct {
			Text string `json:"text"`
			Icon string `json:"icon"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, q weather.Query) (weather.CityRecord, error) {
	if p.apiKey == "" {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindAuth, fmt.Errorf("weatherapi api key is not configured"))
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
		// WeatherAPI reports an unknown location as a 400.
		var le *weather.LookupError
		if errors.As(err, &le) && le.Status == http.StatusBadRequest {
			return weather.CityRecord{}, &weather.LookupError{Kind: weather.KindCityNotFound, Status: le.Status, Err: le.Err}
		}
		return weather.CityRecord{}, err
	}
	defer resp.Body.Close()

	var payload weatherAPIPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindGeneral, fmt.Errorf("decode weatherapi response: %w", err))
	}
	if payload.Location.Name == "" {
		return weather.CityRecord{}, weather.NewLookupError(weather.KindCityNotFound, errors.New("response carries no city name"))
	}

	return toWeatherAPIRecord(payload, q.Unit), nil
}

func toWeatherAPIRecord(payload weatherAPIPayload, unit weather.Unit) weather.CityRecord {
	cur := payload.Current

	var temp, feels, wind, gust float64
	switch unit {
	case weather.UnitImperial:
		temp, feels = cur.TempF, cur.FeelsLikeF
		wind, gust = cur.WindMph, cur.GustMph
	case weather.UnitStandard:
		temp, feels = cur.TempC+273.15, cur.FeelsLikeC+273.15
		wind, gust = cur.WindKph/3.6, cur.GustKph/3.6
	default:
		temp, feels = cur.TempC, cur.FeelsLikeC
		wind, gust = cur.WindKph/3.6, cur.GustKph/3.6
	}

	rec := weather.CityRecord{
		Name:        payload.Location.Name,
		Country:     payload.Location.Country,
		Coordinates: weather.Coordinates{Lat: payload.Location.Lat, Lon: payload.Location.Lon},
		Weather: []weather.Condition{{
			ID:          cur.Condition.Code,
			Main:        mapWeatherAPICondition(cur.Condition.Text),
			Description: strings.ToLower(cur.Condition.Text),
		}},
		Main: weather.Reading{
			Temp:      temp,
			FeelsLike: feels,
			TempMin:   temp,
			TempMax:   temp,
			Pressure:  cur.PressureMb,
			Humidity:  cur.Humidity,
		},
		Wind:       weather.Wind{Speed: wind, Deg: cur.WindDegree, Gust: gust},
		Visibility: int(cur.VisKm * 1000),
		ObservedAt: observedAt(cur.LastUpdated),
		Unit:       unit,
	}
	if icon := cur.Condition.Icon; icon != "" {
		if strings.HasPrefix(icon, "//") {
			icon = "https:" + icon
		}
		rec.IconURL = icon
	}
	return rec
}

// mapWeatherAPICondition maps a WeatherAPI condition text onto an OpenWeather "main" group.
func mapWeatherAPICondition(text string) string {
	switch {
	case text == "":
		return ""
	case contains(text, "thunder") || contains(text, "storm"):
		return "Thunderstorm"
	case contains(text, "drizzle"):
		return "Drizzle"
	case contains(text, "rain") || contains(text, "shower"):
		return "Rain"
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard") || contains(text, "ice"):
		return "Snow"
	case contains(text, "fog") || contains(text, "mist"):
		return "Mist"
	case contains(text, "cloud") || contains(text, "overcast"):
		return "Clouds"
	case contains(text, "sunny") || contains(text, "clear"):
		return "Clear"
	default:
		return text
	}
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
