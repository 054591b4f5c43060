// Package location resolves where the user is: device coordinates when the client sends them,
// otherwise an IP geolocation lookup.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultIPLocationURL is the ipapi.co endpoint; "/<ip>/json" or "/json" is appended.
const DefaultIPLocationURL = "https://ipapi.co"

const (
	AccuracyPrecise = "precise"
	AccuracyCity    = "city"
)

// ErrLocationUnavailable is returned when neither the device nor the IP lookup gave a position.
var ErrLocationUnavailable = errors.New("location unavailable")

// Position is a resolved user location.
type Position struct {
	Coordinates weather.Coordinates `json:"coordinates"`
	Source      weather.Source      `json:"source"`
	Accuracy    string              `json:"accuracy"`
	City        string              `json:"city,omitempty"`
	Country     string              `json:"country,omitempty"`
}

// ReverseGeocoder names the city at a coordinate pair.
type ReverseGeocoder interface {
	CityAt(ctx context.Context, c weather.Coordinates) (string, error)
}

type Config struct {
	// IPLocationURL defaults to DefaultIPLocationURL.
	IPLocationURL string
	// Timeout bounds the IP lookup.
	Timeout time.Duration
	// MemoTTL is how long an IP lookup is remembered; 0 means one hour.
	MemoTTL time.Duration
}

// Resolver implements the device-then-IP strategy. IP results are memoized per address.
type Resolver struct {
	client   *http.Client
	baseURL  string
	timeout  time.Duration
	memo     *cache.Cache
	geocoder ReverseGeocoder
	log      *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithReverseGeocoder names device positions through g.
func WithReverseGeocoder(g ReverseGeocoder) Option {
	return func(r *Resolver) { r.geocoder = g }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a Resolver that performs IP lookups with client.
func NewResolver(client *http.Client, cfg Config, opts ...Option) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(cfg.IPLocationURL, "/")
	if base == "" {
		base = DefaultIPLocationURL
	}
	ttl := cfg.MemoTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	r := &Resolver{
		client:  client,
		baseURL: base,
		timeout: cfg.Timeout,
		memo:    cache.New(ttl, 2*ttl),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the device position when device is set and valid, otherwise the position
// of clientIP. An empty or private clientIP asks the service for the caller's own address.
func (r *Resolver) Resolve(ctx context.Context, device *weather.Coordinates, clientIP string) (Position, error) {
	if device != nil {
		if device.Valid() {
			pos := Position{Coordinates: *device, Source: weather.SourceGPS, Accuracy: AccuracyPrecise}
			r.nameCity(ctx, &pos)
			r.log.Info("location retrieved from device", "coords", device.String())
			return pos, nil
		}
		r.log.Warn("device coordinates rejected", "coords", device.String())
	}

	pos, err := r.byIP(ctx, clientIP)
	if err != nil {
		r.log.Error("IP location failed", "ip", clientIP, "err", err)
		return Position{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
	r.log.Info("location retrieved from IP", "ip", clientIP, "coords", pos.Coordinates.String())
	return pos, nil
}

func (r *Resolver) nameCity(ctx context.Context, pos *Position) {
	if r.geocoder == nil {
		return
	}
	city, err := r.geocoder.CityAt(ctx, pos.Coordinates)
	if err != nil {
		r.log.Warn("reverse geocoding failed", "coords", pos.Coordinates.String(), "err", err)
		return
	}
	pos.City = city
}

type ipapiPayload struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	CountryCode string   `json:"country_code"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

func (r *Resolver) byIP(ctx context.Context, ip string) (Position, error) {
	ip = publicIP(ip)
	if cached, ok := r.memo.Get(ip); ok {
		return cached.(Position), nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.IPURL(ip), nil)
	if err != nil {
		return Position{}, weather.NewLookupError(weather.KindGeneral, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Position{}, weather.NewLookupError(weather.KindNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Position{}, &weather.LookupError{
			Kind:   weather.KindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("ip location status %d", resp.StatusCode),
		}
	}

	var p ipapiPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Position{}, weather.NewLookupError(weather.KindGeneral, fmt.Errorf("decode ip location: %w", err))
	}
	if p.Error {
		return Position{}, weather.NewLookupError(weather.KindGeneral, fmt.Errorf("ip location: %s", p.Reason))
	}
	if p.Latitude == nil || p.Longitude == nil {
		return Position{}, weather.NewLookupError(weather.KindGeneral, errors.New("ip location: missing coordinates"))
	}

	pos := Position{
		Coordinates: weather.Coordinates{Lat: *p.Latitude, Lon: *p.Longitude},
		Source:      weather.SourceIP,
		Accuracy:    AccuracyCity,
		City:        p.City,
		Country:     p.CountryCode,
	}
	r.memo.Set(ip, pos, cache.DefaultExpiration)
	return pos, nil
}

// IPURL returns the lookup URL for ip; an empty ip means the caller's own address.
func (r *Resolver) IPURL(ip string) string {
	if ip == "" {
		return r.baseURL + "/json/"
	}
	return r.baseURL + "/" + ip + "/json/"
}

// publicIP returns ip unchanged when it is a routable address and "" otherwise.
func publicIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return ""
	}
	return parsed.String()
}
