package location

import (
	"context"
	"errors"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var errNoCity = errors.New("no city at these coordinates")

// GoogleGeocoder reverse geocodes through the Google Maps geocoding API.
type GoogleGeocoder struct{}

var apiKeyOnce sync.Once

// NewGoogleGeocoder sets the package-wide geocoder key. Only the first key is used.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	apiKeyOnce.Do(func() { geocoder.ApiKey = apiKey })
	return &GoogleGeocoder{}
}

// CityAt returns the first city name among the addresses found at c. The geocoder library
// does not take a context, so ctx is only checked before the call.
func (g *GoogleGeocoder) CityAt(ctx context.Context, c weather.Coordinates) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	addrs, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if a.City != "" {
			return a.City, nil
		}
	}
	return "", errNoCity
}
