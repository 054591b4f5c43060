package weather

import (
	"context"
)

// Query describes one provider request: either City or Coordinates is set.
type Query struct {
	City        string
	Coordinates *Coordinates
	Language    string
	Unit        Unit
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) (CityRecord, error)
}

// Cache is the contract the application store must satisfy for the lookup service:
// staleness-aware history lookups plus the current-city pointer.
type Cache interface {
	Preferences() Preferences
	LookupByName(name string) (CityRecord, bool, error)
	LookupByCoordinates(c Coordinates) (CityRecord, bool, error)
	RecordFreshResult(rec CityRecord) (CityRecord, error)
	SetCurrentCity(rec CityRecord) error
	SetCurrentCityData(rec CityRecord) error
}
