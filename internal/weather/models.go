package weather

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/common"
)

// Unit is the measurement system requested from the provider.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
	UnitStandard Unit = "standard"
)

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	switch u {
	case UnitMetric, UnitImperial, UnitStandard:
		return true
	}
	return false
}

// Source tells where a record's location came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceIP      Source = "ip"
	SourceGPS     Source = "gps"
	SourceAPI     Source = "api"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CoordKey is a coordinate pair rounded to common.CoordinatePrecision decimals, scaled to
// integers so equal rounded values compare exactly.
type CoordKey struct {
	Lat int64
	Lon int64
}

// Key returns the rounded lookup key for c.
func (c Coordinates) Key() CoordKey {
	return CoordKey{
		Lat: common.ScaleCoordinate(c.Lat),
		Lon: common.ScaleCoordinate(c.Lon),
	}
}

// Rounded returns c rounded to the lookup precision.
func (c Coordinates) Rounded() Coordinates {
	return Coordinates{
		Lat: common.RoundCoordinate(c.Lat),
		Lon: common.RoundCoordinate(c.Lon),
	}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Valid reports whether c lies within the lat/lon ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Condition is one entry of the provider's weather summary.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Reading holds the temperature-related measurements.
type Reading struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feelsLike"`
	TempMin   float64 `json:"tempMin"`
	TempMax   float64 `json:"tempMax"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

// Wind holds wind measurements.
type Wind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
	Gust  float64 `json:"gust"`
}

// CityRecord is a weather snapshot for one city. Stored records are never mutated; a fresh
// fetch for the same city replaces the stored value.
type CityRecord struct {
	Name        string      `json:"name"`
	Country     string      `json:"country,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Weather     []Condition `json:"weather"`
	Main        Reading     `json:"main"`
	Wind        Wind        `json:"wind"`
	Visibility  int         `json:"visibility"`
	Sunrise     int64       `json:"sunrise"`
	Sunset      int64       `json:"sunset"`
	Timezone    int         `json:"timezone"`
	ObservedAt  time.Time   `json:"observedAt"`
	Unit        Unit        `json:"unit,omitempty"`
	IconURL     string      `json:"iconUrl,omitempty"`

	// Timestamp is the capture time, set when the record is stored.
	Timestamp   time.Time `json:"timestamp"`
	Source      Source    `json:"source"`
	SourceLabel string    `json:"sourceLabel,omitempty"`
}

// Key returns the normalized name the record is indexed by.
func (r CityRecord) Key() string {
	return common.NormalizeName(r.Name)
}

// Summary returns the first weather condition description, if any.
func (r CityRecord) Summary() string {
	if len(r.Weather) == 0 {
		return ""
	}
	return r.Weather[0].Description
}

// Clone returns a copy of r that shares no slices with it.
func (r CityRecord) Clone() CityRecord {
	if r.Weather != nil {
		w := make([]Condition, len(r.Weather))
		copy(w, r.Weather)
		r.Weather = w
	}
	return r
}

// LookupResult is what the orchestrator returns: always a renderable record, with failures
// carried as data.
type LookupResult struct {
	CityRecord

	Cached         bool      `json:"cached"`
	IsFallback     bool      `json:"isFallback"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
	FallbackNotice string    `json:"fallbackNotice,omitempty"`
	ErrorKind      ErrorKind `json:"errorKind,omitempty"`
}

// Preferences are the user settings a lookup runs with.
type Preferences struct {
	City     string `json:"city"`
	Unit     Unit   `json:"unit"`
	Language string `json:"language"`
	Theme    string `json:"theme"`
}
