package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// DocumentKey is the fixed key the application document is stored under.
const DocumentKey = "AppStore"

// Duration is a time.Duration that serializes as a Go duration string ("10m0s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Accept raw nanoseconds as well.
		var n int64
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return fmt.Errorf("invalid duration %s", string(b))
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Document is the persisted form of the application state. Favourites and History are
// ordered most recent first.
type Document struct {
	CurrentCity     string               `json:"currentCity"`
	Unit            weather.Unit         `json:"unit"`
	Language        string               `json:"language"`
	Theme           string               `json:"theme"`
	Favourites      []weather.CityRecord `json:"favourites"`
	History         []weather.CityRecord `json:"history"`
	CurrentCityData *weather.CityRecord  `json:"currentCityData,omitempty"`
	MaxAge          Duration             `json:"maxAge"`
	FavouritesLimit int                  `json:"favouritesLimit"`
	HistoryLimit    int                  `json:"historyLimit"`
}
