package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/collection"
	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/kvstore"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var (
	// ErrNotFoundKey is returned when removing a city that is not in the list.
	ErrNotFoundKey = collection.ErrNotFoundKey

	// ErrInvalidSetting is returned when a preference value is not accepted.
	ErrInvalidSetting = errors.New("invalid setting")
)

// Defaults for a freshly created document.
const (
	DefaultHistoryLimit    = 10
	DefaultFavouritesLimit = 10
	DefaultMaxAge          = 10 * time.Minute
)

// Options configure an AppStore.
type Options struct {
	Key             string
	Defaults        weather.Preferences
	HistoryLimit    int
	FavouritesLimit int
	// MaxAge is how long a history entry is served from cache; 0 means entries never expire.
	MaxAge time.Duration
	Clock  func() time.Time
}

type cityList = collection.Collection[weather.CityRecord, string]

// AppStore owns the application document: preferences, favourites, search history and the
// current city. Every mutation is written to the key-value store before the call returns.
//
// AppStore is safe for concurrent use; mutations are serialized.
type AppStore struct {
	mu sync.Mutex

	kv  kvstore.Store
	key string

	defaults   weather.Preferences
	prefs      weather.Preferences
	favourites *cityList
	history    *cityList
	current    *weather.CityRecord

	historyLimit    int
	favouritesLimit int
	maxAge          time.Duration
	now             func() time.Time
}

func recordKey(r weather.CityRecord) string { return r.Key() }

// Open loads the document from kv, creating and saving a default one if none exists.
func Open(kv kvstore.Store, opts Options) (*AppStore, error) {
	if opts.Key == "" {
		opts.Key = DocumentKey
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Defaults.Unit == "" {
		opts.Defaults.Unit = weather.UnitMetric
	}
	if opts.Defaults.Language == "" {
		opts.Defaults.Language = i18n.DefaultLanguage
	}

	s := &AppStore{
		kv:              kv,
		key:             opts.Key,
		defaults:        opts.Defaults,
		prefs:           opts.Defaults,
		historyLimit:    opts.HistoryLimit,
		favouritesLimit: opts.FavouritesLimit,
		maxAge:          opts.MaxAge,
		now:             opts.Clock,
	}
	s.favourites = collection.New(s.favouritesLimit, recordKey)
	s.history = collection.New(s.historyLimit, recordKey)

	err := s.Load()
	if errors.Is(err, kvstore.ErrNotFound) {
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with the stored document. Lists longer than the
// configured limits are truncated.
func (s *AppStore) Load() error {
	data, err := s.kv.Get(s.key)
	if err != nil {
		return err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = weather.Preferences{
		City:     firstNonEmpty(doc.CurrentCity, s.defaults.City),
		Unit:     doc.Unit,
		Language: firstNonEmpty(doc.Language, s.defaults.Language),
		Theme:    firstNonEmpty(doc.Theme, s.defaults.Theme),
	}
	if !s.prefs.Unit.Valid() {
		s.prefs.Unit = s.defaults.Unit
	}
	s.favourites = collection.FromItems(s.favouritesLimit, recordKey, doc.Favourites)
	s.history = collection.FromItems(s.historyLimit, recordKey, doc.History)
	s.current = nil
	if doc.CurrentCityData != nil {
		c := doc.CurrentCityData.Clone()
		s.current = &c
	}
	return nil
}

// Save writes the full document.
func (s *AppStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save must be called with s.mu held.
func (s *AppStore) save() error {
	data, err := json.Marshal(s.document())
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	return nil
}

// state is the mutable in-memory part of the document.
type state struct {
	prefs      weather.Preferences
	favourites []weather.CityRecord
	history    []weather.CityRecord
	current    *weather.CityRecord
}

// capture must be called with s.mu held.
func (s *AppStore) capture() state {
	return state{
		prefs:      s.prefs,
		favourites: s.favourites.Items(),
		history:    s.history.Items(),
		current:    s.current,
	}
}

// commit persists the document. When the write fails the in-memory state is rolled back to
// before, so memory never runs ahead of the stored document. Must be called with s.mu held.
func (s *AppStore) commit(before state) error {
	if err := s.save(); err != nil {
		s.prefs = before.prefs
		s.favourites = collection.FromItems(s.favouritesLimit, recordKey, before.favourites)
		s.history = collection.FromItems(s.historyLimit, recordKey, before.history)
		s.current = before.current
		return err
	}
	return nil
}

// document must be called with s.mu held.
func (s *AppStore) document() Document {
	doc := Document{
		CurrentCity:     s.prefs.City,
		Unit:            s.prefs.Unit,
		Language:        s.prefs.Language,
		Theme:           s.prefs.Theme,
		Favourites:      cloneAll(s.favourites.Items()),
		History:         cloneAll(s.history.Items()),
		MaxAge:          Duration(s.maxAge),
		FavouritesLimit: s.favouritesLimit,
		HistoryLimit:    s.historyLimit,
	}
	if s.current != nil {
		c := s.current.Clone()
		doc.CurrentCityData = &c
	}
	return doc
}

// Snapshot returns a deep copy of the current document.
func (s *AppStore) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document()
}

// MaxAge returns the configured staleness limit.
func (s *AppStore) MaxAge() time.Duration {
	return s.maxAge
}

func cloneAll(recs []weather.CityRecord) []weather.CityRecord {
	out := make([]weather.CityRecord, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
