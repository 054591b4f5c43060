package store

import (
	"fmt"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// LookupByName returns the history entry for name if it is fresh. The comparison ignores
// case and diacritics. A stale entry is evicted and reported as a miss; a fresh one is
// promoted to the front.
func (s *AppStore) LookupByName(name string) (weather.CityRecord, bool, error) {
	key := common.NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.history.FindByKey(key)
	if !ok {
		return weather.CityRecord{}, false, nil
	}
	return s.serve(i)
}

// LookupByCoordinates is LookupByName keyed by coordinates rounded to four decimals.
func (s *AppStore) LookupByCoordinates(c weather.Coordinates) (weather.CityRecord, bool, error) {
	key := c.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.history.IndexFunc(func(r weather.CityRecord) bool {
		return r.Coordinates.Key() == key
	})
	if !ok {
		return weather.CityRecord{}, false, nil
	}
	return s.serve(i)
}

// serve must be called with s.mu held.
func (s *AppStore) serve(i int) (weather.CityRecord, bool, error) {
	before := s.capture()
	rec := s.history.At(i)
	if !s.fresh(rec) {
		s.history.RemoveAt(i)
		return weather.CityRecord{}, false, s.commit(before)
	}
	s.history.PromoteToFront(i)
	if err := s.commit(before); err != nil {
		return weather.CityRecord{}, false, err
	}
	return s.labelled(rec), true, nil
}

// fresh reports whether rec is younger than maxAge. The age is taken as an absolute value so
// a clock stepping backwards does not make entries immortal.
func (s *AppStore) fresh(rec weather.CityRecord) bool {
	if s.maxAge <= 0 {
		return true
	}
	age := s.now().Sub(rec.Timestamp)
	if age < 0 {
		age = -age
	}
	return age < s.maxAge
}

// RecordFreshResult stores a record just fetched from the provider at the front of the
// history, replacing any entry with the same name.
func (s *AppStore) RecordFreshResult(rec weather.CityRecord) (weather.CityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	rec = s.stamp(rec)
	s.history.Upsert(rec.Clone())
	if err := s.commit(before); err != nil {
		return rec, err
	}
	return rec, nil
}

// History returns the search history, most recent first.
func (s *AppStore) History() []weather.CityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelledAll(s.history.Items())
}

// RemoveFromHistory deletes name from the history. It fails with ErrNotFoundKey when the city
// is not there.
func (s *AppStore) RemoveFromHistory(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	if err := s.history.RemoveByKey(common.NormalizeName(name)); err != nil {
		return fmt.Errorf("%w: city %q has not been found in the history", err, name)
	}
	return s.commit(before)
}

// ClearHistory empties the history.
func (s *AppStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	s.history.Clear()
	return s.commit(before)
}

// AddFavourite puts rec at the front of the favourites. An existing favourite with the same
// name is promoted unchanged. Favourites never expire.
func (s *AppStore) AddFavourite(rec weather.CityRecord) (weather.CityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	rec = s.stamp(rec)
	s.favourites.AddOrPromote(rec.Clone())
	if err := s.commit(before); err != nil {
		return rec, err
	}
	return s.labelled(s.favourites.At(0)), nil
}

// Favourites returns the favourites, most recent first.
func (s *AppStore) Favourites() []weather.CityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelledAll(s.favourites.Items())
}

// IsFavourite reports whether name is in the favourites.
func (s *AppStore) IsFavourite(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.favourites.FindByKey(common.NormalizeName(name))
	return ok
}

// RemoveFavourite deletes name from the favourites. It fails with ErrNotFoundKey when the
// city is not there.
func (s *AppStore) RemoveFavourite(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	if err := s.favourites.RemoveByKey(common.NormalizeName(name)); err != nil {
		return fmt.Errorf("%w: city %q has not been found in the list of favourites", err, name)
	}
	return s.commit(before)
}

// ClearFavourites empties the favourites.
func (s *AppStore) ClearFavourites() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	s.favourites.Clear()
	return s.commit(before)
}

// stamp sets the capture time if missing and the localized source label.
// Must be called with s.mu held.
func (s *AppStore) stamp(rec weather.CityRecord) weather.CityRecord {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if rec.Source == "" {
		rec.Source = weather.SourceAPI
	}
	return s.labelled(rec)
}

// labelled returns a copy of rec with the source label in the current language.
// Must be called with s.mu held.
func (s *AppStore) labelled(rec weather.CityRecord) weather.CityRecord {
	rec = rec.Clone()
	rec.SourceLabel = i18n.SourceLabel(s.prefs.Language, string(rec.Source))
	return rec
}

func (s *AppStore) labelledAll(recs []weather.CityRecord) []weather.CityRecord {
	out := make([]weather.CityRecord, len(recs))
	for i, r := range recs {
		out[i] = s.labelled(r)
	}
	return out
}

// PruneHistory drops every stale history entry and returns how many were removed.
func (s *AppStore) PruneHistory() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	removed := s.history.RemoveFunc(func(r weather.CityRecord) bool { return !s.fresh(r) })
	if removed == 0 {
		return 0, nil
	}
	return removed, s.commit(before)
}

// UpdateFavourite replaces the stored favourite with the same name, keeping its position.
func (s *AppStore) UpdateFavourite(rec weather.CityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	rec = s.stamp(rec)
	if !s.favourites.Replace(rec.Clone()) {
		return fmt.Errorf("%w: city %q has not been found in the list of favourites", ErrNotFoundKey, rec.Name)
	}
	return s.commit(before)
}
