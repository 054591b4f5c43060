package store

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Preferences returns the current settings.
func (s *AppStore) Preferences() weather.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// UpdatePreferences applies the non-empty fields of p and saves once.
func (s *AppStore) UpdatePreferences(p weather.Preferences) (weather.Preferences, error) {
	if p.Unit != "" && !p.Unit.Valid() {
		return weather.Preferences{}, fmt.Errorf("%w: unit %q", ErrInvalidSetting, p.Unit)
	}
	if p.Language != "" && !i18n.Supported(p.Language) {
		return weather.Preferences{}, fmt.Errorf("%w: language %q", ErrInvalidSetting, p.Language)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	if city := strings.TrimSpace(p.City); city != "" {
		s.prefs.City = city
	}
	if p.Unit != "" {
		s.prefs.Unit = p.Unit
	}
	if p.Language != "" {
		s.prefs.Language = p.Language
	}
	if theme := strings.TrimSpace(p.Theme); theme != "" {
		s.prefs.Theme = theme
	}
	if err := s.commit(before); err != nil {
		return weather.Preferences{}, err
	}
	return s.prefs, nil
}

func (s *AppStore) SetCity(city string) error {
	_, err := s.UpdatePreferences(weather.Preferences{City: city})
	return err
}

func (s *AppStore) SetUnit(unit weather.Unit) error {
	if unit == "" {
		return fmt.Errorf("%w: empty unit", ErrInvalidSetting)
	}
	_, err := s.UpdatePreferences(weather.Preferences{Unit: unit})
	return err
}

func (s *AppStore) SetLanguage(lang string) error {
	if lang == "" {
		return fmt.Errorf("%w: empty language", ErrInvalidSetting)
	}
	_, err := s.UpdatePreferences(weather.Preferences{Language: lang})
	return err
}

func (s *AppStore) SetTheme(theme string) error {
	_, err := s.UpdatePreferences(weather.Preferences{Theme: theme})
	return err
}

// SetCurrentCity makes rec the current city: the name pointer and its snapshot.
func (s *AppStore) SetCurrentCity(rec weather.CityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	if rec.Name != "" {
		s.prefs.City = rec.Name
	}
	c := s.labelled(rec)
	s.current = &c
	return s.commit(before)
}

// SetCurrentCityData replaces the current city snapshot without moving the name pointer.
func (s *AppStore) SetCurrentCityData(rec weather.CityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.capture()

	c := s.labelled(rec)
	s.current = &c
	return s.commit(before)
}

// CurrentCityData returns the current city snapshot, if any.
func (s *AppStore) CurrentCityData() (weather.CityRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return weather.CityRecord{}, false
	}
	return s.labelled(*s.current), true
}
