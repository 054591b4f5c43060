package weather

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/logger"
)

// LookupOptions tune a single lookup. Empty Language and Unit fall back to the stored
// preferences.
type LookupOptions struct {
	Language string
	Unit     Unit
	// Refresh skips the history cache and always asks the provider.
	Refresh bool
	// Source tags coordinate lookups (gps or ip); name lookups are always SourceAPI.
	Source Source
}

// Service resolves city names and coordinates to weather records, preferring fresh history
// entries and falling back to a default city when the provider fails.
type Service struct {
	cache    Cache
	provider Provider
	log      *logger.Logger
	flights  singleflight.Group
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(cache Cache, provider Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cache:    cache,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// LookupByName returns the weather for a city. It never returns an error: failures come back
// as a fallback result.
func (s *Service) LookupByName(ctx context.Context, name string, opts LookupOptions) (res LookupResult) {
	opts = s.withDefaults(opts)
	defer s.recoverInto(&res, opts, "LookupByName")

	if err := ValidateCity(name); err != nil {
		s.log.Warn("[LookupByName] invalid city", "city", name)
		return s.fallback(err, opts, "LookupByName")
	}

	if !opts.Refresh {
		if rec, ok := s.cachedByName(name); ok && servesUnit(rec, opts.Unit) {
			return s.hit(rec)
		}
	}

	cleanName := common.StripDiacritics(name)
	key := fmt.Sprintf("name:%s|%s|%s", common.NormalizeName(name), opts.Language, opts.Unit)
	rec, err := s.fetch(ctx, key, Query{City: cleanName, Language: opts.Language, Unit: opts.Unit}, SourceAPI)
	if err != nil {
		return s.fallback(err, opts, "LookupByName")
	}
	return LookupResult{CityRecord: rec}
}

// LookupByCoordinates returns the weather at coords, with the same contract as LookupByName.
func (s *Service) LookupByCoordinates(ctx context.Context, coords Coordinates, opts LookupOptions) (res LookupResult) {
	opts = s.withDefaults(opts)
	defer s.recoverInto(&res, opts, "LookupByCoordinates")

	if !coords.Valid() {
		return s.fallback(NewLookupError(KindGeneral, fmt.Errorf("coordinates out of range: %s", coords)), opts, "LookupByCoordinates")
	}

	if !opts.Refresh {
		rec, ok, err := s.cache.LookupByCoordinates(coords)
		if err != nil {
			s.log.Warn("[LookupByCoordinates] cache lookup failed", "coords", coords.String(), "err", err)
		} else if ok && servesUnit(rec, opts.Unit) {
			return s.hit(rec)
		}
	}

	source := opts.Source
	if source == "" {
		source = SourceAPI
	}
	c := coords
	key := fmt.Sprintf("coords:%s|%s|%s", coords.Rounded(), opts.Language, opts.Unit)
	rec, err := s.fetch(ctx, key, Query{Coordinates: &c, Language: opts.Language, Unit: opts.Unit}, source)
	if err != nil {
		return s.fallback(err, opts, "LookupByCoordinates")
	}
	return LookupResult{CityRecord: rec}
}

// Refresh fetches name from the provider without reading or writing history or the current
// city. Unlike the lookups it returns the classified error instead of a fallback.
func (s *Service) Refresh(ctx context.Context, name string, opts LookupOptions) (CityRecord, error) {
	opts = s.withDefaults(opts)
	if err := ValidateCity(name); err != nil {
		return CityRecord{}, err
	}

	key := fmt.Sprintf("refresh:%s|%s|%s", common.NormalizeName(name), opts.Language, opts.Unit)
	v, err, _ := s.flights.Do(key, func() (interface{}, error) {
		rec, err := s.provider.Fetch(ctx, Query{City: common.StripDiacritics(name), Language: opts.Language, Unit: opts.Unit})
		if err != nil {
			return CityRecord{}, err
		}
		rec.Source = SourceAPI
		rec.Timestamp = s.now()
		return rec, nil
	})
	if err != nil {
		s.log.Warn("[Refresh] provider failed", "city", name, "kind", string(KindOf(err)), "err", err)
		return CityRecord{}, err
	}
	return v.(CityRecord).Clone(), nil
}

func (s *Service) cachedByName(name string) (CityRecord, bool) {
	rec, ok, err := s.cache.LookupByName(name)
	if err != nil {
		s.log.Warn("[LookupByName] cache lookup failed", "city", name, "err", err)
		return CityRecord{}, false
	}
	return rec, ok
}

// servesUnit reports whether a cached record can answer a lookup in unit. Records without a
// unit predate unit tracking and are served as they are.
func servesUnit(rec CityRecord, unit Unit) bool {
	return rec.Unit == "" || rec.Unit == unit
}

func (s *Service) hit(rec CityRecord) LookupResult {
	s.log.Debug("cache hit", "city", rec.Name)
	if err := s.cache.SetCurrentCity(rec); err != nil {
		s.log.Warn("failed to update current city", "city", rec.Name, "err", err)
	}
	return LookupResult{CityRecord: rec, Cached: true}
}

// fetch calls the provider once per key even when identical lookups overlap, then stores
// the result in history and makes it the current city.
func (s *Service) fetch(ctx context.Context, key string, q Query, source Source) (CityRecord, error) {
	v, err, shared := s.flights.Do(key, func() (interface{}, error) {
		rec, err := s.provider.Fetch(ctx, q)
		if err != nil {
			return CityRecord{}, err
		}
		rec.Source = source
		rec.Timestamp = time.Time{}

		stored, err := s.cache.RecordFreshResult(rec)
		if err != nil {
			s.log.Error("failed to record result", "city", rec.Name, "err", err)
			stored = rec
			stored.Timestamp = s.now()
		}
		if err := s.cache.SetCurrentCity(stored); err != nil {
			s.log.Error("failed to update current city", "city", stored.Name, "err", err)
		}
		return stored, nil
	})
	if err != nil {
		return CityRecord{}, err
	}
	if shared {
		s.log.Debug("coalesced lookup", "key", key)
	}
	return v.(CityRecord).Clone(), nil
}

// Fallback returns the default-city result for err, the same way a failed lookup does.
func (s *Service) Fallback(err error, opts LookupOptions) LookupResult {
	return s.fallback(err, s.withDefaults(opts), "Fallback")
}

func (s *Service) fallback(err error, opts LookupOptions, op string) LookupResult {
	kind := KindOf(err)
	s.log.Error(fmt.Sprintf("[%s] generic data has been displayed", op), "kind", string(kind), "err", err)

	rec := FallbackRecord(s.now())
	rec.Unit = opts.Unit
	rec.SourceLabel = i18n.SourceLabel(opts.Language, string(SourceDefault))
	if err := s.cache.SetCurrentCityData(rec); err != nil {
		s.log.Error("failed to store fallback city", "err", err)
	}

	return LookupResult{
		CityRecord:     rec,
		IsFallback:     true,
		FallbackReason: i18n.Message(opts.Language, string(kind)),
		FallbackNotice: i18n.Message(opts.Language, i18n.MsgDisplayWeather),
		ErrorKind:      kind,
	}
}

// recoverInto turns a panic inside a lookup into a GeneralError fallback.
func (s *Service) recoverInto(res *LookupResult, opts LookupOptions, op string) {
	if r := recover(); r != nil {
		*res = s.fallback(NewLookupError(KindGeneral, fmt.Errorf("panic: %v", r)), opts, op)
	}
}

func (s *Service) withDefaults(opts LookupOptions) LookupOptions {
	prefs := s.cache.Preferences()
	if opts.Language == "" {
		opts.Language = prefs.Language
	}
	if opts.Language == "" {
		opts.Language = i18n.DefaultLanguage
	}
	if opts.Unit == "" {
		opts.Unit = prefs.Unit
	}
	if !opts.Unit.Valid() {
		opts.Unit = UnitMetric
	}
	return opts
}
