package weather_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/kvstore"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

type fakeProvider struct {
	calls   atomic.Int32
	err     error
	panics  bool
	release chan struct{}
	queries []weather.Query
	mu      sync.Mutex
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Fetch(ctx context.Context, q weather.Query) (weather.CityRecord, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()

	if p.release != nil {
		<-p.release
	}
	if p.panics {
		panic("provider exploded")
	}
	if p.err != nil {
		return weather.CityRecord{}, p.err
	}

	rec := weather.CityRecord{
		Name:    q.City,
		Country: "RO",
		Weather: []weather.Condition{{ID: 800, Main: "Clear", Description: "clear sky", Icon: "01d"}},
		Main:    weather.Reading{Temp: 18.5},
		Unit:    q.Unit,
	}
	if q.Coordinates != nil {
		rec.Name = "Cluj-Napoca"
		rec.Coordinates = *q.Coordinates
	}
	return rec, nil
}

func (p *fakeProvider) lastQuery() weather.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[len(p.queries)-1]
}

func newService(t *testing.T, p *fakeProvider) (*weather.Service, *store.AppStore) {
	t.Helper()

	s, err := store.Open(kvstore.NewMemory(), store.Options{
		Defaults:        weather.Preferences{City: "Cluj", Unit: weather.UnitMetric, Language: "en"},
		HistoryLimit:    store.DefaultHistoryLimit,
		FavouritesLimit: store.DefaultFavouritesLimit,
		MaxAge:          store.DefaultMaxAge,
	})
	require.NoError(t, err)
	return weather.NewService(s, p, nil), s
}

func TestLookupByNameFetchesAndRecords(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)

	res := svc.LookupByName(context.Background(), "Brașov", weather.LookupOptions{})
	require.False(t, res.IsFallback)
	assert.False(t, res.Cached)
	assert.Equal(t, "Brasov", res.Name)
	assert.Equal(t, weather.SourceAPI, res.Source)
	assert.False(t, res.Timestamp.IsZero())
	assert.Equal(t, int32(1), p.calls.Load())

	q := p.lastQuery()
	assert.Equal(t, "Brasov", q.City, "diacritics are stripped before querying")
	assert.Equal(t, "en", q.Language)
	assert.Equal(t, weather.UnitMetric, q.Unit)

	hist := s.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "Brasov", hist[0].Name)

	cur, ok := s.CurrentCityData()
	require.True(t, ok)
	assert.Equal(t, "Brasov", cur.Name)
	assert.Equal(t, "Brasov", s.Preferences().City)
}

func TestLookupByNameServesFromHistory(t *testing.T) {
	p := &fakeProvider{}
	svc, _ := newService(t, p)
	ctx := context.Background()

	first := svc.LookupByName(ctx, "Cluj", weather.LookupOptions{})
	require.False(t, first.IsFallback)

	second := svc.LookupByName(ctx, "cluj", weather.LookupOptions{})
	require.False(t, second.IsFallback)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestLookupByNameRefreshBypassesHistory(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)
	ctx := context.Background()

	svc.LookupByName(ctx, "Cluj", weather.LookupOptions{})
	res := svc.LookupByName(ctx, "Cluj", weather.LookupOptions{Refresh: true})
	assert.False(t, res.Cached)
	assert.Equal(t, int32(2), p.calls.Load())
	assert.Len(t, s.History(), 1)
}

func TestLookupByNameInvalidCity(t *testing.T) {
	for _, name := range []string{"123", "", "a", "   ", "Cluj!"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			p := &fakeProvider{}
			svc, s := newService(t, p)

			res := svc.LookupByName(context.Background(), name, weather.LookupOptions{})
			assert.True(t, res.IsFallback)
			assert.Equal(t, weather.KindCityInvalid, res.ErrorKind)
			assert.Equal(t, "Zocca", res.Name)
			assert.Equal(t, int32(0), p.calls.Load())
			assert.Empty(t, s.History())
		})
	}
}

func TestLookupByNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind weather.ErrorKind
	}{
		{"not_found", weather.NewLookupError(weather.KindCityNotFound, errors.New("404")), weather.KindCityNotFound},
		{"server", weather.NewLookupError(weather.KindServer, errors.New("500")), weather.KindServer},
		{"network", weather.NewLookupError(weather.KindNetwork, errors.New("dial tcp: refused")), weather.KindNetwork},
		{"auth", weather.NewLookupError(weather.KindAuth, errors.New("401")), weather.KindAuth},
		{"unclassified", errors.New("boom"), weather.KindGeneral},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{err: tc.err}
			svc, s := newService(t, p)

			res := svc.LookupByName(context.Background(), "Atlantis", weather.LookupOptions{Language: "ro"})
			require.True(t, res.IsFallback)
			assert.Equal(t, tc.kind, res.ErrorKind)
			assert.Equal(t, "Zocca", res.Name)
			assert.Equal(t, weather.SourceDefault, res.Source)
			assert.Equal(t, "Oraș implicit", res.SourceLabel)
			assert.NotEmpty(t, res.FallbackReason)
			assert.NotEmpty(t, res.FallbackNotice)
			assert.Empty(t, s.History(), "failed lookups are not recorded")

			cur, ok := s.CurrentCityData()
			require.True(t, ok)
			assert.Equal(t, "Zocca", cur.Name)
		})
	}
}

func TestLookupRecoversFromPanic(t *testing.T) {
	p := &fakeProvider{panics: true}
	svc, _ := newService(t, p)

	res := svc.LookupByName(context.Background(), "Cluj", weather.LookupOptions{})
	assert.True(t, res.IsFallback)
	assert.Equal(t, weather.KindGeneral, res.ErrorKind)
}

func TestLookupByNameCoalescesConcurrentRequests(t *testing.T) {
	p := &fakeProvider{release: make(chan struct{})}
	svc, s := newService(t, p)

	const n = 5
	var wg sync.WaitGroup
	results := make([]weather.LookupResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.LookupByName(context.Background(), "Iasi", weather.LookupOptions{Refresh: true})
		}(i)
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the other goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, r := range results {
		assert.False(t, r.IsFallback)
		assert.Equal(t, "Iasi", r.Name)
	}
	assert.Len(t, s.History(), 1)
}

func TestLookupInOtherUnitRefetches(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)
	ctx := context.Background()

	metric := svc.LookupByName(ctx, "Cluj", weather.LookupOptions{Unit: weather.UnitMetric})
	require.False(t, metric.IsFallback)

	imperial := svc.LookupByName(ctx, "Cluj", weather.LookupOptions{Unit: weather.UnitImperial})
	require.False(t, imperial.IsFallback)
	assert.False(t, imperial.Cached)
	assert.Equal(t, weather.UnitImperial, imperial.Unit)
	assert.Equal(t, int32(2), p.calls.Load())
	assert.Equal(t, weather.UnitImperial, p.lastQuery().Unit)

	require.Len(t, s.History(), 1)
	assert.Equal(t, weather.UnitImperial, s.History()[0].Unit)

	again := svc.LookupByName(ctx, "Cluj", weather.LookupOptions{Unit: weather.UnitImperial})
	assert.True(t, again.Cached)
	assert.Equal(t, int32(2), p.calls.Load())

	coords := svc.LookupByCoordinates(ctx, weather.Coordinates{Lat: 46.7712, Lon: 23.6236}, weather.LookupOptions{Unit: weather.UnitMetric})
	require.False(t, coords.IsFallback)
	coords = svc.LookupByCoordinates(ctx, weather.Coordinates{Lat: 46.7712, Lon: 23.6236}, weather.LookupOptions{Unit: weather.UnitStandard})
	assert.False(t, coords.Cached)
	assert.Equal(t, weather.UnitStandard, coords.Unit)
	assert.Equal(t, int32(4), p.calls.Load())
}

func TestLookupByCoordinates(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)
	ctx := context.Background()

	res := svc.LookupByCoordinates(ctx, weather.Coordinates{Lat: 46.7712, Lon: 23.6236}, weather.LookupOptions{Source: weather.SourceGPS})
	require.False(t, res.IsFallback)
	assert.Equal(t, "Cluj-Napoca", res.Name)
	assert.Equal(t, weather.SourceGPS, res.Source)
	assert.Equal(t, "GPS location", res.SourceLabel)

	again := svc.LookupByCoordinates(ctx, weather.Coordinates{Lat: 46.77115, Lon: 23.62364}, weather.LookupOptions{})
	assert.True(t, again.Cached)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Len(t, s.History(), 1)
}

func TestLookupByCoordinatesOutOfRange(t *testing.T) {
	p := &fakeProvider{}
	svc, _ := newService(t, p)

	res := svc.LookupByCoordinates(context.Background(), weather.Coordinates{Lat: 120, Lon: 10}, weather.LookupOptions{})
	assert.True(t, res.IsFallback)
	assert.Equal(t, weather.KindGeneral, res.ErrorKind)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestLookupUsesStoredPreferences(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)
	_, err := s.UpdatePreferences(weather.Preferences{Unit: weather.UnitImperial, Language: "ro"})
	require.NoError(t, err)

	res := svc.LookupByName(context.Background(), "Sibiu", weather.LookupOptions{})
	require.False(t, res.IsFallback)
	q := p.lastQuery()
	assert.Equal(t, "ro", q.Language)
	assert.Equal(t, weather.UnitImperial, q.Unit)
	assert.Equal(t, "Căutare", res.SourceLabel)
}

func TestRefreshLeavesStoreUntouched(t *testing.T) {
	p := &fakeProvider{}
	svc, s := newService(t, p)

	rec, err := svc.Refresh(context.Background(), "Sibiu", weather.LookupOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sibiu", rec.Name)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Empty(t, s.History())
	_, ok := s.CurrentCityData()
	assert.False(t, ok)

	p.err = weather.NewLookupError(weather.KindServer, errors.New("502"))
	_, err = svc.Refresh(context.Background(), "Sibiu", weather.LookupOptions{})
	assert.ErrorIs(t, err, weather.ErrServer)

	_, err = svc.Refresh(context.Background(), "42", weather.LookupOptions{})
	assert.ErrorIs(t, err, weather.ErrCityInvalid)
}
