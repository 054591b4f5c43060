package location

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const ipapiBody = `{"ip":"8.8.8.8","city":"Cluj-Napoca","country_code":"RO","latitude":46.7712,"longitude":23.6236}`

type fakeGeocoder struct {
	city string
	err  error
}

func (g fakeGeocoder) CityAt(ctx context.Context, c weather.Coordinates) (string, error) {
	return g.city, g.err
}

func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewResolver(client, Config{Timeout: time.Second}, opts...)
}

func TestResolvePrefersDevice(t *testing.T) {
	r := newTestResolver(t, WithReverseGeocoder(fakeGeocoder{city: "Cluj-Napoca"}))

	pos, err := r.Resolve(context.Background(), &weather.Coordinates{Lat: 46.77, Lon: 23.59}, "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, weather.SourceGPS, pos.Source)
	assert.Equal(t, AccuracyPrecise, pos.Accuracy)
	assert.Equal(t, "Cluj-Napoca", pos.City)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestResolveDeviceGeocoderFailureIsNotFatal(t *testing.T) {
	r := newTestResolver(t, WithReverseGeocoder(fakeGeocoder{err: errors.New("quota")}))

	pos, err := r.Resolve(context.Background(), &weather.Coordinates{Lat: 46.77, Lon: 23.59}, "")
	require.NoError(t, err)
	assert.Empty(t, pos.City)
}

func TestResolveFallsBackToIP(t *testing.T) {
	r := newTestResolver(t)
	httpmock.RegisterResponder(http.MethodGet, "https://ipapi.co/8.8.8.8/json/",
		httpmock.NewStringResponder(200, ipapiBody))

	pos, err := r.Resolve(context.Background(), &weather.Coordinates{Lat: 200, Lon: 0}, "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, weather.SourceIP, pos.Source)
	assert.Equal(t, AccuracyCity, pos.Accuracy)
	assert.Equal(t, "Cluj-Napoca", pos.City)
	assert.Equal(t, "RO", pos.Country)
	assert.InDelta(t, 46.7712, pos.Coordinates.Lat, 1e-9)
}

func TestResolveMemoizesIPLookups(t *testing.T) {
	r := newTestResolver(t)
	httpmock.RegisterResponder(http.MethodGet, "https://ipapi.co/8.8.8.8/json/",
		httpmock.NewStringResponder(200, ipapiBody))

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), nil, "8.8.8.8")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestResolvePrivateIPUsesCallerAddress(t *testing.T) {
	r := newTestResolver(t)
	httpmock.RegisterResponder(http.MethodGet, "https://ipapi.co/json/",
		httpmock.NewStringResponder(200, ipapiBody))

	for _, ip := range []string{"", "127.0.0.1", "192.168.1.10", "not-an-ip"} {
		pos, err := r.Resolve(context.Background(), nil, ip)
		require.NoError(t, err, ip)
		assert.Equal(t, weather.SourceIP, pos.Source)
	}
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		kind      weather.ErrorKind
	}{
		{"network", httpmock.NewErrorResponder(errors.New("connection refused")), weather.KindNetwork},
		{"server", httpmock.NewStringResponder(503, `oops`), weather.KindServer},
		{"rate_limited", httpmock.NewStringResponder(200, `{"error":true,"reason":"RateLimited"}`), weather.KindGeneral},
		{"bad_json", httpmock.NewStringResponder(200, `{`), weather.KindGeneral},
		{"no_coordinates", httpmock.NewStringResponder(200, `{"city":"Nowhere"}`), weather.KindGeneral},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(t)
			httpmock.RegisterResponder(http.MethodGet, "https://ipapi.co/8.8.8.8/json/", tc.responder)

			_, err := r.Resolve(context.Background(), nil, "8.8.8.8")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLocationUnavailable)
			assert.Equal(t, tc.kind, weather.KindOf(err))
		})
	}
}

func TestIPURL(t *testing.T) {
	r := NewResolver(nil, Config{IPLocationURL: "http://geo.local/"})
	assert.Equal(t, "http://geo.local/1.2.3.4/json/", r.IPURL("1.2.3.4"))
	assert.Equal(t, "http://geo.local/json/", r.IPURL(""))
}
