package providers

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const testWeatherAPIURL = "https://weatherapi.test/v1"

const iasiWeatherAPIResponse = `{
  "location": { "name": "Iasi", "country": "Romania", "lat": 47.17, "lon": 27.6, "tz_id": "Europe/Bucharest", "localtime_epoch": 1736770000 },
  "current": {
    "last_updated_epoch": 1736769600,
    "temp_c": 4.0, "temp_f": 39.2, "feelslike_c": 1.2, "feelslike_f": 34.2,
    "humidity": 81, "wind_kph": 18.0, "wind_mph": 11.2, "wind_degree": 290,
    "gust_kph": 25.2, "gust_mph": 15.7, "pressure_mb": 1021, "vis_km": 10,
    "condition": { "text": "Light rain shower", "icon": "//cdn.weatherapi.com/weather/64x64/day/353.png", "code": 1240 }
  }
}`

func newMockedWeatherAPI(t *testing.T) *WeatherAPIProvider {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewWeatherAPIProvider(client, "test-key", WithWeatherAPIBaseURL(testWeatherAPIURL))
}

func TestWeatherAPIBuildURL(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "secret", WithWeatherAPIBaseURL(testWeatherAPIURL+"/"))

	raw, err := p.BuildURL(weather.Query{City: "Iasi", Language: "ro"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/v1/current.json", u.Path)
	assert.Equal(t, "Iasi", u.Query().Get("q"))
	assert.Equal(t, "ro", u.Query().Get("lang"))
	assert.Equal(t, "secret", u.Query().Get("key"))

	raw, err = p.BuildURL(weather.Query{Coordinates: &weather.Coordinates{Lat: 47.17, Lon: 27.6}, Language: "en"})
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "47.170000,27.600000", u.Query().Get("q"))
	assert.Empty(t, u.Query().Get("lang"))

	_, err = p.BuildURL(weather.Query{})
	assert.Error(t, err)
}

func TestWeatherAPIFetchMetric(t *testing.T) {
	p := newMockedWeatherAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testWeatherAPIURL+"/current.json",
		httpmock.NewStringResponder(200, iasiWeatherAPIResponse))

	rec, err := p.Fetch(context.Background(), weather.Query{City: "Iasi", Unit: weather.UnitMetric})
	require.NoError(t, err)
	assert.Equal(t, "Iasi", rec.Name)
	assert.Equal(t, "Romania", rec.Country)
	assert.InDelta(t, 4.0, rec.Main.Temp, 0.001)
	assert.InDelta(t, 5.0, rec.Wind.Speed, 0.001)
	assert.Equal(t, 10000, rec.Visibility)
	require.Len(t, rec.Weather, 1)
	assert.Equal(t, "Rain", rec.Weather[0].Main)
	assert.Equal(t, "light rain shower", rec.Summary())
	assert.Equal(t, "https://cdn.weatherapi.com/weather/64x64/day/353.png", rec.IconURL)
	assert.Equal(t, time.Unix(1736769600, 0).UTC(), rec.ObservedAt)
}

func TestWeatherAPIFetchUnits(t *testing.T) {
	p := newMockedWeatherAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testWeatherAPIURL+"/current.json",
		httpmock.NewStringResponder(200, iasiWeatherAPIResponse))

	rec, err := p.Fetch(context.Background(), weather.Query{City: "Iasi", Unit: weather.UnitImperial})
	require.NoError(t, err)
	assert.InDelta(t, 39.2, rec.Main.Temp, 0.001)
	assert.InDelta(t, 11.2, rec.Wind.Speed, 0.001)

	rec, err = p.Fetch(context.Background(), weather.Query{City: "Iasi", Unit: weather.UnitStandard})
	require.NoError(t, err)
	assert.InDelta(t, 277.15, rec.Main.Temp, 0.001)
}

func TestWeatherAPIUnknownLocation(t *testing.T) {
	p := newMockedWeatherAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testWeatherAPIURL+"/current.json",
		httpmock.NewStringResponder(400, `{"error":{"code":1006,"message":"No matching location found."}}`))

	_, err := p.Fetch(context.Background(), weather.Query{City: "Atlantis"})
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
}

func TestWeatherAPINoKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "")
	_, err := p.Fetch(context.Background(), weather.Query{City: "Iasi"})
	assert.ErrorIs(t, err, weather.ErrAuth)
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]string{
		"Sunny":                     "Clear",
		"Partly cloudy":             "Clouds",
		"Overcast":                  "Clouds",
		"Patchy light drizzle":      "Drizzle",
		"Moderate rain":             "Rain",
		"Thundery outbreaks nearby": "Thunderstorm",
		"Heavy snow":                "Snow",
		"Freezing fog":              "Mist",
		"":                          "",
	}
	for text, want := range cases {
		assert.Equal(t, want, mapWeatherAPICondition(text), text)
	}
}
