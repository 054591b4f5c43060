package weather

import "time"

// FallbackRecord is the default city shown when a lookup fails.
func FallbackRecord(now time.Time) CityRecord {
	return CityRecord{
		Name:        "Zocca",
		Country:     "IT",
		Coordinates: Coordinates{Lat: 44.34, Lon: 10.99},
		Weather: []Condition{
			{ID: 501, Main: "Rain", Description: "moderate rain", Icon: "10d"},
		},
		Main: Reading{
			Temp:      95,
			FeelsLike: 85,
			TempMin:   83,
			TempMax:   98,
			Pressure:  1015,
			Humidity:  64,
		},
		Wind:       Wind{Speed: 0.62, Deg: 349, Gust: 1.18},
		Visibility: 10000,
		Sunrise:    1661834187,
		Sunset:     1661882248,
		Timezone:   7200,
		Timestamp:  now,
		Source:     SourceDefault,
	}
}
