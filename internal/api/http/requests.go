package httpapi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// lookupQuery holds the query parameters shared by the weather endpoints. The city itself is
// validated by the service so an invalid name still yields a fallback result.
type lookupQuery struct {
	City    string `query:"city"`
	Lang    string `query:"lang" validate:"omitempty,max=35"`
	Units   string `query:"units" validate:"omitempty,oneof=metric imperial standard"`
	Refresh bool   `query:"refresh"`
}

func (q *lookupQuery) bind(c *fiber.Ctx) error {
	if err := c.QueryParser(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if q.Lang != "" && !i18n.Supported(q.Lang) {
		q.Lang = i18n.Match(q.Lang)
	}
	return nil
}

func (q lookupQuery) options() weather.LookupOptions {
	return weather.LookupOptions{
		Language: q.Lang,
		Unit:     weather.Unit(q.Units),
		Refresh:  q.Refresh,
	}
}

// coordsQuery adds required coordinates to lookupQuery.
type coordsQuery struct {
	lookupQuery
	Lat string `query:"lat" validate:"required,latitude"`
	Lon string `query:"lon" validate:"required,longitude"`

	coordinates weather.Coordinates
}

func (q *coordsQuery) bind(c *fiber.Ctx) error {
	if err := q.lookupQuery.bind(c); err != nil {
		return err
	}
	q.Lat, q.Lon = c.Query("lat"), c.Query("lon")
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lat")
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lon")
	}
	q.coordinates = weather.Coordinates{Lat: lat, Lon: lon}
	return nil
}

// deviceCoordinates returns the lat/lon query pair when both parse, nil otherwise.
func deviceCoordinates(c *fiber.Ctx) *weather.Coordinates {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil
	}
	return &weather.Coordinates{Lat: lat, Lon: lon}
}

type favouriteBody struct {
	City string `json:"city" validate:"required,cityname"`
}

type settingsBody struct {
	City     string `json:"city" validate:"omitempty,cityname"`
	Unit     string `json:"unit" validate:"omitempty,oneof=metric imperial standard"`
	Language string `json:"language" validate:"omitempty,oneof=en ro"`
	Theme    string `json:"theme" validate:"omitempty,oneof=light dark"`
}

func (b settingsBody) preferences() weather.Preferences {
	return weather.Preferences{
		City:     strings.TrimSpace(b.City),
		Unit:     weather.Unit(b.Unit),
		Language: b.Language,
		Theme:    b.Theme,
	}
}

// pathName returns the unescaped :name route parameter.
func pathName(c *fiber.Ctx) string {
	name := c.Params("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

type logLevelBody struct {
	Level string `json:"level"`
}
