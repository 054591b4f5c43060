package httpapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/i18n"
	"github.com/i474232898/weather-lookup/internal/location"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = weather.Validator()

// Deps are the components the handlers call into.
type Deps struct {
	Service  *weather.Service
	Store    *store.AppStore
	Resolver *location.Resolver
	Log      *logger.Logger
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, store.ErrNotFoundKey):
		code = fiber.StatusNotFound
	case errors.Is(err, store.ErrInvalidSetting):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var q lookupQuery
		if err := q.bind(c); err != nil {
			return err
		}
		res := d.Service.LookupByName(c.UserContext(), q.City, q.options())
		return c.JSON(res)
	})

	v1.Get("/weather/coords", func(c *fiber.Ctx) error {
		var q coordsQuery
		if err := q.bind(c); err != nil {
			return err
		}
		res := d.Service.LookupByCoordinates(c.UserContext(), q.coordinates, q.options())
		return c.JSON(res)
	})

	v1.Get("/weather/locate", func(c *fiber.Ctx) error {
		var q lookupQuery
		if err := q.bind(c); err != nil {
			return err
		}
		opts := q.options()

		pos, err := d.Resolver.Resolve(c.UserContext(), deviceCoordinates(c), c.IP())
		if err != nil {
			return c.JSON(locateResponse{LookupResult: d.Service.Fallback(err, opts)})
		}
		opts.Source = pos.Source
		res := d.Service.LookupByCoordinates(c.UserContext(), pos.Coordinates, opts)
		return c.JSON(locateResponse{Position: &pos, LookupResult: res})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		rec, ok := d.Store.CurrentCityData()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no current city yet")
		}
		return c.JSON(rec)
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		return c.JSON(d.Store.History())
	})

	v1.Delete("/history", func(c *fiber.Ctx) error {
		if err := d.Store.ClearHistory(); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/history/:name", func(c *fiber.Ctx) error {
		if err := d.Store.RemoveFromHistory(pathName(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/favourites", func(c *fiber.Ctx) error {
		return c.JSON(d.Store.Favourites())
	})

	v1.Post("/favourites", func(c *fiber.Ctx) error {
		var body favouriteBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res := d.Service.LookupByName(c.UserContext(), body.City, weather.LookupOptions{})
		if res.IsFallback {
			return fiber.NewError(statusForKind(res.ErrorKind), res.FallbackReason)
		}
		fav, err := d.Store.AddFavourite(res.CityRecord)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fav)
	})

	v1.Delete("/favourites", func(c *fiber.Ctx) error {
		if err := d.Store.ClearFavourites(); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/favourites/:name", func(c *fiber.Ctx) error {
		if err := d.Store.RemoveFavourite(pathName(c)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(d.Store.Preferences())
	})

	v1.Patch("/settings", func(c *fiber.Ctx) error {
		var body settingsBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		prefs, err := d.Store.UpdatePreferences(body.preferences())
		if err != nil {
			return err
		}
		d.Log.Info("settings updated", "unit", string(prefs.Unit), "language", prefs.Language, "theme", prefs.Theme)
		return c.JSON(prefs)
	})

	v1.Get("/export", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="weather-lookup.json"`)
		return c.JSON(d.Store.Snapshot())
	})

	v1.Get("/translations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"languages": i18n.Languages(),
			"preferred": i18n.Match(c.Get(fiber.HeaderAcceptLanguage)),
		})
	})

	v1.Get("/translations/:lang", func(c *fiber.Ctx) error {
		lang := c.Params("lang")
		if lang == "auto" {
			lang = i18n.Match(c.Get(fiber.HeaderAcceptLanguage))
		}
		return c.JSON(i18n.Translate(lang))
	})

	v1.Get("/logs", func(c *fiber.Ctx) error {
		level, err := logger.ParseLevel(c.Query("level"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(d.Log.Entries(level))
	})

	v1.Get("/logs/export", func(c *fiber.Ctx) error {
		data, err := d.Log.Export()
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="logs.json"`)
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	v1.Patch("/logs", func(c *fiber.Ctx) error {
		var body logLevelBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		level, err := logger.ParseLevel(body.Level)
		if err != nil || body.Level == "" {
			return fiber.NewError(fiber.StatusBadRequest, "level must be one of debug, info, warn, error")
		}
		d.Log.SetLevel(level)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/logs", func(c *fiber.Ctx) error {
		d.Log.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	})
}

type locateResponse struct {
	Position *location.Position `json:"position,omitempty"`
	weather.LookupResult
}

// statusForKind maps a failed lookup to the status returned by endpoints that cannot fall back.
func statusForKind(kind weather.ErrorKind) int {
	switch kind {
	case weather.KindCityInvalid:
		return http.StatusBadRequest
	case weather.KindCityNotFound:
		return http.StatusNotFound
	case weather.KindAuth, weather.KindServer:
		return http.StatusBadGateway
	case weather.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
