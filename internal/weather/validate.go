package weather

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-lookup/internal/common"
)

// cityNamePattern accepts letters (Romanian diacritics included), spaces and hyphens.
var cityNamePattern = regexp.MustCompile(`^[a-zA-ZăâîșțşţĂÂÎȘȚŞŢ\s-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("cityname", validCityName); err != nil {
		panic(err)
	}
	return v
}

// Validator returns the shared validator with the "cityname" tag registered.
func Validator() *validator.Validate {
	return validate
}

func validCityName(fl validator.FieldLevel) bool {
	return IsValidCity(fl.Field().String())
}

// IsValidCity reports whether name looks like a city name: at least two characters, made of
// letters, spaces and hyphens once diacritics are stripped.
func IsValidCity(name string) bool {
	stripped := strings.TrimSpace(common.StripDiacritics(name))
	if len([]rune(stripped)) < 2 {
		return false
	}
	return cityNamePattern.MatchString(stripped)
}

// ValidateCity checks name and returns a CityInvalid LookupError when it is rejected.
func ValidateCity(name string) error {
	if err := validate.Var(name, "required,cityname"); err != nil {
		return NewLookupError(KindCityInvalid, err)
	}
	return nil
}
