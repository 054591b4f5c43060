// Package i18n holds the static translation tables for the supported languages.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported language codes.
const (
	Romanian = "ro"
	English  = "en"

	DefaultLanguage = English
)

// Message keys shared with the weather error taxonomy.
const (
	MsgCityInvalid    = "CITY_INVALID"
	MsgCityNotFound   = "CITY_NOT_FOUND"
	MsgNetwork        = "NETWORK"
	MsgAuth           = "AUTH"
	MsgServer         = "SERVER"
	MsgGeneral        = "GENERAL"
	MsgNotFoundKey    = "NOT_FOUND_KEY"
	MsgDisplayWeather = "DISPLAY_WEATHER"
)

// SelectorLabels are the labels of the settings selectors.
type SelectorLabels struct {
	Language    string `json:"language"`
	Temperature string `json:"temperature"`
	Theme       string `json:"theme"`
}

// Table is the full set of localized strings for one language.
type Table struct {
	Language         string            `json:"language"`
	InputPlaceholder string            `json:"inputPlaceholder"`
	Selector         SelectorLabels    `json:"selector"`
	SearchButton     string            `json:"searchButton"`
	Humidity         string            `json:"humidity"`
	Pressure         string            `json:"pressure"`
	Wind             string            `json:"wind"`
	Visibility       string            `json:"visibility"`
	Sunrise          string            `json:"sunrise"`
	Sunset           string            `json:"sunset"`
	Sources          map[string]string `json:"sources"`
	Errors           map[string]string `json:"errors"`
}

var tables = map[string]Table{
	Romanian: {
		Language:         Romanian,
		InputPlaceholder: "Introdu numele orașului",
		Selector: SelectorLabels{
			Language:    "Selectează limbă",
			Temperature: "Selectează unitate temperatură",
			Theme:       "Selectează temă",
		},
		SearchButton: "Caută",
		Humidity:     "Umiditate",
		Pressure:     "Presiune",
		Wind:         "Vânt",
		Visibility:   "Vizibilitate",
		Sunrise:      "Răsărit",
		Sunset:       "Apus",
		Sources: map[string]string{
			"default": "Oraș implicit",
			"ip":      "Locație după IP",
			"gps":     "Locație GPS",
			"api":     "Căutare",
		},
		Errors: map[string]string{
			MsgCityInvalid:    "Orașul nu e valid... Te rog introdu un oraș valid.",
			MsgCityNotFound:   "Orașul nu a fost găsit... Reîncearcă să accesezi datele pentru un alt oraș.",
			MsgNetwork:        "A apărut o eroare de rețea... Reîncearcă mai târziu.",
			MsgAuth:           "Autentificare nereușită... Te rog încearcă folosind alt token.",
			MsgServer:         "A apărut o eroare la server... Te rog încearcă mai târziu.",
			MsgGeneral:        "A apărut o eroare... Reîncearcă.",
			MsgNotFoundKey:    "Orașul nu a fost găsit în listă.",
			MsgDisplayWeather: "Din cauza acestei erori un oraș implicit va fi afișat.",
		},
	},
	English: {
		Language:         English,
		InputPlaceholder: "Enter city name",
		Selector: SelectorLabels{
			Language:    "Select language",
			Temperature: "Select temperature unit",
			Theme:       "Select theme",
		},
		SearchButton: "Search",
		Humidity:     "Humidity",
		Pressure:     "Pressure",
		Wind:         "Wind",
		Visibility:   "Visibility",
		Sunrise:      "Sunrise",
		Sunset:       "Sunset",
		Sources: map[string]string{
			"default": "Default city",
			"ip":      "IP location",
			"gps":     "GPS location",
			"api":     "Search",
		},
		Errors: map[string]string{
			MsgCityInvalid:    "The city is invalid... Please enter a valid city.",
			MsgCityNotFound:   "The city wasn't found... Retry to access the data of another city.",
			MsgNetwork:        "Network error... Retry later.",
			MsgAuth:           "Authentication unsuccessful... Please try using another token.",
			MsgServer:         "A server error arose... Please try again later.",
			MsgGeneral:        "An error arose... Retry.",
			MsgNotFoundKey:    "The city is not in the list.",
			MsgDisplayWeather: "Due to an error a default city will be displayed.",
		},
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Romanian,
})

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := tables[lang]
	return ok
}

// Languages lists the supported language codes.
func Languages() []string {
	return []string{English, Romanian}
}

// Match picks the best supported language for an Accept-Language header or a bare tag
// such as "ro-RO". Unknown input yields DefaultLanguage.
func Match(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return DefaultLanguage
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, _ := matcher.Match(tags...)
	switch idx {
	case 1:
		return Romanian
	default:
		return English
	}
}

// Translate returns the table for lang, falling back to the closest supported language.
func Translate(lang string) Table {
	if t, ok := tables[lang]; ok {
		return t
	}
	return tables[Match(lang)]
}

// Message returns the localized message for key, or the generic error message when the key
// is unknown.
func Message(lang, key string) string {
	t := Translate(lang)
	if msg, ok := t.Errors[key]; ok {
		return msg
	}
	return t.Errors[MsgGeneral]
}

// SourceLabel returns the localized label of a record source.
func SourceLabel(lang, source string) string {
	t := Translate(lang)
	if label, ok := t.Sources[source]; ok {
		return label
	}
	return t.Sources["default"]
}
