package common

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CoordinatePrecision is the number of decimals coordinates are compared at.
const CoordinatePrecision = 4

var coordinateScale = math.Pow(10, CoordinatePrecision)

// StripDiacritics decomposes s and drops combining marks, so "Brașov" becomes "Brasov".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName folds a city name into its lookup key: trimmed, diacritic-free, lower case,
// inner whitespace collapsed.
func NormalizeName(name string) string {
	folded := strings.ToLower(StripDiacritics(name))
	return strings.Join(strings.Fields(folded), " ")
}

// ScaleCoordinate rounds v to CoordinatePrecision decimals and returns it as an integer
// so rounded values compare exactly.
func ScaleCoordinate(v float64) int64 {
	return int64(math.Round(v * coordinateScale))
}

// RoundCoordinate rounds v to CoordinatePrecision decimals.
func RoundCoordinate(v float64) float64 {
	return float64(ScaleCoordinate(v)) / coordinateScale
}
