package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies lookup failures. The values double as i18n message keys.
type ErrorKind string

const (
	KindCityInvalid  ErrorKind = "CITY_INVALID"
	KindCityNotFound ErrorKind = "CITY_NOT_FOUND"
	KindAuth         ErrorKind = "AUTH"
	KindServer       ErrorKind = "SERVER"
	KindNetwork      ErrorKind = "NETWORK"
	KindNotFoundKey  ErrorKind = "NOT_FOUND_KEY"
	KindGeneral      ErrorKind = "GENERAL"
)

// Sentinels for errors.Is against a LookupError of the same kind.
var (
	ErrCityInvalid  = &LookupError{Kind: KindCityInvalid}
	ErrCityNotFound = &LookupError{Kind: KindCityNotFound}
	ErrAuth         = &LookupError{Kind: KindAuth}
	ErrServer       = &LookupError{Kind: KindServer}
	ErrNetwork      = &LookupError{Kind: KindNetwork}
	ErrGeneral      = &LookupError{Kind: KindGeneral}
)

// LookupError is a classified provider or validation failure.
type LookupError struct {
	Kind   ErrorKind
	Status int   // HTTP status, 0 when there was no response
	Err    error // underlying cause, may be nil
}

func (e *LookupError) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is matches any LookupError with the same kind.
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*LookupError)
	return ok && t.Kind == e.Kind
}

// NewLookupError builds a LookupError of kind wrapping err.
func NewLookupError(kind ErrorKind, err error) *LookupError {
	return &LookupError{Kind: kind, Err: err}
}

// KindForStatus maps a provider HTTP status to an ErrorKind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindCityNotFound
	case status == http.StatusUnauthorized:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindGeneral
	}
}

// KindOf extracts the ErrorKind of err, KindGeneral when it is unclassified.
func KindOf(err error) ErrorKind {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindGeneral
}
