// Package currency maps ISO 4217 alpha codes to the numeric codes used by
// Redsys-style virtual POS gateways.
package currency

import (
	"fmt"
	"strings"
)

// UnknownError reports a currency code that is not part of the supported table.
type UnknownError struct {
	Code string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Code)
}

// numeric codes keyed by alpha code. Process-wide constant, never mutated.
var numericByAlpha = map[string]string{
	"EUR": "978",
	"USD": "840",
	"GBP": "426",
	"JPY": "392",
	"CNY": "156",
}

var alphaByNumeric = func() map[string]string {
	m := make(map[string]string, len(numericByAlpha))
	for alpha, numeric := range numericByAlpha {
		m[numeric] = alpha
	}
	return m
}()

// Numeric resolves a case-insensitive alpha code ("EUR") to its numeric code ("978").
func Numeric(alpha string) (string, error) {
	code, ok := numericByAlpha[strings.ToUpper(strings.TrimSpace(alpha))]
	if !ok {
		return "", &UnknownError{Code: alpha}
	}
	return code, nil
}

// Alpha resolves a numeric code ("978") back to its alpha code ("EUR").
func Alpha(numeric string) (string, error) {
	alpha, ok := alphaByNumeric[strings.TrimSpace(numeric)]
	if !ok {
		return "", &UnknownError{Code: numeric}
	}
	return alpha, nil
}

// IsNumeric reports whether the value already is one of the supported numeric codes.
func IsNumeric(code string) bool {
	_, ok := alphaByNumeric[strings.TrimSpace(code)]
	return ok
}
