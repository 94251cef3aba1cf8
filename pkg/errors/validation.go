package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// ValidateColumnName validates a table column name.
//
// The rules are deliberately narrow:
//   - No empty names
//   - No control characters
//   - Maximum length of 256 characters
func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidColumn, "column name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidColumn, "column name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidColumn, "column name contains control characters")
		}
	}

	return nil
}

// ValidateFinite rejects NaN and infinite values.
// The name is used in the error message (e.g. "latitude").
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be a finite number, got %v", name, v)
	}
	return nil
}

// crsRegex matches "EPSG:<code>" authority strings (case-insensitive).
var crsRegex = regexp.MustCompile(`(?i)^epsg:[0-9]{4,6}$`)

// ValidateCRS validates a coordinate reference system identifier.
// Accepted forms are "EPSG:<code>" and PROJ.4 strings starting with "+proj=".
func ValidateCRS(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return New(ErrCodeInvalidCRS, "CRS cannot be empty")
	}
	if crsRegex.MatchString(s) || strings.HasPrefix(s, "+proj=") {
		return nil
	}
	return New(ErrCodeInvalidCRS, "unrecognised CRS %q (want EPSG:<code> or +proj=...)", s)
}

// ValidateFormat checks that format is one of the allowed values.
func ValidateFormat(format string, allowed map[string]bool) error {
	if !allowed[format] {
		return New(ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	return nil
}
