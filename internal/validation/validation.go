package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the shortest location worth geocoding.
const DefaultMinLength = 2

// ErrLocationTooShort is returned when the trimmed location is below the minimum.
// Empty input is too short.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ValidateLocation trims the input and enforces length bounds (minLen, maxLen in runes).
// It returns the trimmed string. A non-positive bound disables that check.
// Characters are not restricted; place names carry apostrophes, dots and accents.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	n := utf8.RuneCountInString(s)
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	return s, nil
}

// IsTooShort reports whether err means the location should not be looked up at all.
func IsTooShort(err error) bool {
	return errors.Is(err, ErrLocationTooShort)
}
