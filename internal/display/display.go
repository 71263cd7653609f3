// Package display formats forecast values for the day cards.
package display

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// regionalIndicatorOffset turns 'A'..'Z' into U+1F1E6..U+1F1FF.
const regionalIndicatorOffset = 0x1F1E6 - 'A'

// DayName returns the short English weekday ("Mon", "Tue", ...) of a calendar date.
// The date's own fields are used; no timezone conversion happens.
func DayName(date time.Time) string {
	return date.Weekday().String()[:3]
}

// Flag converts an ISO 3166-1 alpha-2 country code into its flag emoji.
// Returns "" for anything that is not two ASCII letters.
func Flag(countryCode string) string {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if len(cc) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range cc {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(r + regionalIndicatorOffset)
	}
	return b.String()
}

// PlaceName is the forecast heading: the place name followed by its flag.
func PlaceName(name, countryCode string) string {
	flag := Flag(countryCode)
	if flag == "" {
		return name
	}
	return name + " " + flag
}

// TempRange renders "min° — max°" with min rounded down and max rounded up.
func TempRange(min, max float64) string {
	return fmt.Sprintf("%d° — %d°", int(math.Floor(min)), int(math.Ceil(max)))
}
