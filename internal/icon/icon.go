// Package icon maps WMO weather codes to display glyphs.
package icon

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/classy-weather/internal/observability"
)

// Code is a WMO weather interpretation code (0-99).
type Code int

// Glyph is the emoji shown for a weather condition.
type Glyph string

// Unknown is returned for codes outside every bucket.
const Unknown Glyph = "❔"

// ErrOverlappingBuckets is returned when a code appears in more than one bucket.
var ErrOverlappingBuckets = errors.New("overlapping icon buckets")

// Bucket groups the codes that share one glyph.
type Bucket struct {
	Name  string
	Codes []Code
	Glyph Glyph
}

// DefaultBuckets is the fixed partition of code space used by the UI.
var DefaultBuckets = []Bucket{
	{Name: "clear", Codes: []Code{0}, Glyph: "☀️"},
	{Name: "mostly clear", Codes: []Code{1}, Glyph: "🌤"},
	{Name: "partly cloudy", Codes: []Code{2}, Glyph: "⛅️"},
	{Name: "overcast", Codes: []Code{3}, Glyph: "☁️"},
	{Name: "fog", Codes: []Code{45, 48}, Glyph: "🌫"},
	{Name: "light rain", Codes: []Code{51, 56, 61, 66, 80}, Glyph: "🌦"},
	{Name: "rain", Codes: []Code{53, 55, 57, 63, 65, 67, 81, 82}, Glyph: "🌧"},
	{Name: "snow", Codes: []Code{71, 73, 75, 77, 85, 86}, Glyph: "🌨"},
	{Name: "thunderstorm", Codes: []Code{95}, Glyph: "🌩"},
	{Name: "thunderstorm with hail", Codes: []Code{96, 99}, Glyph: "⛈"},
}

type entry struct {
	glyph Glyph
	name  string
}

// Classifier is an immutable code -> glyph table. Safe for concurrent use.
type Classifier struct {
	table  map[Code]entry
	logger *zap.Logger
}

// NewClassifier flattens buckets into a lookup table. Returns ErrOverlappingBuckets
// if any code belongs to two buckets.
func NewClassifier(buckets []Bucket, logger *zap.Logger) (*Classifier, error) {
	table := make(map[Code]entry)
	for _, b := range buckets {
		for _, c := range b.Codes {
			if prev, ok := table[c]; ok {
				return nil, fmt.Errorf("%w: code %d in %q and %q", ErrOverlappingBuckets, c, prev.name, b.Name)
			}
			table[c] = entry{glyph: b.Glyph, name: b.Name}
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{table: table, logger: logger}, nil
}

// MustNewClassifier is NewClassifier for static bucket sets; it panics on overlap.
func MustNewClassifier(buckets []Bucket, logger *zap.Logger) *Classifier {
	c, err := NewClassifier(buckets, logger)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the glyph for code and whether the code is known.
func (c *Classifier) Lookup(code Code) (Glyph, bool) {
	e, ok := c.table[code]
	return e.glyph, ok
}

// Classify returns the glyph for code, or Unknown. Unknown codes are logged and
// counted since the upstream enumeration may grow.
func (c *Classifier) Classify(code Code) Glyph {
	if g, ok := c.Lookup(code); ok {
		return g
	}
	observability.WeatherCodeUnknownTotal.Inc()
	c.logger.Warn("unknown weather code", zap.Int("code", int(code)))
	return Unknown
}

// Describe returns the bucket name for code, or "unknown".
func (c *Classifier) Describe(code Code) string {
	if e, ok := c.table[code]; ok {
		return e.name
	}
	return "unknown"
}

// Len returns the number of codes the classifier knows.
func (c *Classifier) Len() int {
	return len(c.table)
}
