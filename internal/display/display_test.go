package display

import (
	"testing"
	"time"
)

func TestDayName(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-01-01", "Mon"},
		{"2024-01-06", "Sat"},
		{"2024-02-29", "Thu"},
		{"2023-12-31", "Sun"},
	}
	for _, tt := range tests {
		d, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatalf("time.Parse(%q): %v", tt.date, err)
		}
		if got := DayName(d); got != tt.want {
			t.Errorf("DayName(%s) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

// TestDayName_IgnoresLocation verifies a date is not shifted into the previous day
// when the time carries a zone west of UTC.
func TestDayName_IgnoresLocation(t *testing.T) {
	la := time.FixedZone("PST", -8*3600)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, la)
	if got := DayName(d); got != "Mon" {
		t.Errorf("DayName() = %q, want Mon", got)
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FR", "🇫🇷"},
		{"us", "🇺🇸"},
		{" de ", "🇩🇪"},
		{"", ""},
		{"F", ""},
		{"FRA", ""},
		{"1A", ""},
		{"É1", ""},
	}
	for _, tt := range tests {
		if got := Flag(tt.in); got != tt.want {
			t.Errorf("Flag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceName(t *testing.T) {
	if got := PlaceName("Paris", "FR"); got != "Paris 🇫🇷" {
		t.Errorf("PlaceName() = %q, want %q", got, "Paris 🇫🇷")
	}
	if got := PlaceName("Nowhere", ""); got != "Nowhere" {
		t.Errorf("PlaceName() = %q, want %q", got, "Nowhere")
	}
}

func TestTempRange(t *testing.T) {
	tests := []struct {
		min, max float64
		want     string
	}{
		{41.7, 55.2, "41° — 56°"},
		{-3.2, -0.5, "-4° — 0°"},
		{10, 20, "10° — 20°"},
	}
	for _, tt := range tests {
		if got := TempRange(tt.min, tt.max); got != tt.want {
			t.Errorf("TempRange(%v, %v) = %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
}
