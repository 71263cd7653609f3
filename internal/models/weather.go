package models

import "time"

// DateLayout is the calendar-date format used by the forecast service's daily arrays.
const DateLayout = "2006-01-02"

// MissingCode marks a day the forecast service sent without a weather code. It
// lies outside every WMO bucket, so it classifies as unknown.
const MissingCode = -1

// Place is a geocoded location: the first result the geocoding service returned
// for the user's free-text query.
type Place struct {
	Name        string  `json:"name"`
	CountryCode string  `json:"countryCode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

// Day is one entry of the daily forecast. Date is a calendar date at UTC midnight.
type Day struct {
	Date    time.Time `json:"date"`
	TempMax float64   `json:"tempMax"`
	TempMin float64   `json:"tempMin"`
	Code    int       `json:"weatherCode"`
}

// Forecast is the ordered daily forecast for one place, as cached.
type Forecast struct {
	Days      []Day     `json:"days"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}
