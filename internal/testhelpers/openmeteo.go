// Package testhelpers provides an in-process fake of the Open-Meteo geocoding and
// forecast APIs for tests that exercise the real HTTP client.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/kjstillabower/classy-weather/internal/models"
)

// OpenMeteo serves /v1/search and /v1/forecast from registered fixtures.
type OpenMeteo struct {
	server *httptest.Server

	mu             sync.Mutex
	places         map[string]models.Place
	days           map[string][]models.Day
	forecastStatus int
	geocodeCalls   int
	forecastCalls  int
	units          []string
}

// NewOpenMeteo starts the fake and closes it when t finishes.
func NewOpenMeteo(t *testing.T) *OpenMeteo {
	t.Helper()
	f := &OpenMeteo{
		places: make(map[string]models.Place),
		days:   make(map[string][]models.Day),
	}
	router := mux.NewRouter()
	router.HandleFunc("/v1/search", f.search).Methods(http.MethodGet)
	router.HandleFunc("/v1/forecast", f.forecast).Methods(http.MethodGet)
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

// GeocodingURL is the fake's search endpoint.
func (f *OpenMeteo) GeocodingURL() string { return f.server.URL + "/v1/search" }

// ForecastURL is the fake's forecast endpoint.
func (f *OpenMeteo) ForecastURL() string { return f.server.URL + "/v1/forecast" }

// AddPlace registers p under its name (case-insensitive) with the days its forecast returns.
func (f *OpenMeteo) AddPlace(p models.Place, days []models.Day) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places[strings.ToLower(p.Name)] = p
	f.days[coordKey(p.Latitude, p.Longitude)] = days
}

// FailForecasts makes the forecast endpoint answer with status. Zero restores normal answers.
func (f *OpenMeteo) FailForecasts(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastStatus = status
}

// Calls returns how many geocoding and forecast requests were served.
func (f *OpenMeteo) Calls() (geocode, forecast int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geocodeCalls, f.forecastCalls
}

// Units returns the temperature_unit of every forecast request, in order.
func (f *OpenMeteo) Units() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.units...)
}

func (f *OpenMeteo) search(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.geocodeCalls++
	p, ok := f.places[strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = w.Write([]byte(`{"generationtime_ms":0.5}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"results": []map[string]interface{}{{
			"name":         p.Name,
			"latitude":     p.Latitude,
			"longitude":    p.Longitude,
			"timezone":     p.Timezone,
			"country_code": p.CountryCode,
		}},
	})
}

func (f *OpenMeteo) forecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.forecastCalls++
	f.units = append(f.units, q.Get("temperature_unit"))
	status := f.forecastStatus
	lat, _ := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, _ := strconv.ParseFloat(q.Get("longitude"), 64)
	days, ok := f.days[coordKey(lat, lon)]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":true,"reason":"simulated failure"}`))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"unknown coordinates"}`))
		return
	}

	daily := struct {
		Time        []string  `json:"time"`
		WeatherCode []int     `json:"weathercode"`
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
	}{}
	for _, d := range days {
		daily.Time = append(daily.Time, d.Date.Format(models.DateLayout))
		daily.WeatherCode = append(daily.WeatherCode, d.Code)
		daily.TempMax = append(daily.TempMax, d.TempMax)
		daily.TempMin = append(daily.TempMin, d.TempMin)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"daily": daily})
}

func coordKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}

// Week returns seven consecutive days from start cycling through codes.
func Week(start time.Time, codes ...int) []models.Day {
	if len(codes) == 0 {
		codes = []int{0}
	}
	days := make([]models.Day, 7)
	for i := range days {
		days[i] = models.Day{
			Date:    start.AddDate(0, 0, i),
			TempMin: 40 + float64(i) + 0.4,
			TempMax: 60 + float64(i) + 0.4,
			Code:    codes[i%len(codes)],
		}
	}
	return days
}
