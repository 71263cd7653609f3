package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/classy-weather/internal/models"
	"github.com/kjstillabower/classy-weather/internal/observability"
	"github.com/kjstillabower/classy-weather/internal/traffic"
)

// Geocoder resolves free text to a place.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (models.Place, error)
}

// Forecaster fetches the daily forecast for a resolved place.
type Forecaster interface {
	Forecast(ctx context.Context, place models.Place, unit TemperatureUnit) (models.Forecast, error)
}

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalidResponse  = errors.New("invalid response")
)

// TemperatureUnit is the forecast service's temperature_unit parameter.
type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "fahrenheit"
	Celsius    TemperatureUnit = "celsius"
)

// ParseTemperatureUnit accepts "fahrenheit"/"f" and "celsius"/"c", case-insensitive.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fahrenheit", "f":
		return Fahrenheit, nil
	case "celsius", "c":
		return Celsius, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	endpointGeocoding = "geocoding"
	endpointForecast  = "forecast"

	dailyFields = "weathercode,temperature_2m_max,temperature_2m_min"
)

// OpenMeteoClient talks to the Open-Meteo geocoding and forecast APIs.
// It implements both Geocoder and Forecaster.
type OpenMeteoClient struct {
	geocodingURL string
	forecastURL  string
	timeout      time.Duration
	client       *http.Client
}

// NewOpenMeteoClient returns a client. Empty URLs fall back to the public endpoints.
func NewOpenMeteoClient(geocodingURL, forecastURL string, timeout time.Duration) (*OpenMeteoClient, error) {
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	for _, raw := range []string{geocodingURL, forecastURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", raw, err)
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}

	return &OpenMeteoClient{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		timeout:      timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type geocodingResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Timezone    string  `json:"timezone"`
		CountryCode string  `json:"country_code"`
	} `json:"results"`
}

type forecastResponse struct {
	Daily *struct {
		Time        []string   `json:"time"`
		WeatherCode []*int     `json:"weathercode"`
		TempMax     []*float64 `json:"temperature_2m_max"`
		TempMin     []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// Geocode resolves location to the provider's top-ranked result. The raw string is
// sent as typed. A response without results yields ErrLocationNotFound.
func (c *OpenMeteoClient) Geocode(ctx context.Context, location string) (models.Place, error) {
	params := url.Values{}
	params.Set("name", location)

	var apiResp geocodingResponse
	if err := c.call(ctx, endpointGeocoding, c.geocodingURL, params, &apiResp); err != nil {
		return models.Place{}, err
	}
	if len(apiResp.Results) == 0 {
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpointGeocoding, string(ErrorCategoryLocationNotFound)).Inc()
		return models.Place{}, ErrLocationNotFound
	}

	first := apiResp.Results[0]
	return models.Place{
		Name:        first.Name,
		CountryCode: first.CountryCode,
		Latitude:    first.Latitude,
		Longitude:   first.Longitude,
		Timezone:    first.Timezone,
	}, nil
}

// Forecast fetches the daily weather code and min/max temperatures for place and
// zips the index-aligned arrays into days ordered by date.
func (c *OpenMeteoClient) Forecast(ctx context.Context, place models.Place, unit TemperatureUnit) (models.Forecast, error) {
	if unit == "" {
		unit = Fahrenheit
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(place.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(place.Longitude, 'f', -1, 64))
	tz := place.Timezone
	if tz == "" {
		tz = "auto"
	}
	params.Set("timezone", tz)
	params.Set("temperature_unit", string(unit))
	params.Set("daily", dailyFields)

	var apiResp forecastResponse
	if err := c.call(ctx, endpointForecast, c.forecastURL, params, &apiResp); err != nil {
		return models.Forecast{}, err
	}

	days, err := zipDaily(apiResp)
	if err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpointForecast, string(ErrorCategoryParsing)).Inc()
		traffic.RecordUpstreamError()
		return models.Forecast{}, err
	}
	return models.Forecast{Days: days, Unit: string(unit), Timestamp: time.Now()}, nil
}

func zipDaily(apiResp forecastResponse) ([]models.Day, error) {
	d := apiResp.Daily
	if d == nil {
		return nil, fmt.Errorf("%w: missing daily block", ErrInvalidResponse)
	}
	n := len(d.Time)
	if len(d.WeatherCode) != n || len(d.TempMax) != n || len(d.TempMin) != n {
		return nil, fmt.Errorf("%w: daily arrays misaligned (time=%d weathercode=%d max=%d min=%d)",
			ErrInvalidResponse, n, len(d.WeatherCode), len(d.TempMax), len(d.TempMin))
	}

	days := make([]models.Day, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse(models.DateLayout, d.Time[i])
		if err != nil {
			return nil, fmt.Errorf("%w: parse date %q: %v", ErrInvalidResponse, d.Time[i], err)
		}
		// Open-Meteo sends null for days it has no data for.
		if d.TempMax[i] == nil || d.TempMin[i] == nil {
			return nil, fmt.Errorf("%w: missing temperature for %s", ErrInvalidResponse, d.Time[i])
		}
		code := models.MissingCode
		if d.WeatherCode[i] != nil {
			code = *d.WeatherCode[i]
		}
		days = append(days, models.Day{
			Date:    date,
			TempMax: *d.TempMax[i],
			TempMin: *d.TempMin[i],
			Code:    code,
		})
	}
	slices.SortStableFunc(days, func(a, b models.Day) int {
		return a.Date.Compare(b.Date)
	})
	return days, nil
}

// call performs one GET against endpoint and decodes the JSON body into out.
func (c *OpenMeteoClient) call(ctx context.Context, endpoint, rawURL string, params url.Values, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := buildRequest(reqCtx, rawURL, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)

		var wrapped error
		var netErr net.Error
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			wrapped = fmt.Errorf("request canceled: %w", err)
		case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
			wrapped = fmt.Errorf("request timeout: %w", err)
		default:
			wrapped = fmt.Errorf("http request failed: %w", err)
		}
		category := CategorizeError(wrapped)
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(category)).Inc()
		if category != ErrorCategoryCanceled {
			traffic.RecordUpstreamError()
		}
		return wrapped
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
		traffic.RecordUpstreamError()
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		traffic.RecordUpstreamError()
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(endpoint, string(ErrorCategoryParsing)).Inc()
		traffic.RecordUpstreamError()
		return fmt.Errorf("%w: parse response: %v", ErrInvalidResponse, err)
	}
	traffic.RecordUpstreamSuccess()
	return nil
}

func buildRequest(ctx context.Context, rawURL string, params url.Values) (*http.Request, error) {
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// apiError is the error body Open-Meteo returns with 4xx responses.
type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Reason != "" {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUpstreamFailure, resp.StatusCode, apiErr.Reason)
	}
	return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
