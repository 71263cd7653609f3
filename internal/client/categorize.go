package client

import (
	"context"
	"errors"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

// Error category constants used as metric labels (weatherApiErrorsTotal).
const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryCanceled         ErrorCategory = "canceled"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream         ErrorCategory = "upstream_error"
	ErrorCategoryParsing          ErrorCategory = "parsing"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCategoryCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrLocationNotFound):
		return ErrorCategoryLocationNotFound
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream
	case errors.Is(err, ErrInvalidResponse):
		return ErrorCategoryParsing
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "no such host") || strings.Contains(errStr, "http request failed") {
		return ErrorCategoryNetwork
	}
	if strings.Contains(errStr, "parse") || strings.Contains(errStr, "unmarshal") {
		return ErrorCategoryParsing
	}
	return ErrorCategoryUnknown
}

// Reason returns the human-readable text shown to the user for a failed fetch.
func Reason(err error) string {
	switch CategorizeError(err) {
	case ErrorCategoryLocationNotFound:
		return "location not found"
	case ErrorCategoryTimeout:
		return "request timed out"
	case ErrorCategoryRateLimited:
		return "weather service is busy, try again shortly"
	case ErrorCategoryUpstream:
		return "weather service unavailable"
	case ErrorCategoryParsing:
		return "invalid response from weather service"
	case ErrorCategoryNetwork:
		return "could not reach weather service"
	case ErrorCategoryCanceled:
		return "request canceled"
	}
	return "could not load weather"
}
