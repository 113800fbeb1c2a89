package weather

import (
	"context"
	"errors"
	"net"
	"net/url"
)

var (
	// ErrNotFound indicates the provider answered but could not resolve the location.
	ErrNotFound = errors.New("weather: location not found")
	// ErrProvider indicates a provider-side or protocol failure.
	ErrProvider = errors.New("weather: provider failure")
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("weather: request timed out")
)

// ErrCode maps a classified weather error to a stable code for logs.
func ErrCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	default:
		return "PROVIDER_ERROR"
	}
}

// isTimeout reports whether err is a deadline or network timeout condition.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}
