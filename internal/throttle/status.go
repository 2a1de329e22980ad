package throttle

import (
	"errors"
	"net"
)

// StatusError carries an HTTP status from a provider so callers can
// distinguish rate limiting (429) and auth misconfiguration (401/403) from
// other failures.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Provider + ": unexpected status"
}

// IsTransientStatus reports whether an HTTP status code indicates a
// transient server-side issue.
func IsTransientStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// StatusOf extracts the HTTP status from an error chain, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsAuthFailure reports whether err is a 401/403 from a provider — a
// configuration error, not a transient outage.
func IsAuthFailure(err error) bool {
	code := StatusOf(err)
	return code == 401 || code == 403
}

// IsNetworkError reports whether err looks like a transport-level failure
// (timeout, refused connection, DNS).
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
