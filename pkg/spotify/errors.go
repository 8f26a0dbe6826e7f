package spotify

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnauthorized is returned when the access token is expired or
	// invalid (HTTP 401). The caller should refresh the token and
	// retry, or re-run the authorization flow.
	ErrUnauthorized = errors.New("spotify: unauthorized")

	// ErrRefreshFailed is returned when the refresh token itself is
	// rejected by the token endpoint. The only recovery is a full
	// re-authorization.
	ErrRefreshFailed = errors.New("spotify: token refresh failed")
)

// RequestError represents a non-2xx response from the Web API that is
// not an authorization failure.
type RequestError struct {
	Status int    // HTTP status code
	URL    string // Request URL that failed
}

// Error returns the error message.
func (e *RequestError) Error() string {
	return fmt.Sprintf("spotify: request failed with status %d: %s", e.Status, e.URL)
}

// Is checks if the target error is a request error with the same status.
//
// This allows errors.Is() to work with *RequestError types.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// statusError maps an HTTP status code to the package error taxonomy.
func statusError(status int, url string) error {
	if status == 401 {
		return ErrUnauthorized
	}
	return &RequestError{Status: status, URL: url}
}
