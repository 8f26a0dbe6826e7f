package fortune

import "errors"

var (
	// ErrMissingAPIKey indicates no generation credential is configured.
	// Generation is not attempted.
	ErrMissingAPIKey = errors.New("fortune: api key not configured")

	// ErrUnauthorized indicates the credential was rejected.
	ErrUnauthorized = errors.New("fortune: api key rejected")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("fortune: rate limit exceeded")

	// ErrUnavailable indicates the provider is temporarily down.
	ErrUnavailable = errors.New("fortune: service unavailable")

	// ErrBadResponse indicates the response was missing expected fields.
	ErrBadResponse = errors.New("fortune: unexpected response format")

	// ErrNoMessage indicates no message could be extracted from the
	// model output by any strategy.
	ErrNoMessage = errors.New("fortune: no message found in response")
)
