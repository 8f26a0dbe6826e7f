package spotify

import (
	"fmt"
	"net/http"
)

// Config holds client configuration.
type Config struct {
	ClientID    string       // Required: Spotify application client ID (public PKCE client)
	RedirectURI string       // Required for the authorization flow
	HTTPClient  *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	APIURL      string       // Optional: Web API base URL (defaults to Spotify, used for testing)
	AccountsURL string       // Optional: accounts base URL for token operations (used for testing)
	Logger      Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Spotify Web API operations.
type Client struct {
	clientID    string
	redirectURI string
	httpClient  *http.Client
	apiURL      string
	accountsURL string
	logger      Logger
}

const (
	// DefaultAPIURL is the default Spotify Web API endpoint.
	DefaultAPIURL = "https://api.spotify.com/v1"

	// DefaultAccountsURL is the default Spotify accounts endpoint
	// used for authorization and token exchange.
	DefaultAccountsURL = "https://accounts.spotify.com"

	// MaxPageSize is the largest page the recently-played endpoint
	// will return regardless of the requested limit.
	MaxPageSize = 50

	// Scopes is the space-separated scope string requested during
	// authorization.
	Scopes = "user-read-email user-read-private user-read-recently-played"
)

// NewClient creates a new Spotify Web API client.
//
// Returns an error if required configuration (ClientID) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("spotify: ClientID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	accountsURL := cfg.AccountsURL
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}

	return &Client{
		clientID:    cfg.ClientID,
		redirectURI: cfg.RedirectURI,
		httpClient:  httpClient,
		apiURL:      apiURL,
		accountsURL: accountsURL,
		logger:      cfg.Logger,
	}, nil
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
