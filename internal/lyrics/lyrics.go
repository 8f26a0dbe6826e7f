// Package lyrics fetches song lyrics from a public lyrics API on a
// best-effort basis. A miss is normal and never fails the caller.
package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the lyrics.ovh API endpoint.
const DefaultBaseURL = "https://api.lyrics.ovh"

// fetchTimeout bounds a single lookup. Lookups are never retried.
const fetchTimeout = 10 * time.Second

// Fetcher looks up lyrics by title and artist.
type Fetcher struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewFetcher creates a lyrics fetcher. baseURL falls back to
// DefaultBaseURL when empty.
func NewFetcher(baseURL string, logger zerolog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(fetchTimeout)

	return &Fetcher{
		client: client,
		logger: logger.With().Str("component", "lyrics").Logger(),
	}
}

type lyricsResponse struct {
	Lyrics string `json:"lyrics"`
}

// Fetch returns the lyrics for a song, or "" when none could be found.
//
// Misses (404, timeout, network failure, empty lyrics field) return
// ("", nil) so callers can treat absent lyrics as data rather than
// failure. Other HTTP errors propagate.
func (f *Fetcher) Fetch(ctx context.Context, title, artist string) (string, error) {
	cleanTitle := CleanTitle(title)
	primary := PrimaryArtist(artist)

	var body lyricsResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/v1/%s/%s", url.PathEscape(primary), url.PathEscape(cleanTitle)))
	if err != nil {
		if isSwallowedNetworkError(err) {
			f.logger.Debug().Str("title", cleanTitle).Err(err).Msg("lyrics lookup failed, continuing without")
			return "", nil
		}
		return "", fmt.Errorf("lyrics request failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		f.logger.Debug().Str("title", cleanTitle).Msg("no lyrics found")
		return "", nil
	case resp.IsError():
		return "", fmt.Errorf("lyrics request failed: status %d", resp.StatusCode())
	}

	text := strings.TrimSpace(body.Lyrics)
	if text == "" {
		return "", nil
	}
	return text, nil
}

// isSwallowedNetworkError reports whether a transport-level error
// counts as a miss rather than a failure.
func isSwallowedNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// CleanTitle strips trailing qualifiers that hurt lookup hit rates,
// such as "(Remastered)" or " - Live at Wembley".
func CleanTitle(title string) string {
	if i := strings.Index(title, "("); i > 0 {
		title = title[:i]
	}
	if i := strings.Index(title, " - "); i > 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// PrimaryArtist returns the first artist from a comma-joined display
// string.
func PrimaryArtist(artists string) string {
	if i := strings.Index(artists, ","); i >= 0 {
		artists = artists[:i]
	}
	return strings.TrimSpace(artists)
}
