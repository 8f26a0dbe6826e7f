package spotify

import (
	"time"
)

// Profile represents the authenticated user's profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// TrackItem is a track as reported inside a play-history record.
type TrackItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	PreviewURL   string `json:"preview_url"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// PlayedItem is a single track-play event from the recently-played feed.
type PlayedItem struct {
	Track    TrackItem `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// historyPage is one page of the recently-played response.
type historyPage struct {
	Items []PlayedItem `json:"items"`
	Next  string       `json:"next"`
}

// TokenPair holds the credentials issued by the token endpoint.
//
// AccessToken is short-lived; RefreshToken is long-lived and may be
// rotated by the provider on refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
