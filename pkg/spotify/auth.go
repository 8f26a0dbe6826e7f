package spotify

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// verifierAlphabet is the set of unreserved characters permitted in a
// PKCE code verifier (RFC 7636 section 4.1).
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// verifierLength is the number of characters in a generated verifier.
const verifierLength = 128

// NewVerifier generates a random PKCE code verifier.
//
// The verifier is 128 characters drawn from the unreserved alphabet.
// Store it until the authorization code comes back, then pass it to
// Exchange.
func NewVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verifier: %w", err)
	}
	for i, b := range buf {
		buf[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}
	return string(buf), nil
}

// ChallengeS256 derives the S256 code challenge for a verifier.
//
// The challenge is the SHA-256 digest of the verifier, base64url
// encoded without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthorizeURL builds the authorization URL the user must visit to
// grant access.
//
// Example:
//
//	verifier, _ := spotify.NewVerifier()
//	fmt.Println("Visit:", client.AuthorizeURL(spotify.ChallengeS256(verifier)))
func (c *Client) AuthorizeURL(challenge string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", Scopes)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", challenge)
	return c.accountsURL + "/authorize?" + q.Encode()
}

// Exchange swaps an authorization code for an access and refresh token.
//
// The verifier must be the one whose challenge was sent in the
// authorization request.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code_verifier", verifier)

	c.logDebugf("spotify: exchanging authorization code")

	var pair TokenPair
	if err := c.postForm(ctx, c.accountsURL+"/api/token", form, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &pair, nil
}

// RefreshToken obtains a fresh access token using a refresh token.
//
// If the provider does not rotate the refresh token, the returned pair
// carries the old one so callers can always persist the result as-is.
// A rejected refresh token surfaces as ErrRefreshFailed.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	c.logDebugf("spotify: refreshing access token")

	var pair TokenPair
	if err := c.postForm(ctx, c.accountsURL+"/api/token", form, &pair); err != nil {
		if isStatusError(err) {
			return nil, ErrRefreshFailed
		}
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, ErrRefreshFailed
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return &pair, nil
}

// isStatusError reports whether err came from a non-2xx response, as
// opposed to a transport failure. Any such response from the token
// endpoint means the refresh grant was not honored.
func isStatusError(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// CallbackCode extracts the authorization code from a redirect URL
// query string, surfacing provider-reported errors.
func CallbackCode(rawQuery string) (string, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return "", fmt.Errorf("failed to parse callback query: %w", err)
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("callback missing authorization code")
	}
	return code, nil
}
