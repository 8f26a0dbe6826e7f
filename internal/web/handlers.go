package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/internal/tracks"
	"github.com/mbetts/melodiary/pkg/spotify"
)

// historyLimit is how many play-history items the API endpoints pull.
const historyLimit = 50

// trackCount is how many tracks each day's card shows.
const trackCount = 3

// JournalService produces the daily entry for a track set.
type JournalService interface {
	TodayISO() string
	GetOrGenerate(ctx context.Context, dateISO string, top []tracks.Track) (string, error)
}

// Handlers contains the HTTP handlers.
type Handlers struct {
	client  *spotify.Client
	store   *store.Store
	journal JournalService
	logger  zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *spotify.Client, st *store.Store, journal JournalService, logger zerolog.Logger) *Handlers {
	return &Handlers{
		client:  client,
		store:   st,
		journal: journal,
		logger:  logger,
	}
}

// Login initiates the authorization flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	verifier, err := spotify.NewVerifier()
	if err != nil {
		http.Error(w, "Failed to generate verifier", http.StatusInternalServerError)
		return
	}
	if err := h.store.Set(r.Context(), store.KeyPKCEVerifier, verifier); err != nil {
		http.Error(w, "Failed to persist verifier", http.StatusInternalServerError)
		return
	}

	// State cookie for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	url := h.client.AuthorizeURL(spotify.ChallengeS256(verifier)) + "&state=" + state
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback completes the authorization flow (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}
	if state := r.URL.Query().Get("state"); state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	code, err := spotify.CallbackCode(r.URL.RawQuery)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	verifier, err := h.store.Get(r.Context(), store.KeyPKCEVerifier)
	if err != nil {
		http.Error(w, "PKCE verifier not found. Please try logging in again.", http.StatusBadRequest)
		return
	}

	pair, err := h.client.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token exchange failed")
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	if err := h.store.SetTokens(r.Context(), pair.AccessToken, pair.RefreshToken); err != nil {
		http.Error(w, "Failed to persist tokens", http.StatusInternalServerError)
		return
	}
	// The verifier is single use.
	_ = h.store.Delete(r.Context(), store.KeyPKCEVerifier)

	h.logger.Info().Msg("Login complete")
	http.Redirect(w, r, "/api/status", http.StatusSeeOther)
}

// Logout clears the stored credentials (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAuth(r.Context()); err != nil {
		http.Error(w, "Failed to clear credentials", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

type statusResponse struct {
	Connected   bool   `json:"connected"`
	DisplayName string `json:"displayName,omitempty"`
}

// Status reports whether a user is connected (GET /api/status).
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	err := h.withAccessToken(r.Context(), func(token string) error {
		profile, err := h.client.FetchProfile(r.Context(), token)
		if err != nil {
			return err
		}
		resp.Connected = true
		resp.DisplayName = profile.DisplayName
		return nil
	})
	if err != nil {
		if isDisconnected(err) {
			writeJSON(w, http.StatusOK, statusResponse{Connected: false})
			return
		}
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type todayResponse struct {
	Date    string         `json:"date"`
	Tracks  []tracks.Track `json:"tracks"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Today returns the current track set and journal entry (GET /api/today).
func (h *Handlers) Today(w http.ResponseWriter, r *http.Request) {
	var top []tracks.Track
	err := h.withAccessToken(r.Context(), func(token string) error {
		items, err := h.client.FetchRecentlyPlayed(r.Context(), token, historyLimit)
		if err != nil {
			return err
		}
		top = tracks.MostRecentUnique(items, trackCount)
		return nil
	})
	if err != nil {
		if isDisconnected(err) {
			http.Error(w, "Not logged in", http.StatusUnauthorized)
			return
		}
		h.serverError(w, err)
		return
	}

	resp := todayResponse{Date: h.journal.TodayISO(), Tracks: top}
	if len(top) > 0 {
		// Generation failures still carry a user-visible fallback; the
		// error text rides along so clients can display it.
		msg, err := h.journal.GetOrGenerate(r.Context(), resp.Date, top)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Journal generation failed")
			resp.Error = err.Error()
		}
		resp.Message = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// History returns the per-day top tracks (GET /api/history).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	var days map[string][]tracks.Track
	err := h.withAccessToken(r.Context(), func(token string) error {
		items, err := h.client.FetchRecentlyPlayed(r.Context(), token, historyLimit)
		if err != nil {
			return err
		}
		days = tracks.TopByLocalDay(items, trackCount, nil)
		return nil
	})
	if err != nil {
		if isDisconnected(err) {
			http.Error(w, "Not logged in", http.StatusUnauthorized)
			return
		}
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

type gradientPayload struct {
	Gradient string `json:"gradient"`
}

// GetGradient returns the saved background gradient (GET /api/gradient).
func (h *Handlers) GetGradient(w http.ResponseWriter, r *http.Request) {
	gradient, err := h.store.Gradient(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gradientPayload{Gradient: gradient})
}

// PutGradient saves the background gradient (PUT /api/gradient).
func (h *Handlers) PutGradient(w http.ResponseWriter, r *http.Request) {
	var payload gradientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.store.SetGradient(r.Context(), payload.Gradient); err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// withAccessToken runs fn with the stored access token, refreshing and
// retrying exactly once when the token has expired. A failed refresh
// clears the stored credentials.
func (h *Handlers) withAccessToken(ctx context.Context, fn func(accessToken string) error) error {
	accessToken, refreshToken, err := h.store.Tokens(ctx)
	if err != nil {
		return err
	}

	err = fn(accessToken)
	if !errors.Is(err, spotify.ErrUnauthorized) {
		return err
	}

	pair, err := h.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Token refresh failed, clearing credentials")
		_ = h.store.ClearAuth(ctx)
		return spotify.ErrRefreshFailed
	}
	if err := h.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}
	return fn(pair.AccessToken)
}

// isDisconnected reports whether an error means "no usable session".
func isDisconnected(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, spotify.ErrRefreshFailed) ||
		errors.Is(err, spotify.ErrUnauthorized)
}

// serverError logs and reports an internal failure.
func (h *Handlers) serverError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("Request failed")
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

// writeJSON encodes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// generateOAuthState returns a random state value.
func generateOAuthState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
