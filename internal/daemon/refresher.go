// Package daemon runs the periodic refresh loop that drives the
// presentation layer.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/internal/tracks"
	"github.com/mbetts/melodiary/pkg/spotify"
)

const (
	// DefaultInterval is the refresh cadence.
	DefaultInterval = 30 * time.Second

	// historyLimit is how many play-history items each cycle requests.
	historyLimit = 50

	// trackCount is how many unique tracks represent "right now".
	trackCount = 3
)

// ErrDisconnected is returned by Run when the refresh token was
// rejected and the session was torn down. The user must log in again.
var ErrDisconnected = errors.New("daemon: session disconnected, login required")

// Update is one refresh result delivered to subscribers.
type Update struct {
	Tracks     []tracks.Track // Up to three unique tracks, newest first
	NowPlaying *tracks.Track  // Tracks[0] when present
	Message    string         // Today's journal entry (or fallback text)
	Connected  bool           // False only on terminal disconnect
	Err        error          // Non-terminal cycle or generation error
}

// StreamingClient is the slice of the API client the refresher needs.
type StreamingClient interface {
	FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayedItem, error)
	RefreshToken(ctx context.Context, refreshToken string) (*spotify.TokenPair, error)
}

// JournalService produces the daily entry for a track set.
type JournalService interface {
	TodayISO() string
	GetOrGenerate(ctx context.Context, dateISO string, top []tracks.Track) (string, error)
}

// Config holds refresher configuration.
type Config struct {
	Interval       time.Duration // Defaults to DefaultInterval
	MinRevealDelay time.Duration // Defaults to 3s
	MaxRevealDelay time.Duration // Defaults to 5s
}

// Refresher polls play history and regenerates the journal entry.
type Refresher struct {
	client   StreamingClient
	store    *store.Store
	journal  JournalService
	interval time.Duration
	minDelay time.Duration
	maxDelay time.Duration
	logger   zerolog.Logger

	// inFlight skips a tick while the previous cycle is still running.
	inFlight sync.Mutex
}

// NewRefresher creates a refresher.
func NewRefresher(client StreamingClient, st *store.Store, journal JournalService, cfg Config, logger zerolog.Logger) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	minDelay, maxDelay := cfg.MinRevealDelay, cfg.MaxRevealDelay
	if minDelay == 0 && maxDelay == 0 {
		minDelay, maxDelay = 3*time.Second, 5*time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Refresher{
		client:   client,
		store:    st,
		journal:  journal,
		interval: interval,
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   logger.With().Str("component", "refresher").Logger(),
	}
}

// Run drives the refresh loop until the context is cancelled or the
// session disconnects. The first cycle starts immediately.
func (r *Refresher) Run(ctx context.Context, updates chan<- Update) error {
	r.logger.Info().Dur("interval", r.interval).Msg("Starting refresher")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.refresh(ctx, updates); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Refresher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.refresh(ctx, updates); err != nil {
				return err
			}
		}
	}
}

// refresh runs one cycle. A non-nil return is terminal for the loop.
func (r *Refresher) refresh(ctx context.Context, updates chan<- Update) error {
	if !r.inFlight.TryLock() {
		r.logger.Debug().Msg("Refresh already in flight, skipping tick")
		return nil
	}
	defer r.inFlight.Unlock()

	update, err := r.cycle(ctx, false)
	if err != nil {
		if errors.Is(err, ErrDisconnected) {
			r.send(ctx, updates, Update{Connected: false, Err: err})
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		r.logger.Warn().Err(err).Msg("Refresh cycle failed")
		r.send(ctx, updates, Update{Connected: true, Err: err})
		return nil
	}

	r.send(ctx, updates, update)
	return nil
}

// cycle fetches history, selects tracks, and regenerates the journal
// entry. retried guards the single refresh-and-retry on expiry.
func (r *Refresher) cycle(ctx context.Context, retried bool) (Update, error) {
	accessToken, refreshToken, err := r.store.Tokens(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Update{}, ErrDisconnected
		}
		return Update{}, err
	}

	items, err := r.client.FetchRecentlyPlayed(ctx, accessToken, historyLimit)
	if errors.Is(err, spotify.ErrUnauthorized) {
		if retried {
			return Update{}, r.disconnect(ctx)
		}
		r.logger.Info().Msg("Access token expired, refreshing")
		pair, refreshErr := r.client.RefreshToken(ctx, refreshToken)
		if refreshErr != nil {
			r.logger.Error().Err(refreshErr).Msg("Token refresh failed")
			return Update{}, r.disconnect(ctx)
		}
		if err := r.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			return Update{}, err
		}
		return r.cycle(ctx, true)
	}
	if err != nil {
		return Update{}, fmt.Errorf("failed to fetch play history: %w", err)
	}

	top := tracks.MostRecentUnique(items, trackCount)
	update := Update{Tracks: top, Connected: true}
	if len(top) == 0 {
		r.logger.Debug().Msg("No playable history")
		return update, nil
	}
	update.NowPlaying = &top[0]

	update.Message, update.Err = r.generateWithDelay(ctx, top)
	return update, nil
}

// generateWithDelay runs journal generation concurrently with the
// minimum reveal delay so fast responses still feel deliberate. A
// generation error is returned alongside the fallback message so
// subscribers can surface it; it never terminates the loop.
func (r *Refresher) generateWithDelay(ctx context.Context, top []tracks.Track) (string, error) {
	delay := r.minDelay
	if r.maxDelay > r.minDelay {
		delay += time.Duration(rand.Int63n(int64(r.maxDelay - r.minDelay)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	type result struct {
		message string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := r.journal.GetOrGenerate(ctx, r.journal.TodayISO(), top)
		done <- result{message: msg, err: err}
	}()

	res := <-done
	if res.err != nil {
		r.logger.Warn().Err(res.err).Msg("Journal generation failed")
	}

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return res.message, res.err
}

// disconnect tears the session down after a failed refresh.
func (r *Refresher) disconnect(ctx context.Context) error {
	if err := r.store.ClearAuth(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Failed to clear credentials")
	}
	return ErrDisconnected
}

// send delivers an update without blocking a cancelled loop.
func (r *Refresher) send(ctx context.Context, updates chan<- Update, update Update) {
	select {
	case updates <- update:
	case <-ctx.Done():
	}
}
