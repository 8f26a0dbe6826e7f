package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbetts/melodiary/internal/fortune"
	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/internal/tracks"
	"github.com/mbetts/melodiary/pkg/spotify"
)

type fakeStreaming struct {
	items        []spotify.PlayedItem
	fetchErrs    []error // Consumed per call; nil once exhausted
	fetchCalls   int
	refreshPair  *spotify.TokenPair
	refreshErr   error
	refreshCalls int
}

func (f *fakeStreaming) FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayedItem, error) {
	f.fetchCalls++
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.items, nil
}

func (f *fakeStreaming) RefreshToken(ctx context.Context, refreshToken string) (*spotify.TokenPair, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

type fakeJournal struct {
	message string
	err     error
	calls   int
}

func (f *fakeJournal) TodayISO() string { return "2025-06-01" }

func (f *fakeJournal) GetOrGenerate(ctx context.Context, dateISO string, top []tracks.Track) (string, error) {
	f.calls++
	if f.err != nil {
		return "Unable to generate fortune message.", f.err
	}
	return f.message, nil
}

func playedItem(id, name string, playedAt time.Time) spotify.PlayedItem {
	var item spotify.PlayedItem
	item.Track.ID = id
	item.Track.Name = name
	item.PlayedAt = playedAt
	return item
}

func testHistory() []spotify.PlayedItem {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []spotify.PlayedItem{
		playedItem("a", "Song One", t0),
		playedItem("b", "Song Two", t0.Add(-time.Minute)),
		playedItem("a", "Song One", t0.Add(-2*time.Minute)),
		playedItem("c", "Song Three", t0.Add(-3*time.Minute)),
	}
}

func newTestRefresher(t *testing.T, client StreamingClient, journal JournalService) (*Refresher, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.SetTokens(context.Background(), "access-1", "refresh-1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	cfg := Config{
		Interval:       time.Hour, // Ticks never fire in tests
		MinRevealDelay: time.Millisecond,
		MaxRevealDelay: time.Millisecond,
	}
	return NewRefresher(client, st, journal, cfg, zerolog.Nop()), st
}

func TestRefresher_CycleEmitsUpdate(t *testing.T) {
	client := &fakeStreaming{items: testHistory()}
	journal := &fakeJournal{message: "The rhythm you seek is already within you."}
	r, _ := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	update := <-updates
	if !update.Connected {
		t.Error("expected connected update")
	}
	if len(update.Tracks) != 3 {
		t.Fatalf("expected 3 unique tracks, got %d", len(update.Tracks))
	}
	if update.NowPlaying == nil || update.NowPlaying.ID != "a" {
		t.Errorf("expected now playing a, got %+v", update.NowPlaying)
	}
	if update.Message != "The rhythm you seek is already within you." {
		t.Errorf("unexpected message: %q", update.Message)
	}
	if journal.calls != 1 {
		t.Errorf("expected 1 journal call, got %d", journal.calls)
	}
}

func TestRefresher_EmptyHistorySkipsGeneration(t *testing.T) {
	client := &fakeStreaming{}
	journal := &fakeJournal{message: "unused"}
	r, _ := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	update := <-updates
	if !update.Connected {
		t.Error("expected connected update")
	}
	if len(update.Tracks) != 0 || update.NowPlaying != nil {
		t.Errorf("expected empty update, got %+v", update)
	}
	if journal.calls != 0 {
		t.Errorf("expected no journal call, got %d", journal.calls)
	}
}

func TestRefresher_ExpiredTokenRefreshesAndRetries(t *testing.T) {
	client := &fakeStreaming{
		items:       testHistory(),
		fetchErrs:   []error{spotify.ErrUnauthorized},
		refreshPair: &spotify.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"},
	}
	journal := &fakeJournal{message: "ok"}
	r, st := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	update := <-updates
	if !update.Connected || len(update.Tracks) != 3 {
		t.Errorf("expected successful retry, got %+v", update)
	}
	if client.refreshCalls != 1 {
		t.Errorf("expected 1 refresh, got %d", client.refreshCalls)
	}
	if client.fetchCalls != 2 {
		t.Errorf("expected fetch retried once, got %d calls", client.fetchCalls)
	}

	access, refresh, err := st.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if access != "access-2" || refresh != "refresh-2" {
		t.Errorf("new tokens not persisted: %s / %s", access, refresh)
	}
}

func TestRefresher_RefreshFailureDisconnects(t *testing.T) {
	client := &fakeStreaming{
		fetchErrs:  []error{spotify.ErrUnauthorized},
		refreshErr: spotify.ErrRefreshFailed,
	}
	journal := &fakeJournal{}
	r, st := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	err := r.refresh(context.Background(), updates)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}

	update := <-updates
	if update.Connected {
		t.Error("expected disconnected update")
	}
	if !errors.Is(update.Err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected in update, got %v", update.Err)
	}

	if _, _, err := st.Tokens(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected tokens cleared, got %v", err)
	}
}

func TestRefresher_SecondUnauthorizedDisconnects(t *testing.T) {
	// The refreshed token is also rejected: exactly one retry, then
	// terminal disconnect.
	client := &fakeStreaming{
		fetchErrs:   []error{spotify.ErrUnauthorized, spotify.ErrUnauthorized},
		refreshPair: &spotify.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"},
	}
	journal := &fakeJournal{}
	r, _ := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	err := r.refresh(context.Background(), updates)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if client.refreshCalls != 1 {
		t.Errorf("expected exactly 1 refresh attempt, got %d", client.refreshCalls)
	}
	if client.fetchCalls != 2 {
		t.Errorf("expected 2 fetch attempts, got %d", client.fetchCalls)
	}
}

func TestRefresher_TransientErrorKeepsPolling(t *testing.T) {
	client := &fakeStreaming{
		fetchErrs: []error{&spotify.RequestError{Status: 502, URL: "https://api.example.com"}},
	}
	journal := &fakeJournal{}
	r, _ := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("transient errors must not stop the loop, got %v", err)
	}

	update := <-updates
	if !update.Connected {
		t.Error("transient failure should stay connected")
	}
	if update.Err == nil {
		t.Error("expected cycle error in update")
	}
}

func TestRefresher_GenerationFailureIsNonFatal(t *testing.T) {
	client := &fakeStreaming{items: testHistory()}
	journal := &fakeJournal{err: fortune.ErrRateLimited}
	r, _ := newTestRefresher(t, client, journal)

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("generation failure must not stop the loop, got %v", err)
	}

	update := <-updates
	if !update.Connected {
		t.Error("expected connected update")
	}
	if update.Message != "Unable to generate fortune message." {
		t.Errorf("expected fallback message, got %q", update.Message)
	}
	if !errors.Is(update.Err, fortune.ErrRateLimited) {
		t.Errorf("expected generation error in update, got %v", update.Err)
	}
	if update.NowPlaying == nil || len(update.Tracks) != 3 {
		t.Error("tracks should still be delivered on generation failure")
	}
}

func TestRefresher_SkipsTickWhileInFlight(t *testing.T) {
	client := &fakeStreaming{items: testHistory()}
	journal := &fakeJournal{message: "ok"}
	r, _ := newTestRefresher(t, client, journal)

	r.inFlight.Lock()
	defer r.inFlight.Unlock()

	updates := make(chan Update, 1)
	if err := r.refresh(context.Background(), updates); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	select {
	case update := <-updates:
		t.Fatalf("expected skipped cycle, got update %+v", update)
	default:
	}
	if client.fetchCalls != 0 {
		t.Errorf("expected no fetch while in flight, got %d", client.fetchCalls)
	}
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	client := &fakeStreaming{items: testHistory()}
	journal := &fakeJournal{message: "ok"}
	r, _ := newTestRefresher(t, client, journal)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Update, 4)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, updates) }()

	// First cycle runs immediately.
	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first update")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to stop")
	}
}
