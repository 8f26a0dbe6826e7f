package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "v1" {
		t.Errorf("expected v1, got %s", got)
	}

	// Overwrite.
	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if got != "v2" {
		t.Errorf("expected v2, got %s", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent key is fine.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}

func TestStore_Tokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Tokens(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when logged out, got %v", err)
	}

	if err := s.SetTokens(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	access, refresh, err := s.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if access != "access-1" || refresh != "refresh-1" {
		t.Errorf("unexpected tokens: %s / %s", access, refresh)
	}

	if err := s.Set(ctx, KeyPKCEVerifier, "verifier"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.ClearAuth(ctx); err != nil {
		t.Fatalf("ClearAuth failed: %v", err)
	}
	if _, _, err := s.Tokens(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ClearAuth, got %v", err)
	}
	if _, err := s.Get(ctx, KeyPKCEVerifier); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected verifier cleared, got %v", err)
	}
}

func TestStore_JournalEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.JournalEntry(ctx, "2025-06-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entry := JournalEntry{
		Message: "The rhythm you seek is already within you.",
		Songs: []JournalSong{
			{Title: "Song One", Artist: "Artist A"},
		},
		GeneratedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		CacheVersion: 4,
	}
	if err := s.SetJournalEntry(ctx, "2025-06-01", entry); err != nil {
		t.Fatalf("SetJournalEntry failed: %v", err)
	}

	got, err := s.JournalEntry(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("JournalEntry failed: %v", err)
	}
	if got.Message != entry.Message {
		t.Errorf("expected message %q, got %q", entry.Message, got.Message)
	}
	if got.CacheVersion != 4 {
		t.Errorf("expected cache version 4, got %d", got.CacheVersion)
	}
	if len(got.Songs) != 1 || got.Songs[0].Title != "Song One" {
		t.Errorf("unexpected songs: %+v", got.Songs)
	}
	if !got.GeneratedAt.Equal(entry.GeneratedAt) {
		t.Errorf("expected generatedAt %v, got %v", entry.GeneratedAt, got.GeneratedAt)
	}
}

func TestStore_JournalEntry_CorruptValueIsMiss(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "journal_entry_2025-06-01", "not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.JournalEntry(ctx, "2025-06-01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected corrupt entry treated as miss, got %v", err)
	}
}

func TestStore_JournalDatesAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-06-01", "2025-06-03", "2025-06-02"} {
		if err := s.SetJournalEntry(ctx, date, JournalEntry{Message: "m", CacheVersion: 4}); err != nil {
			t.Fatalf("SetJournalEntry failed: %v", err)
		}
	}
	// Non-journal keys must survive a journal clear.
	if err := s.SetTokens(ctx, "a", "r"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	dates, err := s.JournalDates(ctx)
	if err != nil {
		t.Fatalf("JournalDates failed: %v", err)
	}
	want := []string{"2025-06-03", "2025-06-02", "2025-06-01"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i, d := range want {
		if dates[i] != d {
			t.Errorf("position %d: expected %s, got %s", i, d, dates[i])
		}
	}

	n, err := s.ClearJournal(ctx)
	if err != nil {
		t.Fatalf("ClearJournal failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 entries cleared, got %d", n)
	}
	if _, _, err := s.Tokens(ctx); err != nil {
		t.Errorf("tokens should survive journal clear: %v", err)
	}
}

func TestStore_Gradient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.Gradient(ctx)
	if err != nil {
		t.Fatalf("Gradient failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty gradient when unset, got %q", got)
	}

	if err := s.SetGradient(ctx, "linear-gradient(135deg, #1a1a2e, #16213e)"); err != nil {
		t.Fatalf("SetGradient failed: %v", err)
	}
	got, err = s.Gradient(ctx)
	if err != nil {
		t.Fatalf("Gradient failed: %v", err)
	}
	if got != "linear-gradient(135deg, #1a1a2e, #16213e)" {
		t.Errorf("unexpected gradient: %q", got)
	}
}
