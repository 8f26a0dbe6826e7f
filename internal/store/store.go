// Package store persists application state (tokens, journal entries,
// presentation settings) in a SQLite-backed key-value table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Persisted key names. Journal entries append their date to the prefix.
const (
	KeyPKCEVerifier = "spotify_pkce_verifier"
	KeyAccessToken  = "spotify_access_token"
	KeyRefreshToken = "spotify_refresh_token"
	KeyGradient     = "customGradient"

	journalKeyPrefix = "journal_entry_"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a SQLite-backed key-value store.
type Store struct {
	db *sql.DB
}

// JournalEntry is a cached fortune for one calendar day.
type JournalEntry struct {
	Message      string        `json:"message"`
	Songs        []JournalSong `json:"songs"`
	GeneratedAt  time.Time     `json:"generatedAt"`
	CacheVersion int           `json:"cacheVersion"`
}

// JournalSong records which songs an entry was generated from.
type JournalSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Open creates or opens the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases consistent and is
	// plenty for this workload.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value for key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value, replacing any existing one.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// SetTokens stores the access and refresh token pair.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return err
	}
	return s.Set(ctx, KeyRefreshToken, refreshToken)
}

// Tokens returns the stored token pair. ErrNotFound when not logged in.
func (s *Store) Tokens(ctx context.Context) (accessToken, refreshToken string, err error) {
	accessToken, err = s.Get(ctx, KeyAccessToken)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// ClearAuth removes all credential material, logging the user out.
func (s *Store) ClearAuth(ctx context.Context) error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyPKCEVerifier} {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// journalKey builds the cache key for a date.
func journalKey(dateISO string) string {
	return journalKeyPrefix + dateISO
}

// JournalEntry returns the cached entry for a date, or ErrNotFound.
// A stored value that will not parse is treated as absent.
func (s *Store) JournalEntry(ctx context.Context, dateISO string) (*JournalEntry, error) {
	raw, err := s.Get(ctx, journalKey(dateISO))
	if err != nil {
		return nil, err
	}
	var entry JournalEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// SetJournalEntry caches an entry for a date.
func (s *Store) SetJournalEntry(ctx context.Context, dateISO string, entry JournalEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	return s.Set(ctx, journalKey(dateISO), string(raw))
}

// DeleteJournalEntry drops the cached entry for a date.
func (s *Store) DeleteJournalEntry(ctx context.Context, dateISO string) error {
	return s.Delete(ctx, journalKey(dateISO))
}

// JournalDates lists the dates with cached entries, newest first.
func (s *Store) JournalDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE key LIKE ? ORDER BY key DESC", journalKeyPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan journal key: %w", err)
		}
		dates = append(dates, strings.TrimPrefix(key, journalKeyPrefix))
	}
	return dates, rows.Err()
}

// ClearJournal removes every cached journal entry.
func (s *Store) ClearJournal(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE key LIKE ?", journalKeyPrefix+"%")
	if err != nil {
		return 0, fmt.Errorf("failed to clear journal entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Gradient returns the saved background gradient, or "" when unset.
func (s *Store) Gradient(ctx context.Context) (string, error) {
	value, err := s.Get(ctx, KeyGradient)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}

// SetGradient saves the background gradient.
func (s *Store) SetGradient(ctx context.Context, gradient string) error {
	return s.Set(ctx, KeyGradient, gradient)
}
