// Package journal produces and caches the daily fortune entry.
package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbetts/melodiary/internal/fortune"
	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/internal/tracks"
)

// CacheVersion is bumped whenever the generation contract changes
// shape. Bumping lazily invalidates every previously cached entry.
const CacheVersion = 4

// FallbackMessage is shown when generation fails. It is never cached.
const FallbackMessage = "Unable to generate fortune message. Please check your OpenAI API key and try again."

// Clock supplies the current time. Injectable for day-boundary tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// LyricsFetcher looks up lyrics for one song.
type LyricsFetcher interface {
	Fetch(ctx context.Context, title, artist string) (string, error)
}

// Generator produces a fortune message from songs and lyrics.
type Generator interface {
	Generate(ctx context.Context, songs []fortune.SongLyrics) (string, error)
}

// Service implements the day-scoped journal cache.
type Service struct {
	store     *store.Store
	lyrics    LyricsFetcher
	generator Generator
	clock     Clock
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates a journal service.
func NewService(st *store.Store, lyrics LyricsFetcher, gen Generator, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		lyrics:    lyrics,
		generator: gen,
		clock:     realClock{},
		logger:    logger.With().Str("component", "journal").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// localDate formats a time as the local calendar date.
func localDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// TodayISO returns the current local calendar date.
func (s *Service) TodayISO() string {
	return localDate(s.clock.Now())
}

// GetOrGenerate returns the journal entry for a date, generating and
// caching it when needed.
//
// Only today's entry is served from cache: a cached value is reused
// when its cache version is current, it was generated on the same local
// day, and its first source track still matches top[0]. A stale-version
// entry is deleted before regeneration. Generation failures return
// FallbackMessage and leave the cache untouched.
func (s *Service) GetOrGenerate(ctx context.Context, dateISO string, top []tracks.Track) (string, error) {
	if len(top) == 0 {
		return "", errors.New("journal: no tracks to generate from")
	}

	now := s.clock.Now()
	isToday := dateISO == localDate(now)

	if isToday {
		if msg, ok := s.cachedMessage(ctx, dateISO, now, top); ok {
			s.logger.Debug().Str("date", dateISO).Msg("serving cached journal entry")
			return msg, nil
		}
	}

	songs := s.fetchAllLyrics(ctx, top)

	message, err := s.generator.Generate(ctx, songs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("fortune generation failed")
		return FallbackMessage, err
	}

	entry := store.JournalEntry{
		Message:      message,
		Songs:        sourceSongs(top),
		GeneratedAt:  s.clock.Now(),
		CacheVersion: CacheVersion,
	}
	if err := s.store.SetJournalEntry(ctx, dateISO, entry); err != nil {
		// The message is still good; caching is best effort.
		s.logger.Warn().Err(err).Msg("failed to cache journal entry")
	}
	return message, nil
}

// cachedMessage checks whether the stored entry for dateISO is usable.
func (s *Service) cachedMessage(ctx context.Context, dateISO string, now time.Time, top []tracks.Track) (string, bool) {
	entry, err := s.store.JournalEntry(ctx, dateISO)
	if err != nil {
		return "", false
	}

	if entry.CacheVersion != CacheVersion {
		s.logger.Debug().Str("date", dateISO).Int("version", entry.CacheVersion).Msg("cache version mismatch, discarding")
		if err := s.store.DeleteJournalEntry(ctx, dateISO); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete stale journal entry")
		}
		return "", false
	}

	if localDate(entry.GeneratedAt) != localDate(now) {
		return "", false
	}
	if entry.Message == "" || len(entry.Songs) == 0 {
		return "", false
	}
	if entry.Songs[0].Title != top[0].Name {
		return "", false
	}
	return entry.Message, true
}

// fetchAllLyrics fetches lyrics for every track concurrently. A failed
// or missed lookup leaves that song's lyrics empty.
func (s *Service) fetchAllLyrics(ctx context.Context, top []tracks.Track) []fortune.SongLyrics {
	songs := make([]fortune.SongLyrics, len(top))
	var wg sync.WaitGroup
	for i, track := range top {
		songs[i] = fortune.SongLyrics{Title: track.Name, Artist: track.Artists}
		wg.Add(1)
		go func(i int, track tracks.Track) {
			defer wg.Done()
			text, err := s.lyrics.Fetch(ctx, track.Name, track.Artists)
			if err != nil {
				s.logger.Debug().Str("title", track.Name).Err(err).Msg("lyrics fetch failed")
				return
			}
			songs[i].Lyrics = text
		}(i, track)
	}
	wg.Wait()
	return songs
}

// sourceSongs records which tracks an entry was generated from.
func sourceSongs(top []tracks.Track) []store.JournalSong {
	songs := make([]store.JournalSong, len(top))
	for i, t := range top {
		songs[i] = store.JournalSong{Title: t.Name, Artist: t.Artists}
	}
	return songs
}
