// Package tracks normalizes raw play-history data into the track lists
// the rest of the application works with.
package tracks

import (
	"sort"
	"strings"
	"time"

	"github.com/mbetts/melodiary/pkg/spotify"
)

// Track is a normalized track descriptor derived from a play-history item.
type Track struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Artists       string    `json:"artists"`
	AlbumImageURL string    `json:"albumImageUrl,omitempty"`
	PreviewURL    string    `json:"previewUrl,omitempty"`
	ExternalURL   string    `json:"externalUrl,omitempty"`
	PlayedAt      time.Time `json:"playedAt"`
}

// FromPlayedItem converts a raw play-history item into a Track.
func FromPlayedItem(item spotify.PlayedItem) Track {
	t := Track{
		ID:          item.Track.ID,
		Name:        item.Track.Name,
		Artists:     joinArtists(item.Track),
		PreviewURL:  item.Track.PreviewURL,
		ExternalURL: item.Track.ExternalURLs.Spotify,
		PlayedAt:    item.PlayedAt,
	}
	if len(item.Track.Album.Images) > 0 {
		t.AlbumImageURL = item.Track.Album.Images[0].URL
	}
	return t
}

// joinArtists renders the artist list as a display string.
func joinArtists(track spotify.TrackItem) string {
	if len(track.Artists) == 0 {
		return "Unknown Artist"
	}
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// valid reports whether an item carries enough data to display.
// Items without both a track id and a name are dropped.
func valid(item spotify.PlayedItem) bool {
	return item.Track.ID != "" && item.Track.Name != ""
}

// MostRecentUnique returns up to count unique tracks from items, newest
// play first.
//
// Items are sorted by played-at descending with input order preserved
// for equal timestamps, invalid items are skipped, and only the first
// play of each track id is kept. A result shorter than count means the
// history ran out, not an error.
func MostRecentUnique(items []spotify.PlayedItem, count int) []Track {
	sorted := make([]spotify.PlayedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PlayedAt.After(sorted[j].PlayedAt)
	})

	seen := make(map[string]bool)
	result := make([]Track, 0, count)
	for _, item := range sorted {
		if len(result) >= count {
			break
		}
		if !valid(item) {
			continue
		}
		if seen[item.Track.ID] {
			continue
		}
		seen[item.Track.ID] = true
		result = append(result, FromPlayedItem(item))
	}
	return result
}

// TopByLocalDay buckets items by their local calendar date in loc and
// returns the n most-played tracks per day.
//
// Within a day, tracks rank by play count descending; ties keep the
// order the tracks were first seen that day. Days with no valid items
// are omitted. Keys are formatted YYYY-MM-DD.
func TopByLocalDay(items []spotify.PlayedItem, n int, loc *time.Location) map[string][]Track {
	if loc == nil {
		loc = time.Local
	}

	type dayStats struct {
		counts map[string]int
		order  []string
		sample map[string]Track
	}

	days := make(map[string]*dayStats)
	for _, item := range items {
		if !valid(item) {
			continue
		}
		date := item.PlayedAt.In(loc).Format("2006-01-02")
		stats, ok := days[date]
		if !ok {
			stats = &dayStats{
				counts: make(map[string]int),
				sample: make(map[string]Track),
			}
			days[date] = stats
		}
		id := item.Track.ID
		if stats.counts[id] == 0 {
			stats.order = append(stats.order, id)
			stats.sample[id] = FromPlayedItem(item)
		}
		stats.counts[id]++
	}

	result := make(map[string][]Track, len(days))
	for date, stats := range days {
		ids := make([]string, len(stats.order))
		copy(ids, stats.order)
		sort.SliceStable(ids, func(i, j int) bool {
			return stats.counts[ids[i]] > stats.counts[ids[j]]
		})
		if len(ids) > n {
			ids = ids[:n]
		}
		top := make([]Track, 0, len(ids))
		for _, id := range ids {
			top = append(top, stats.sample[id])
		}
		result[date] = top
	}
	return result
}
