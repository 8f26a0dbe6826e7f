package fortune

import (
	"fmt"
	"strings"
)

// systemPrompt pins the model to raw JSON output.
const systemPrompt = "You are a helpful assistant that responds with valid JSON only, no markdown formatting, no code blocks, just raw JSON."

// buildPrompt assembles the user prompt from the recent songs and
// whatever lyrics were found for them.
func buildPrompt(songs []SongLyrics) string {
	songList := make([]string, 0, len(songs))
	for _, s := range songs {
		songList = append(songList, fmt.Sprintf("%q by %s", s.Title, s.Artist))
	}

	seen := make(map[string]bool)
	artistList := make([]string, 0, len(songs))
	for _, s := range songs {
		if !seen[s.Artist] {
			seen[s.Artist] = true
			artistList = append(artistList, s.Artist)
		}
	}

	var lyricsSection strings.Builder
	for _, s := range songs {
		if s.Lyrics == "" {
			continue
		}
		if lyricsSection.Len() > 0 {
			lyricsSection.WriteString("\n\n")
		}
		fmt.Fprintf(&lyricsSection, "%q by %s:\n%s", s.Title, s.Artist, s.Lyrics)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Generate a fortune cookie message based on these 3 most recent songs I just played.

RECENT SONGS: %s

ARTISTS: %s
`, strings.Join(songList, ", "), strings.Join(artistList, ", "))

	if lyricsSection.Len() > 0 {
		fmt.Fprintf(&b, "\nSONGS & LYRICS:\n%s\n", lyricsSection.String())
	} else {
		b.WriteString("\nNOTE: Lyrics were not available for these songs, so base the fortune on the song titles, artists, and what you know about them.\n")
	}

	b.WriteString(`

Write a single fortune cookie message that:
- Is mysterious, poetic, and thought-provoking like a real fortune cookie
- Draws subtle connections to the themes, lyrics, or vibes of these songs
- Is concise (2-3 sentences maximum, ideally just 1-2 sentences)
- Feels inspiring or reflective, not just descriptive
- Uses second person ("You", "Your") or timeless wisdom
- Has the mystical, slightly cryptic quality of fortune cookies
- References the music subtly, maybe a theme, emotion, or vibe from the songs, but doesn't explicitly name the songs or artists

Examples of good fortune cookie style:
- "The rhythm you seek is already within you. Listen."
- "Your next chapter begins when you stop replaying the last one."
- "The melody of change is quieter than you think, but louder than you expect."
- "What you're searching for in others, you'll find in your own reflection."

Format your response as a JSON object with a single "message" field:
{
  "message": "Your fortune cookie message here - mysterious, poetic, and inspired by the songs"
}

Return ONLY valid JSON, no markdown, no code blocks, no explanations.`)

	return b.String()
}
