package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		artist     string
		statusCode int
		response   string
		wantPath   string
		want       string
		wantErr    bool
	}{
		{
			name:       "lyrics found",
			title:      "Yesterday",
			artist:     "The Beatles",
			statusCode: http.StatusOK,
			response:   `{"lyrics":"Yesterday, all my troubles seemed so far away"}`,
			wantPath:   "/v1/The Beatles/Yesterday",
			want:       "Yesterday, all my troubles seemed so far away",
		},
		{
			name:       "not found is a miss",
			title:      "Obscure Song",
			artist:     "Nobody",
			statusCode: http.StatusNotFound,
			response:   `{"error":"No lyrics found"}`,
			wantPath:   "/v1/Nobody/Obscure Song",
			want:       "",
		},
		{
			name:       "empty lyrics field is a miss",
			title:      "Instrumental",
			artist:     "Band",
			statusCode: http.StatusOK,
			response:   `{"lyrics":"  "}`,
			wantPath:   "/v1/Band/Instrumental",
			want:       "",
		},
		{
			name:       "title qualifiers stripped",
			title:      "Hey Jude (Remastered 2015)",
			artist:     "The Beatles",
			statusCode: http.StatusOK,
			response:   `{"lyrics":"Hey Jude"}`,
			wantPath:   "/v1/The Beatles/Hey Jude",
			want:       "Hey Jude",
		},
		{
			name:       "only first artist queried",
			title:      "Duet",
			artist:     "First Artist, Second Artist",
			statusCode: http.StatusOK,
			response:   `{"lyrics":"la la"}`,
			wantPath:   "/v1/First Artist/Duet",
			want:       "la la",
		},
		{
			name:       "server error propagates",
			title:      "Song",
			artist:     "Artist",
			statusCode: http.StatusInternalServerError,
			response:   `{"error":"boom"}`,
			wantPath:   "/v1/Artist/Song",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path, err := url.PathUnescape(r.URL.EscapedPath())
				if err != nil {
					t.Fatalf("failed to unescape path: %v", err)
				}
				gotPath = path
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			fetcher := NewFetcher(server.URL, zerolog.Nop())
			got, err := fetcher.Fetch(context.Background(), tt.title, tt.artist)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if gotPath != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, gotPath)
			}
		})
	}
}

func TestFetcher_Fetch_TimeoutIsMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := fetcher.Fetch(ctx, "Slow", "Artist")
	if err != nil {
		t.Fatalf("expected timeout to be swallowed, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty lyrics, got %q", got)
	}
}

func TestFetcher_Fetch_NetworkFailureIsMiss(t *testing.T) {
	// Point at a closed port.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	fetcher := NewFetcher(addr, zerolog.Nop())
	got, err := fetcher.Fetch(context.Background(), "Song", "Artist")
	if err != nil {
		t.Fatalf("expected network failure to be swallowed, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty lyrics, got %q", got)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hey Jude (Remastered 2015)", "Hey Jude"},
		{"Song - Live at Wembley", "Song"},
		{"Plain Title", "Plain Title"},
		{"Both (Deluxe) - Remix", "Both"},
		{"(Parens First)", "(Parens First)"},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrimaryArtist(t *testing.T) {
	if got := PrimaryArtist("First, Second, Third"); got != "First" {
		t.Errorf("expected First, got %q", got)
	}
	if got := PrimaryArtist("Solo"); got != "Solo" {
		t.Errorf("expected Solo, got %q", got)
	}
}
