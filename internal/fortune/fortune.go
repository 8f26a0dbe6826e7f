// Package fortune turns recently played songs into a short
// fortune-cookie style journal entry using a chat-completion API.
package fortune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the OpenAI-compatible API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	temperature = 0.85
	maxTokens   = 300
)

// SongLyrics pairs a song with whatever lyrics were found for it.
// Lyrics is empty when the lookup missed.
type SongLyrics struct {
	Title  string
	Artist string
	Lyrics string
}

// Config holds generator configuration.
type Config struct {
	APIKey     string       // Required at generation time
	Model      string       // Optional: defaults to DefaultModel
	BaseURL    string       // Optional: defaults to DefaultBaseURL (used for testing)
	HTTPClient *http.Client // Optional: defaults to http.DefaultClient
}

// Generator calls the completion API and extracts the fortune message.
type Generator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewGenerator creates a fortune generator. A missing API key is not
// an error here; Generate reports ErrMissingAPIKey when called.
func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Generator{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "fortune").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces a fortune-cookie message for the given songs.
//
// Songs without lyrics are fine; when none have lyrics the prompt tells
// the model to work from titles and artists alone. Failures map to the
// package error values so callers can branch on them.
func (g *Generator) Generate(ctx context.Context, songs []SongLyrics) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(songs) == 0 {
		return "", fmt.Errorf("fortune: no songs to generate from")
	}

	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(songs)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	g.logger.Debug().Str("model", g.model).Int("songs", len(songs)).Msg("requesting fortune")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", g.statusError(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrBadResponse
	}

	msg, err := extractMessage(parsed.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	g.logger.Debug().Msg("fortune generated")
	return msg, nil
}

// statusError maps provider HTTP failures onto the package taxonomy.
func (g *Generator) statusError(status int, body []byte) error {
	var parsed chatResponse
	detail := "unknown error"
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		detail = parsed.Error.Message
	}
	g.logger.Debug().Int("status", status).Str("detail", detail).Msg("completion request rejected")

	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("completion request failed: status %d: %s", status, detail)
	}
}
