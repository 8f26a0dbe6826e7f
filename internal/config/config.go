package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artists}} - {{.Name}}"
	OutputFormat string

	// Poll interval for the daemon (in seconds)
	PollInterval int

	// Address the local web server listens on
	ListenAddr string

	// Path to the sqlite database
	DatabasePath string

	Spotify SpotifyConfig
	OpenAI  OpenAIConfig
}

// SpotifyConfig holds Spotify application credentials. The client is a
// public PKCE client, so there is no secret.
type SpotifyConfig struct {
	ClientID    string
	RedirectURI string
}

// OpenAIConfig holds fortune-generation credentials
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// A local .env is convenient during development; missing is fine.
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("output_format", "{{.Artists}} - {{.Name}}")
	v.SetDefault("poll_interval", 30)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("database_path", filepath.Join(configDir, "melodiary.db"))
	v.SetDefault("spotify.redirect_uri", "http://127.0.0.1:8080/callback")
	v.SetDefault("openai.model", "gpt-4o-mini")

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("MELODIARY")
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		OutputFormat: v.GetString("output_format"),
		PollInterval: v.GetInt("poll_interval"),
		ListenAddr:   v.GetString("listen_addr"),
		DatabasePath: v.GetString("database_path"),
		Spotify: SpotifyConfig{
			ClientID:    v.GetString("spotify.client_id"),
			RedirectURI: v.GetString("spotify.redirect_uri"),
		},
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("openai.api_key"),
			Model:  v.GetString("openai.model"),
		},
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "melodiary")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("output_format", c.OutputFormat)
	v.Set("poll_interval", c.PollInterval)
	v.Set("listen_addr", c.ListenAddr)
	v.Set("database_path", c.DatabasePath)
	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.redirect_uri", c.Spotify.RedirectURI)
	v.Set("openai.api_key", c.OpenAI.APIKey)
	v.Set("openai.model", c.OpenAI.Model)

	// Write to file
	return v.WriteConfigAs(configFile)
}
