package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. Debrid credentials live
// here and are injected into clients explicitly so multiple accounts
// and tests can run side by side.
type Config struct {
	// TorBox (debrid backend)
	TorBoxAPIKey string
	TorBoxAPIURL string

	// Torrent indexer aggregator
	IndexerURL string

	// Identifier metadata services
	TMDBAPIKey string
	TMDBAPIURL string
	KitsuAPIURL string

	// Subtitles addon (optional)
	SubtitlesURL string

	// Resolution
	CandidateLimit int // Max candidates probed per request (bounds worst-case latency)

	// Timeouts (seconds)
	MetadataTimeoutSeconds int
	IndexerTimeoutSeconds  int
	DebridTimeoutSeconds   int

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/resolvarr.db
	FilterFile   string // $CONFIG_DIR/filter.txt

	// Logging
	LogLevel string
}

// MetadataTimeout returns the bounded timeout for metadata lookups
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.MetadataTimeoutSeconds) * time.Second
}

// IndexerTimeout returns the bounded timeout for indexer queries
func (c *Config) IndexerTimeout() time.Duration {
	return time.Duration(c.IndexerTimeoutSeconds) * time.Second
}

// DebridTimeout returns the bounded timeout for debrid backend calls
func (c *Config) DebridTimeout() time.Duration {
	return time.Duration(c.DebridTimeoutSeconds) * time.Second
}

// ResolveBudget bounds one full resolution end to end: identifier
// normalization, the indexer query, and the worst-case candidate loop
// (up to three debrid calls per probed candidate). The play handler
// puts this deadline on the request context so a slow backend cannot
// keep the loop running past the response.
func (c *Config) ResolveBudget() time.Duration {
	perCandidate := 3 * c.DebridTimeout()
	return c.MetadataTimeout() + c.IndexerTimeout() + time.Duration(c.CandidateLimit)*perCandidate
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("TORBOX_API_URL", "https://api.torbox.app/v1/api")
	viper.SetDefault("INDEXER_URL", "https://torrentio.strem.fun")
	viper.SetDefault("TMDB_API_URL", "https://api.themoviedb.org/3")
	viper.SetDefault("KITSU_API_URL", "https://kitsu.io/api/edge")
	viper.SetDefault("CANDIDATE_LIMIT", 8)
	viper.SetDefault("METADATA_TIMEOUT_SECONDS", 10)
	viper.SetDefault("INDEXER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DEBRID_TIMEOUT_SECONDS", 20)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "resolvarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		TorBoxAPIKey: viper.GetString("TORBOX_API_KEY"),
		TorBoxAPIURL: viper.GetString("TORBOX_API_URL"),

		IndexerURL: viper.GetString("INDEXER_URL"),

		TMDBAPIKey:  viper.GetString("TMDB_API_KEY"),
		TMDBAPIURL:  viper.GetString("TMDB_API_URL"),
		KitsuAPIURL: viper.GetString("KITSU_API_URL"),

		SubtitlesURL: viper.GetString("SUBTITLES_URL"),

		CandidateLimit: viper.GetInt("CANDIDATE_LIMIT"),

		MetadataTimeoutSeconds: viper.GetInt("METADATA_TIMEOUT_SECONDS"),
		IndexerTimeoutSeconds:  viper.GetInt("INDEXER_TIMEOUT_SECONDS"),
		DebridTimeoutSeconds:   viper.GetInt("DEBRID_TIMEOUT_SECONDS"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: filepath.Join(configDir, "resolvarr.db"),
		FilterFile:   filepath.Join(configDir, "filter.txt"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.TorBoxAPIKey == "" {
		return nil, fmt.Errorf("TORBOX_API_KEY is required")
	}
	if config.CandidateLimit <= 0 {
		return nil, fmt.Errorf("CANDIDATE_LIMIT must be positive")
	}

	return config, nil
}
