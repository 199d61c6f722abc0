package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "GITLY_GITHUB_TOKEN"
	// EnvGithubTokenFallback is read when EnvGithubToken is not set
	EnvGithubTokenFallback = "GITHUB_TOKEN"

	DefaultDatabasePath   = "gitly.db"
	DefaultCacheTTL       = 10 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultPerPage        = 30
	DefaultEventBuffer    = 64
	DefaultLogLevel       = "info"

	// maxPerPage is the largest page GitHub search accepts
	maxPerPage = 100
)

// Duration is a time.Duration written as a string such as "10m" in JSON
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the application configuration
type Config struct {
	// GitHub API token for authentication (optional, can be set via GITLY_GITHUB_TOKEN or GITHUB_TOKEN)
	GitHubToken string `json:"github_token"`

	// Path to the SQLite database file holding favorites and cached queries
	DatabasePath string `json:"database_path"`

	// How long a cached query result may be shown while it is refreshed.
	// "0s" disables cached results.
	CacheTTL Duration `json:"cache_ttl"`

	// Upper bound of every GitHub request. "0s" means no limit.
	RequestTimeout Duration `json:"request_timeout"`

	// Search results per page, at most 100
	PerPage int `json:"per_page"`

	// Capacity of each screen's event queue
	EventBuffer int `json:"event_buffer"`

	// One of logrus' levels: debug, info, warn, error
	LogLevel string `json:"log_level"`
}

// LoadConfig loads the configuration from a JSON file. A .env file next to
// the configuration file, or in the working directory, may provide the
// token.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	config := defaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}

	// Check for GitHub token in environment variables
	if envToken := os.Getenv(EnvGithubToken); envToken != "" {
		config.GitHubToken = envToken
	} else if envToken := os.Getenv(EnvGithubTokenFallback); envToken != "" && config.GitHubToken == "" {
		config.GitHubToken = envToken
	}

	config.applyDefaults()

	// Make database path absolute if it's relative
	if config.DatabasePath != ":memory:" && !filepath.IsAbs(config.DatabasePath) {
		configDir := filepath.Dir(path)
		config.DatabasePath = filepath.Join(configDir, config.DatabasePath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// loadDotEnv loads the first existing file. Variables already set in the
// environment win.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		DatabasePath:   DefaultDatabasePath,
		CacheTTL:       Duration(DefaultCacheTTL),
		RequestTimeout: Duration(DefaultRequestTimeout),
		PerPage:        DefaultPerPage,
		EventBuffer:    DefaultEventBuffer,
		LogLevel:       DefaultLogLevel,
	}
}

// applyDefaults fills settings that were present but empty. Zero durations
// are meaningful and kept.
func (c *Config) applyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.PerPage == 0 {
		c.PerPage = DefaultPerPage
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.PerPage < 1 || c.PerPage > maxPerPage {
		return fmt.Errorf("per_page must be between 1 and %d, got %d", maxPerPage, c.PerPage)
	}
	if c.CacheTTL < 0 || c.RequestTimeout < 0 {
		return fmt.Errorf("cache_ttl and request_timeout must not be negative")
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log_level: %w", err)
	}
	return level, nil
}

// SaveConfig saves the configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	config := defaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(&config, path)
}
