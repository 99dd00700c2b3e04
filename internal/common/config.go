package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fiisync
type Config struct {
	Environment string         `toml:"environment"`
	Store       StoreConfig    `toml:"store"`
	Plexa       PlexaConfig    `toml:"plexa"`
	ClubeFII    ClubeFIIConfig `toml:"clubefii"`
	Fundamentus ScrapeConfig   `toml:"fundamentus"`
	Sync        SyncConfig     `toml:"sync"`
	Logging     LoggingConfig  `toml:"logging"`
}

// StoreConfig holds the SQLite database location
type StoreConfig struct {
	Path string `toml:"path"`
}

// PlexaConfig holds credentials and tuning for the Plexa API
type PlexaConfig struct {
	BaseURL   string `toml:"base_url"`
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	TokenFile string `toml:"token_file"` // .env-style file the bearer token is persisted to
	RateLimit int    `toml:"rate_limit"` // requests per second
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *PlexaConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// ClubeFIIConfig holds tuning for the browser-rendered ClubeFII pages
type ClubeFIIConfig struct {
	BaseURL    string `toml:"base_url"`
	RenderWait string `toml:"render_wait"` // time to let client-side content settle
	Timeout    string `toml:"timeout"`
}

// GetRenderWait parses and returns the render wait duration
func (c *ClubeFIIConfig) GetRenderWait() time.Duration {
	d, err := time.ParseDuration(c.RenderWait)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetTimeout parses and returns the timeout duration
func (c *ClubeFIIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ScrapeConfig holds tuning for a static-HTML source
type ScrapeConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ScrapeConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// SyncConfig holds run-level tuning for the orchestrator
type SyncConfig struct {
	Pacing         string `toml:"pacing"`          // delay between funds, may be "0s" in tests
	LookbackMonths int    `toml:"lookback_months"` // dividend history window
	LookbackDays   int    `toml:"lookback_days"`   // quote history window
}

// GetPacing parses and returns the inter-fund pacing delay
func (c *SyncConfig) GetPacing() time.Duration {
	d, err := time.ParseDuration(c.Pacing)
	if err != nil {
		return time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Store: StoreConfig{
			Path: "data/fiis.db",
		},
		Plexa: PlexaConfig{
			BaseURL:   "https://api.plexa.com.br",
			TokenFile: ".env",
			RateLimit: 2,
			Timeout:   "15s",
		},
		ClubeFII: ClubeFIIConfig{
			BaseURL:    "https://www.clubefii.com.br",
			RenderWait: "3s",
			Timeout:    "60s",
		},
		Fundamentus: ScrapeConfig{
			BaseURL: "https://fundamentus.com.br",
			Timeout: "10s",
		},
		Sync: SyncConfig{
			Pacing:         "1s",
			LookbackMonths: 3600,
			LookbackDays:   3650,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FIISYNC_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("FIISYNC_DB_PATH"); path != "" {
		config.Store.Path = path
	}

	if level := os.Getenv("FIISYNC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Credentials come from the environment in normal operation; the
	// original .env keys are honoured alongside the FIISYNC_ ones.
	if v := firstEnv("FIISYNC_PLEXA_EMAIL", "PLEXA_EMAIL"); v != "" {
		config.Plexa.Email = v
	}
	if v := firstEnv("FIISYNC_PLEXA_PASSWORD", "PLEXA_SENHA"); v != "" {
		config.Plexa.Password = v
	}
	if v := os.Getenv("FIISYNC_PLEXA_BASE_URL"); v != "" {
		config.Plexa.BaseURL = v
	}
	if v := os.Getenv("FIISYNC_PLEXA_TOKEN_FILE"); v != "" {
		config.Plexa.TokenFile = v
	}

	if v := os.Getenv("FIISYNC_PACING"); v != "" {
		config.Sync.Pacing = v
	}
	if v := os.Getenv("FIISYNC_LOOKBACK_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sync.LookbackMonths = n
		}
	}
	if v := os.Getenv("FIISYNC_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sync.LookbackDays = n
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
