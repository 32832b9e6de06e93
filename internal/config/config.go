// Package config resolves shortsfeed settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string // "local", "dev", "prod"
	APIURL    string
	ConfigDir string

	// Feed
	PageSize       int
	Window         int
	Captions       bool
	UnmuteOnScroll bool
	ReReportViews  bool
	ViewThreshold  time.Duration

	// View events
	NatsURL     string
	NatsSubject string
}

// Load reads the optional .env files (the working directory's .env when none
// are named) and then the environment. Variables already set in the process
// win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load(".env")
	} else {
		for _, f := range envFiles {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		Env:            getEnv("SHORTSFEED_ENV", "local"),
		APIURL:         strings.TrimRight(getEnv("SHORTSFEED_API_URL", "http://localhost:8000"), "/"),
		ConfigDir:      getEnv("SHORTSFEED_CONFIG_DIR", defaultConfigDir()),
		PageSize:       getEnvInt("SHORTSFEED_PAGE_SIZE", 5),
		Window:         getEnvInt("SHORTSFEED_WINDOW", 1),
		Captions:       getEnvBool("SHORTSFEED_CAPTIONS", false),
		UnmuteOnScroll: getEnvBool("SHORTSFEED_UNMUTE_ON_SCROLL", true),
		ReReportViews:  getEnvBool("SHORTSFEED_REREPORT_VIEWS", false),
		ViewThreshold:  getEnvDuration("SHORTSFEED_VIEW_THRESHOLD", 15*time.Second),
		NatsURL:        getEnv("SHORTSFEED_NATS_URL", ""),
		NatsSubject:    getEnv("SHORTSFEED_NATS_SUBJECT", "video.viewed"),
	}

	if cfg.PageSize < 1 {
		cfg.PageSize = 5
	}
	if cfg.Window < 0 {
		cfg.Window = 1
	}
	if cfg.ViewThreshold <= 0 {
		cfg.ViewThreshold = 15 * time.Second
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("SHORTSFEED_API_URL must be an http(s) URL, got %q", cfg.APIURL)
	}

	return cfg, nil
}

// IsLocal reports whether the CLI runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shortsfeed"
	}
	return filepath.Join(home, ".config", "shortsfeed")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}
