package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cesargomez89/mias/internal/constants"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "MIAS_CONFIG"

// Config holds all application configuration
type Config struct {
	Port      string        `yaml:"port"`
	DBPath    string        `yaml:"db_path"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	TopN      int           `yaml:"top_n"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	Spotify   Spotify       `yaml:"spotify"`
	API       API           `yaml:"api"`
}

// API holds the HTTP surface settings.
type API struct {
	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// disables CORS.
	CORSOrigins []string `yaml:"cors_origins"`
	// RateLimit caps recommendation requests per client IP and minute. Zero
	// disables the limit.
	RateLimit int `yaml:"rate_limit"`
}

// Spotify holds the Web API credentials and endpoints.
type Spotify struct {
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	APIURL          string        `yaml:"api_url"`
	AuthURL         string        `yaml:"auth_url"`
	Markets         []string      `yaml:"markets"`
	RequestInterval time.Duration `yaml:"request_interval"`
	RetryCount      int           `yaml:"retry_count"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:      constants.DefaultPort,
		DBPath:    constants.DefaultDBPath,
		LogLevel:  "info",
		LogFormat: "text",
		TopN:      constants.DefaultTopN,
		CacheTTL:  constants.DefaultCacheTTL,
		Spotify: Spotify{
			APIURL:          constants.DefaultSpotifyAPIURL,
			AuthURL:         constants.DefaultSpotifyAuth,
			Markets:         splitList(constants.DefaultMarkets),
			RequestInterval: constants.DefaultRequestRate,
			RetryCount:      constants.DefaultRetryCount,
		},
		API: API{
			RateLimit: constants.DefaultRateLimit,
		},
	}
}

// Load starts from Defaults, applies the YAML file named by MIAS_CONFIG if
// set, then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Spotify.ClientID = getEnv("SPOTIFY_CLIENT_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getEnv("SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret)
	c.Spotify.APIURL = getEnv("SPOTIFY_API_URL", c.Spotify.APIURL)
	c.Spotify.AuthURL = getEnv("SPOTIFY_AUTH_URL", c.Spotify.AuthURL)
	if v, ok := os.LookupEnv("SPOTIFY_MARKETS"); ok {
		c.Spotify.Markets = splitList(v)
	}

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.API.CORSOrigins = splitList(v)
	}

	if v, ok := os.LookupEnv("RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT must be a number, got: %s", v)
		}
		c.API.RateLimit = n
	}
	if v, ok := os.LookupEnv("TOP_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOP_N must be a number, got: %s", v)
		}
		c.TopN = n
	}
	if v, ok := os.LookupEnv("CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL must be a duration, got: %s", v)
		}
		c.CacheTTL = d
	}
	return nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	for _, u := range []struct{ name, raw string }{
		{"SPOTIFY_API_URL", c.Spotify.APIURL},
		{"SPOTIFY_AUTH_URL", c.Spotify.AuthURL},
	} {
		name, raw := u.name, u.raw
		if raw == "" {
			errors = append(errors, name+" cannot be empty")
			continue
		}
		if parsed, err := url.Parse(raw); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("%s is not a valid URL: %s", name, raw))
		}
	}

	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		errors = append(errors, "SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must both be set")
	}

	if c.TopN < 1 || c.TopN > constants.MaxTopN {
		errors = append(errors, fmt.Sprintf("TOP_N must be between 1 and %d, got: %d", constants.MaxTopN, c.TopN))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("CACHE_TTL cannot be negative, got: %s", c.CacheTTL))
	}

	if c.API.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT cannot be negative, got: %d", c.API.RateLimit))
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
