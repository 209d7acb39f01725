package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cesargomez89/mias/internal/constants"
)

func validConfig() Config {
	cfg := *Defaults()
	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	return cfg
}

func TestLoad(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected Port to be %s, got %s", constants.DefaultPort, cfg.Port)
	}

	if cfg.DBPath != constants.DefaultDBPath {
		t.Errorf("Expected DBPath to be %s, got %s", constants.DefaultDBPath, cfg.DBPath)
	}

	if cfg.Spotify.APIURL != constants.DefaultSpotifyAPIURL {
		t.Errorf("Expected APIURL to be %s, got %s", constants.DefaultSpotifyAPIURL, cfg.Spotify.APIURL)
	}

	if cfg.TopN != constants.DefaultTopN {
		t.Errorf("Expected TopN to be %d, got %d", constants.DefaultTopN, cfg.TopN)
	}

	if cfg.API.RateLimit != constants.DefaultRateLimit {
		t.Errorf("Expected RateLimit to be %d, got %d", constants.DefaultRateLimit, cfg.API.RateLimit)
	}

	want := []string{"AU", "GB", "US", "CA", "JM", "ZA"}
	if !slices.Equal(cfg.Spotify.Markets, want) {
		t.Errorf("Expected markets %v, got %v", want, cfg.Spotify.Markets)
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("SPOTIFY_CLIENT_ID", "abc")
	t.Setenv("SPOTIFY_MARKETS", "US, MX,")
	t.Setenv("TOP_N", "10")
	t.Setenv("CACHE_TTL", "1h30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be 9090, got %s", cfg.Port)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected DBPath to be /tmp/test.db, got %s", cfg.DBPath)
	}

	if cfg.Spotify.ClientID != "abc" {
		t.Errorf("Expected ClientID to be abc, got %s", cfg.Spotify.ClientID)
	}

	if !slices.Equal(cfg.Spotify.Markets, []string{"US", "MX"}) {
		t.Errorf("Expected markets [US MX], got %v", cfg.Spotify.Markets)
	}

	if cfg.TopN != 10 {
		t.Errorf("Expected TopN to be 10, got %d", cfg.TopN)
	}

	if cfg.CacheTTL != 90*time.Minute {
		t.Errorf("Expected CacheTTL to be 1h30m, got %s", cfg.CacheTTL)
	}

	if !slices.Equal(cfg.API.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("unexpected CORS origins %v", cfg.API.CORSOrigins)
	}

	if cfg.API.RateLimit != 0 {
		t.Errorf("Expected RateLimit to be 0, got %d", cfg.API.RateLimit)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv(FileEnv, "")

	t.Run("top n", func(t *testing.T) {
		t.Setenv("TOP_N", "ten")
		if _, err := Load(); err == nil {
			t.Error("expected error for non numeric TOP_N")
		}
	})

	t.Run("rate limit", func(t *testing.T) {
		t.Setenv("RATE_LIMIT", "lots")
		if _, err := Load(); err == nil {
			t.Error("expected error for non numeric RATE_LIMIT")
		}
	})

	t.Run("cache ttl", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "a day")
		if _, err := Load(); err == nil {
			t.Error("expected error for bad CACHE_TTL")
		}
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mias.yaml")
	content := `
port: "7070"
log_level: debug
cache_ttl: 2h
spotify:
  client_id: from-file
  client_secret: s3cret
  markets: [SE, NO]
  request_interval: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("SPOTIFY_CLIENT_ID", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "7070" || cfg.LogLevel != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.CacheTTL != 2*time.Hour {
		t.Errorf("Expected CacheTTL 2h, got %s", cfg.CacheTTL)
	}
	if cfg.Spotify.ClientID != "from-env" {
		t.Errorf("environment must override the file, got %s", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.ClientSecret != "s3cret" {
		t.Errorf("Expected secret from file, got %s", cfg.Spotify.ClientSecret)
	}
	if cfg.Spotify.RequestInterval != 250*time.Millisecond {
		t.Errorf("Expected request interval 250ms, got %s", cfg.Spotify.RequestInterval)
	}
	if !slices.Equal(cfg.Spotify.Markets, []string{"SE", "NO"}) {
		t.Errorf("Expected markets [SE NO], got %v", cfg.Spotify.Markets)
	}
	if cfg.DBPath != constants.DefaultDBPath {
		t.Errorf("unset keys must keep defaults, got %s", cfg.DBPath)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(FileEnv, filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("port: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, bad)
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"invalid port - not a number", func(c *Config) { c.Port = "abc" }, true},
		{"invalid port - out of range", func(c *Config) { c.Port = "99999" }, true},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"missing client secret", func(c *Config) { c.Spotify.ClientSecret = "" }, true},
		{"relative api url", func(c *Config) { c.Spotify.APIURL = "/v1" }, true},
		{"empty auth url", func(c *Config) { c.Spotify.AuthURL = "" }, true},
		{"top n zero", func(c *Config) { c.TopN = 0 }, true},
		{"top n above max", func(c *Config) { c.TopN = constants.MaxTopN + 1 }, true},
		{"negative cache ttl", func(c *Config) { c.CacheTTL = -time.Second }, true},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT cannot be empty", "LOG_FORMAT must be one of"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	value := getEnv("TEST_VAR", "default")
	if value != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", value)
	}

	value = getEnv("NON_EXISTENT_VAR", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
