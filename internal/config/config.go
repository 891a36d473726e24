package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the client.
type Config struct {
	// APIURL is the base URL of the remote API.
	APIURL string `yaml:"api_url"`

	// SessionDB is the path of the SQLite file holding the persisted session.
	// Empty disables persistence.
	SessionDB string `yaml:"session_db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timeout bounds every request.
	Timeout time.Duration `yaml:"timeout"`

	// RequirePicture makes registration fail validation without a profile
	// picture.
	RequirePicture bool `yaml:"require_picture"`
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:         "http://localhost:3000",
		SessionDB:      filepath.Join(homeDir(), ".connectify", "session.db"),
		LogLevel:       "info",
		Timeout:        30 * time.Second,
		RequirePicture: true,
	}
}

// DefaultProfilePath is where Load looks for the YAML profile when
// CONNECTIFY_PROFILE is unset.
func DefaultProfilePath() string {
	return filepath.Join(homeDir(), ".connectify", "config.yaml")
}

// Load reads configuration from the optional YAML profile and then from
// environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("CONNECTIFY_PROFILE")
	explicit := path != ""
	if !explicit {
		path = DefaultProfilePath()
	}
	if err := cfg.loadProfile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProfile overlays the YAML file at path. A missing file is only an
// error when it was named explicitly.
func (c *Config) loadProfile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read profile %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse profile %s: %w", path, err)
	}
	c.SessionDB = expandHome(c.SessionDB)
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CONNECTIFY_API_URL"); v != "" {
		c.APIURL = v
	}

	if v, ok := os.LookupEnv("CONNECTIFY_SESSION_DB"); ok {
		c.SessionDB = expandHome(v)
	}

	if v := os.Getenv("CONNECTIFY_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv("CONNECTIFY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CONNECTIFY_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	if v := os.Getenv("CONNECTIFY_REQUIRE_PICTURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CONNECTIFY_REQUIRE_PICTURE: %w", err)
		}
		c.RequirePicture = b
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

// FakeAPI holds configuration for cmd/fakeapi.
type FakeAPI struct {
	// Port is the HTTP server port.
	Port int

	// Secret signs issued tokens.
	Secret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// Seed loads demo users and posts at startup.
	Seed bool
}

// LoadFakeAPI reads the fake API's configuration from environment variables
// with sensible defaults.
func LoadFakeAPI() (*FakeAPI, error) {
	port := 3000
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	secret := os.Getenv("FAKEAPI_JWT_SECRET")
	if secret == "" {
		secret = "fakeapi-secret"
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("FAKEAPI_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FAKEAPI_TOKEN_TTL: %w", err)
		}
		ttl = d
	}

	seed := true
	if v := os.Getenv("FAKEAPI_SEED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FAKEAPI_SEED: %w", err)
		}
		seed = b
	}

	return &FakeAPI{
		Port:     port,
		Secret:   secret,
		TokenTTL: ttl,
		Seed:     seed,
	}, nil
}
