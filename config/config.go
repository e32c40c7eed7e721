// Package config loads vaultx settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultBaseURL        = "https://vaultx-backend-763387089865.us-central1.run.app/api"
	DefaultStore          = StoreFS
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultDevAddr        = ":8080"
	DefaultOTPTTL         = 10 * time.Minute
	DefaultMaxOTPAttempts = 5
	DefaultTokenTTL       = 24 * time.Hour
)

// Session store kinds the CLI can use
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
)

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"` // fs only; empty uses the user config dir
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DevServerConfig configures the local API used for development and tests
type DevServerConfig struct {
	Addr           string        `yaml:"addr"`
	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	OTPTTL         time.Duration `yaml:"otp_ttl"`
	MaxOTPAttempts int           `yaml:"max_otp_attempts"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
}

type Config struct {
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// Default returns a config with every field set to its default
func Default() *Config {
	cfg := &Config{}
	cfg.EnsureDefaults()
	return cfg
}

// Load reads path (if not empty), applies environment overrides and fills
// in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		// an empty file decodes to io.EOF
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VAULTX_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("VAULTX_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("VAULTX_HTTP_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid VAULTX_HTTP_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("VAULTX_STORE"); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv("VAULTX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("VAULTX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("VAULTX_DEV_ADDR"); v != "" {
		c.DevServer.Addr = v
	}
	if v := os.Getenv("VAULTX_JWT_SECRET_KEY"); v != "" {
		c.DevServer.JWTSecretKey = v
	}
	return nil
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultHTTPTimeout
	}
	if c.Store.Kind == "" {
		c.Store.Kind = DefaultStore
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.DevServer.Addr == "" {
		c.DevServer.Addr = DefaultDevAddr
	}
	if c.DevServer.OTPTTL <= 0 {
		c.DevServer.OTPTTL = DefaultOTPTTL
	}
	if c.DevServer.MaxOTPAttempts <= 0 {
		c.DevServer.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	if c.DevServer.TokenTTL <= 0 {
		c.DevServer.TokenTTL = DefaultTokenTTL
	}
}

// Validate rejects settings the CLI cannot act on
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFS:
	default:
		return fmt.Errorf("unknown store kind %q (want %q or %q)", c.Store.Kind, StoreMemory, StoreFS)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level, or Info if it is not valid
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// parseDuration accepts Go durations ("45s") or a bare number of seconds
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
