// Package config provides configuration loading for the loupe CLI and for
// applications embedding the client.
//
// Configuration is loaded in the following order (later sources override
// earlier ones):
//  1. Default values (SetConfigDefaults)
//  2. Configuration files (./loupe.yaml, ~/.loupe/loupe.yaml, /etc/loupe/loupe.yaml)
//  3. Environment variables with the LOUPE_ prefix
//
// Environment variables use underscores for nested keys:
//   - LOUPE_CLIENT_BASE_URL=http://localhost:7700
//   - LOUPE_CLIENT_API_KEY=masterKey
//   - LOUPE_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig contains the connection settings for the Loupe server.
type ClientConfig struct {
	// BaseURL is the Loupe server root URL (e.g. http://localhost:7700)
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates requests; empty for unprotected instances
	APIKey string `mapstructure:"api_key"`

	// Timeout is the per-request timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryCount is the number of retries on transport or 5xx failures
	RetryCount int `mapstructure:"retry_count"`

	// RetryInterval is the initial backoff interval between retries
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// RateLimit caps client-side requests per second (0 = unlimited)
	RateLimit float64 `mapstructure:"rate_limit"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format"`
}

// Config is the top-level configuration for the loupe CLI.
type Config struct {
	// Client contains the server connection settings
	Client ClientConfig `mapstructure:"client"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.Client.BaseURL == "" {
		return errors.New("client.base_url is required")
	}
	parsed, err := url.Parse(c.Client.BaseURL)
	if err != nil {
		return fmt.Errorf("client.base_url is invalid: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("client.base_url %q: scheme must be http or https", c.Client.BaseURL)
	}
	if c.Client.RetryCount < 0 {
		return errors.New("client.retry_count must not be negative")
	}
	if c.Client.RateLimit < 0 {
		return errors.New("client.rate_limit must not be negative")
	}
	return nil
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a new configuration loader with the given environment
// prefix (e.g. "LOUPE" -> "LOUPE_CLIENT_BASE_URL").
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// SetDefaults sets default configuration values.
// This should be called before Load().
func (l *Loader) SetDefaults(defaults map[string]interface{}) {
	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}
}

// SetConfigDefaults sets the standard loupe defaults.
func (l *Loader) SetConfigDefaults() {
	l.v.SetDefault("client.base_url", "http://localhost:7700")
	l.v.SetDefault("client.api_key", "")
	l.v.SetDefault("client.timeout", "30s")
	l.v.SetDefault("client.retry_count", 0)
	l.v.SetDefault("client.retry_interval", "1s")
	l.v.SetDefault("client.rate_limit", 0)

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")
}

// Load reads configuration from file and environment variables into target.
// If cfgFile is empty, loupe.yaml is searched in the standard locations.
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("loupe")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.loupe")
		l.v.AddConfigPath("/etc/loupe")
	}

	// Environment variables override file values
	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	return nil
}

// LoadConfig is the one-call helper used by the CLI: defaults, optional
// config file, environment, then validation.
func LoadConfig(cfgFile string) (*Config, error) {
	loader := NewLoader("LOUPE")
	loader.SetConfigDefaults()

	var cfg Config
	if err := loader.Load(cfgFile, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
