// Package config loads the command line client's settings from flags,
// ODATA_* environment variables, an optional config file and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "ODATA"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the client settings
type Config struct {
	// ServiceURL is the service root, e.g. https://host/odata/
	ServiceURL string            `mapstructure:"service_url" yaml:"service_url"`
	Timeout    time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Headers    map[string]string `mapstructure:"headers" yaml:"headers"`

	// Literal and batch formatting
	BareGUIDs         bool `mapstructure:"bare_guids" yaml:"bare_guids"`
	ContinueOnError   bool `mapstructure:"continue_on_error" yaml:"continue_on_error"`
	ContentBoundaries bool `mapstructure:"content_boundaries" yaml:"content_boundaries"`

	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// RetryConfig controls transport retries
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
	JitterFraction    float64       `mapstructure:"jitter_fraction" yaml:"jitter_fraction"`

	// Writes retries POST, PATCH, PUT and DELETE requests and batches with
	// changesets. Off by default since a timed out write may have been applied.
	Writes bool `mapstructure:"writes" yaml:"writes"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Timeout: 30 * time.Second,
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			JitterFraction:    0.1,
		},
	}
}

// SetDefaults registers every key with v so that environment variables are
// seen by Unmarshal even without a config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("service_url", d.ServiceURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("bare_guids", d.BareGUIDs)
	v.SetDefault("continue_on_error", d.ContinueOnError)
	v.SetDefault("content_boundaries", d.ContentBoundaries)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.initial_backoff", d.Retry.InitialBackoff)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)
	v.SetDefault("retry.backoff_multiplier", d.Retry.BackoffMultiplier)
	v.SetDefault("retry.jitter_fraction", d.Retry.JitterFraction)
	v.SetDefault("retry.writes", d.Retry.Writes)
	v.SetDefault("verbose", d.Verbose)
}

// Load reads configuration into a Config. Precedence, highest first: flags
// bound on v, ODATA_* environment variables, configFile (optional), defaults.
// Nested keys map to variables with underscores: retry.max_retries is
// ODATA_RETRY_MAX_RETRIES.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks the settings for consistency. An empty ServiceURL is
// allowed for commands that never reach the network.
func (c *Config) Validate() error {
	if c.ServiceURL != "" {
		u, err := url.Parse(c.ServiceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: service_url %q must be an absolute URL", ErrInvalidConfig, c.ServiceURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	r := c.Retry
	switch {
	case r.MaxRetries < 0:
		return fmt.Errorf("%w: retry.max_retries must not be negative", ErrInvalidConfig)
	case r.InitialBackoff < 0 || r.MaxBackoff < 0:
		return fmt.Errorf("%w: retry backoffs must not be negative", ErrInvalidConfig)
	case r.BackoffMultiplier < 1 && r.MaxRetries > 0:
		return fmt.Errorf("%w: retry.backoff_multiplier must be at least 1", ErrInvalidConfig)
	case r.JitterFraction < 0 || r.JitterFraction > 1:
		return fmt.Errorf("%w: retry.jitter_fraction must be between 0 and 1", ErrInvalidConfig)
	}
	return nil
}

// RequireServiceURL returns an error when no service URL is configured.
func (c *Config) RequireServiceURL() error {
	if c.ServiceURL == "" {
		return fmt.Errorf("%w: service_url is required (flag --service or %s_SERVICE_URL)", ErrInvalidConfig, EnvPrefix)
	}
	return nil
}
