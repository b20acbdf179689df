// Package config loads the creatorflow process configuration.
//
// Precedence: defaults, then the YAML file, then environment variables.
// Credentials are checked eagerly by Validate; a *ConfigError is fatal at
// startup.
//
//	cfg, err := config.Load("creatorflow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
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

	"github.com/mhpenta/creatorflow/provider/gemini"
)

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	Featherless TextConfig    `yaml:"featherless"`
	Gemini      ImageConfig   `yaml:"gemini"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Pipeline    StageConfig   `yaml:"pipeline"`
	Log         LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxUploadBytes bounds a whole multipart request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Global request rate; zero disables the limiter.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// CORSAllowedOrigins accepts exact origins and "https://*.example.com" patterns.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// TextConfig configures the OpenAI-compatible text provider.
type TextConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ImageConfig configures the Gemini image provider.
type ImageConfig struct {
	APIKey         string                 `yaml:"api_key"`
	Model          string                 `yaml:"model"`
	SafetySettings []gemini.SafetySetting `yaml:"safety_settings"`
}

// GatewayConfig configures timeouts, retries and rate budgets of provider calls.
type GatewayConfig struct {
	CallTimeout      time.Duration `yaml:"call_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	WaitOnRateLimit  bool          `yaml:"wait_on_rate_limit"`
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`
}

// StageConfig tunes the text completions of each stage. Zero values use the
// stage defaults.
type StageConfig struct {
	PromptTemperature  float32 `yaml:"prompt_temperature"`
	PromptMaxTokens    int     `yaml:"prompt_max_tokens"`
	CaptionTemperature float32 `yaml:"caption_temperature"`
	CaptionMaxTokens   int     `yaml:"caption_max_tokens"`
	StyleTemperature   float32 `yaml:"style_temperature"`
	StyleMaxTokens     int     `yaml:"style_max_tokens"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ConfigError reports a configuration problem. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var cErr *ConfigError
	return errors.As(err, &cErr)
}

// Default returns the configuration used before the file and the environment
// are applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8000",
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       120 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			MaxUploadBytes:     45 << 20,
			RateLimitRPS:       5,
			RateLimitBurst:     10,
			CORSAllowedOrigins: []string{"http://localhost:3000", "https://*.vercel.app"},
		},
		Featherless: TextConfig{
			BaseURL: "https://api.featherless.ai/v1",
		},
		Gateway: GatewayConfig{
			CallTimeout:      30 * time.Second,
			MaxRetries:       2,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       5 * time.Second,
			MaxRateLimitWait: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration from path (optional), applies the environment
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv overrides fields from the environment. Credentials use the vendor
// variable names; everything else is prefixed with CREATORFLOW_.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Field: key, Reason: fmt.Sprintf("invalid duration %q", v)}
		}
		*dst = d
		return nil
	}

	str("FEATHERLESS_API_KEY", &c.Featherless.APIKey)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)

	str("CREATORFLOW_ADDR", &c.Server.Addr)
	str("CREATORFLOW_FEATHERLESS_BASE_URL", &c.Featherless.BaseURL)
	str("CREATORFLOW_FEATHERLESS_MODEL", &c.Featherless.Model)
	str("CREATORFLOW_GEMINI_MODEL", &c.Gemini.Model)
	str("CREATORFLOW_LOG_LEVEL", &c.Log.Level)
	str("CREATORFLOW_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("CREATORFLOW_CORS_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSAllowedOrigins = origins
	}

	if v, ok := lookup("CREATORFLOW_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "CREATORFLOW_MAX_RETRIES", Reason: fmt.Sprintf("invalid integer %q", v)}
		}
		c.Gateway.MaxRetries = n
	}

	return errors.Join(
		dur("CREATORFLOW_CALL_TIMEOUT", &c.Gateway.CallTimeout),
		dur("CREATORFLOW_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout),
	)
}

// Validate checks credentials and value ranges. The first problem is
// returned as a *ConfigError.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Featherless.APIKey) == "":
		return &ConfigError{Field: "featherless.api_key", Reason: "FEATHERLESS_API_KEY is not set"}
	case strings.TrimSpace(c.Gemini.APIKey) == "":
		return &ConfigError{Field: "gemini.api_key", Reason: "GEMINI_API_KEY is not set"}
	case c.Server.Addr == "":
		return &ConfigError{Field: "server.addr", Reason: "must not be empty"}
	case c.Server.MaxUploadBytes <= 0:
		return &ConfigError{Field: "server.max_upload_bytes", Reason: "must be positive"}
	case c.Server.RateLimitRPS < 0:
		return &ConfigError{Field: "server.rate_limit_rps", Reason: "must not be negative"}
	case c.Gateway.CallTimeout <= 0:
		return &ConfigError{Field: "gateway.call_timeout", Reason: "must be positive"}
	case c.Gateway.MaxRetries < 0:
		return &ConfigError{Field: "gateway.max_retries", Reason: "must not be negative"}
	}

	if _, err := c.Log.level(); err != nil {
		return &ConfigError{Field: "log.level", Reason: err.Error()}
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		return &ConfigError{Field: "log.format", Reason: fmt.Sprintf("unknown format %q (want json or text)", c.Log.Format)}
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// NewLogger builds the process logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(l.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
