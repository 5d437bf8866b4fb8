// Package config loads the CLI and server configuration. Precedence is
// defaults, then the YAML config file, then MERALCO_* environment
// variables, so containerized deployments can override a checked-in
// file without editing it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g.
// MERALCO_HTTP_TIMEOUT or MERALCO_BACKFILL_CONCURRENCY.
const EnvPrefix = "MERALCO"

// Config is the complete application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http" envconfig:"HTTP"`
	Source   SourceConfig   `yaml:"source" envconfig:"SOURCE"`
	Backfill BackfillConfig `yaml:"backfill" envconfig:"BACKFILL"`
	Extract  ExtractConfig  `yaml:"extract" envconfig:"EXTRACT"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Serve    ServeConfig    `yaml:"serve" envconfig:"SERVE"`
}

// HTTPConfig tunes the outbound client used against the Meralco site.
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"required"`
	Retries        int           `yaml:"retries" envconfig:"RETRIES" validate:"min=1,max=10"`
	UserAgent      string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"min=1"`
}

// SourceConfig locates the publication endpoints on the Meralco site.
type SourceConfig struct {
	BaseURL     string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	RSSPath     string `yaml:"rss_path" envconfig:"RSS_PATH" validate:"required,startswith=/"`
	ArchivePath string `yaml:"archive_path" envconfig:"ARCHIVE_PATH" validate:"required,startswith=/"`
}

// BackfillConfig tunes the multi-month orchestrator.
type BackfillConfig struct {
	Concurrency       int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1,max=8"`
	RetryAttempts     int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS" validate:"min=1,max=10"`
	BackoffBase       time.Duration `yaml:"backoff_base" envconfig:"BACKOFF_BASE" validate:"required"`
	BackoffMax        time.Duration `yaml:"backoff_max" envconfig:"BACKOFF_MAX" validate:"required"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" envconfig:"BACKOFF_MULTIPLIER" validate:"gte=1"`
}

// ExtractConfig tunes table canonicalization.
type ExtractConfig struct {
	HeaderDepth  int     `yaml:"header_depth" envconfig:"HEADER_DEPTH" validate:"min=1,max=4"`
	FailureRatio float64 `yaml:"failure_ratio" envconfig:"FAILURE_RATIO" validate:"gt=0"`
}

// LoggingConfig controls the slog setup.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout stderr file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output stdout Output stderr"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ServeConfig tunes the HTTP API server and its scheduled refresh.
type ServeConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"required"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"required"`
	RefreshEnabled  bool          `yaml:"refresh_enabled" envconfig:"REFRESH_ENABLED"`
	RefreshSpec     string        `yaml:"refresh_spec" envconfig:"REFRESH_SPEC" validate:"required_if=RefreshEnabled true"`
}

// Default returns the configuration the CLI ships with. Every value
// here is overridable by file or environment.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:        15 * time.Second,
			Retries:        3,
			UserAgent:      "meralco-rates-cli/0.1.0",
			RateLimitRPS:   1,
			RateLimitBurst: 2,
		},
		Source: SourceConfig{
			BaseURL:     "https://company.meralco.com.ph",
			RSSPath:     "/taxonomy/term/86/feed",
			ArchivePath: "/taxonomy/term/86",
		},
		Backfill: BackfillConfig{
			Concurrency:       1,
			RetryAttempts:     3,
			BackoffBase:       time.Second,
			BackoffMax:        30 * time.Second,
			BackoffMultiplier: 2.0,
		},
		Extract: ExtractConfig{
			HeaderDepth:  2,
			FailureRatio: 1.0,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/meralco-rates.log",
		},
		Serve: ServeConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RefreshEnabled:  true,
			RefreshSpec:     "0 6 * * *",
		},
	}
}

// Load builds the effective configuration. path may be empty, in which
// case MERALCO_CONFIG or a config.yaml in the working directory is
// used when present; a missing file is not an error, a malformed one
// is.
func Load(path string) (*Config, error) {
	// A .env beside the binary is a developer convenience, never a
	// requirement.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	if c.Backfill.BackoffMax < c.Backfill.BackoffBase {
		c.Backfill.BackoffMax = c.Backfill.BackoffBase
	}
}

// Validate checks the assembled configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// RSSURL joins the base URL and feed path.
func (c *SourceConfig) RSSURL() string {
	return c.BaseURL + c.RSSPath
}

// ArchiveURL joins the base URL and archive path for one listing page.
func (c *SourceConfig) ArchiveURL(page int) string {
	if page <= 0 {
		return c.BaseURL + c.ArchivePath
	}
	return fmt.Sprintf("%s%s?page=%d", c.BaseURL, c.ArchivePath, page)
}
