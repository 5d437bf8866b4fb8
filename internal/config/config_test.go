package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MERALCO_CONFIG", "")

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist-so-use-defaults.yaml"))
	require.Error(t, err, "an explicitly named missing file is an error")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.Retries)
	assert.Equal(t, "meralco-rates-cli/0.1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, "https://company.meralco.com.ph", cfg.Source.BaseURL)
	assert.Equal(t, "/taxonomy/term/86/feed", cfg.Source.RSSPath)
	assert.Equal(t, 1, cfg.Backfill.Concurrency)
	assert.Equal(t, 2.0, cfg.Backfill.BackoffMultiplier)
	assert.Equal(t, 2, cfg.Extract.HeaderDepth)
	assert.Equal(t, 1.0, cfg.Extract.FailureRatio)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Equal(t, "0 6 * * *", cfg.Serve.RefreshSpec)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
http:
  timeout: 30s
  retries: 5
backfill:
  concurrency: 4
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.Retries)
	assert.Equal(t, 4, cfg.Backfill.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "meralco-rates-cli/0.1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, "https://company.meralco.com.ph", cfg.Source.BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  retries: 5\n"), 0o644))

	t.Setenv("MERALCO_HTTP_RETRIES", "7")
	t.Setenv("MERALCO_HTTP_TIMEOUT", "45s")
	t.Setenv("MERALCO_SOURCE_BASE_URL", "https://mirror.example.com/")
	t.Setenv("MERALCO_LOGGING_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.HTTP.Retries, "environment beats file")
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "https://mirror.example.com", cfg.Source.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "warn", cfg.Logging.Level, "level is case folded")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [not, a, mapping"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.HTTP.Retries = 0 },
			wantErr: true,
		},
		{
			name:    "empty user agent",
			mutate:  func(c *Config) { c.HTTP.UserAgent = "" },
			wantErr: true,
		},
		{
			name:    "base url not a url",
			mutate:  func(c *Config) { c.Source.BaseURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "rss path missing leading slash",
			mutate:  func(c *Config) { c.Source.RSSPath = "taxonomy/term/86/feed" },
			wantErr: true,
		},
		{
			name:    "concurrency above cap",
			mutate:  func(c *Config) { c.Backfill.Concurrency = 64 },
			wantErr: true,
		},
		{
			name:    "backoff multiplier below one",
			mutate:  func(c *Config) { c.Backfill.BackoffMultiplier = 0.5 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name: "stderr output needs no file path",
			mutate: func(c *Config) {
				c.Logging.Output = "stderr"
				c.Logging.FilePath = ""
			},
		},
		{
			name: "file output requires a path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.FilePath = ""
			},
			wantErr: true,
		},
		{
			name:    "header depth out of range",
			mutate:  func(c *Config) { c.Extract.HeaderDepth = 9 },
			wantErr: true,
		},
		{
			name:    "refresh enabled without a spec",
			mutate:  func(c *Config) { c.Serve.RefreshSpec = "" },
			wantErr: true,
		},
		{
			name: "refresh disabled allows empty spec",
			mutate: func(c *Config) {
				c.Serve.RefreshEnabled = false
				c.Serve.RefreshSpec = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeClampsBackoffMax(t *testing.T) {
	cfg := Default()
	cfg.Backfill.BackoffBase = 10 * time.Second
	cfg.Backfill.BackoffMax = time.Second
	cfg.normalize()
	assert.Equal(t, 10*time.Second, cfg.Backfill.BackoffMax)
}

func TestSourceURLHelpers(t *testing.T) {
	src := Default().Source
	assert.Equal(t, "https://company.meralco.com.ph/taxonomy/term/86/feed", src.RSSURL())
	assert.Equal(t, "https://company.meralco.com.ph/taxonomy/term/86", src.ArchiveURL(0))
	assert.Equal(t, "https://company.meralco.com.ph/taxonomy/term/86?page=3", src.ArchiveURL(3))
}
