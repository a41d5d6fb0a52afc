package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("site:\n  name: Test Paving\n"))
	require.NoError(t, err)

	assert.Equal(t, "Test Paving", cfg.Site.Name)
	assert.Equal(t, DefaultBaseURL, cfg.Site.BaseURL)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeoutDuration())
	assert.Equal(t, 15*time.Minute, cfg.Content.PublishIntervalDuration())
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTLDuration())
	assert.Equal(t, DefaultOutputDir, cfg.Build.OutputDir)
	assert.Positive(t, cfg.Build.Concurrency)
	assert.Equal(t, DefaultCacheEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, LogLevelInfo, cfg.Monitoring.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Monitoring.Logging.Format)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("PAVESITE_TEST_BASE", "https://paving.example.ca")
	t.Setenv("PAVESITE_TEST_REDIS", "redis://cache:6379/0")

	cfg, err := Parse([]byte(`
site:
  base_url: ${PAVESITE_TEST_BASE}
cache:
  redis_url: ${PAVESITE_TEST_REDIS}
monitoring:
  logging:
    level: DEBUG
    format: Json
`))
	require.NoError(t, err)
	assert.Equal(t, "https://paving.example.ca", cfg.Site.BaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, LogLevelDebug, cfg.Monitoring.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Monitoring.Logging.Format)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"relative base url": "site:\n  base_url: /site\n",
		"bad duration":      "server:\n  write_timeout: soon\n",
		"negative ttl":      "cache:\n  ttl: -1s\n",
		"redis scheme":      "cache:\n  redis_url: http://cache\n",
		"nats url":          "notify:\n  nats_url: localhost\n",
		"concurrency":       "build:\n  concurrency: 1000\n",
		"malformed yaml":    "site: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pavesite.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Site.BaseURL)
	assert.True(t, cfg.Monitoring.Metrics.Enabled)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PAVESITE_TEST_PHONE=+1-705-555-0199\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("site:\n  phone: ${PAVESITE_TEST_PHONE}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PAVESITE_TEST_PHONE") })

	cfg, err := Load("c.yaml")
	require.NoError(t, err)
	assert.Equal(t, "+1-705-555-0199", cfg.Site.Phone)
}

func TestSnapshot(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Snapshot(), b.Snapshot())

	b.Server.Addr = ":9090"
	assert.Equal(t, a.Snapshot(), b.Snapshot(), "server settings do not affect output")

	b.Site.Phone = "+1-613-555-0100"
	assert.NotEqual(t, a.Snapshot(), b.Snapshot())
	assert.Regexp(t, `^pavesite:[0-9a-f]{12}:$`, a.CacheKeyPrefix())
}

func TestLogLevelSlog(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" Warning "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, "DEBUG", LogLevelDebug.Slog().String())
	assert.Equal(t, "ERROR", LogLevelError.Slog().String())
}
