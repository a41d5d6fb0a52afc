// Package config loads the pavesite YAML configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

// Config is the root configuration document.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Server     ServerConfig     `yaml:"server"`
	Content    ContentConfig    `yaml:"content"`
	Build      BuildConfig      `yaml:"build"`
	Cache      CacheConfig      `yaml:"cache"`
	Notify     NotifyConfig     `yaml:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// SiteConfig describes the business behind the site.
type SiteConfig struct {
	Name          string `yaml:"name"`
	BaseURL       string `yaml:"base_url"`
	Phone         string `yaml:"phone,omitempty"`
	Email         string `yaml:"email,omitempty"`
	Image         string `yaml:"image,omitempty"`          // default social sharing image
	TwitterHandle string `yaml:"twitter_handle,omitempty"` // e.g. @sanctuaryseal
}

// ServerConfig configures `pavesite serve`.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	WriteTimeout      string `yaml:"write_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
}

// ContentConfig points at on-disk content. Empty paths select the
// content compiled into the binary.
type ContentConfig struct {
	RegistryFile string `yaml:"registry_file,omitempty"`
	VariantsDir  string `yaml:"variants_dir,omitempty"`
	BlogDir      string `yaml:"blog_dir,omitempty"`
	// PublishInterval is how often scheduled articles are re-evaluated.
	PublishInterval string `yaml:"publish_interval"`
}

// BuildConfig configures static exports.
type BuildConfig struct {
	OutputDir     string `yaml:"output_dir"`
	Concurrency   int    `yaml:"concurrency"`
	HistoryDB     string `yaml:"history_db"`
	SkipLinkCheck bool   `yaml:"skip_link_check,omitempty"`
}

// CacheConfig configures the rendered page cache. A Redis URL switches
// from the in-process cache to a shared one.
type CacheConfig struct {
	Disabled   bool   `yaml:"disabled,omitempty"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
	RedisURL   string `yaml:"redis_url,omitempty"`
	Prefix     string `yaml:"prefix,omitempty"`
}

// NotifyConfig configures publish notifications. Empty NATSURL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MonitoringConfig groups metrics and logging.
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig toggles the Prometheus endpoint at /metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes a configuration document. ${VAR} references are expanded
// from the environment first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a fully defaulted configuration, used when no file exists.
func Default() *Config {
	var cfg Config
	_ = ApplyDefaults(&cfg)
	return &cfg
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			UserAction().
			Build()
	}

	example := Default()
	example.Site.BaseURL = "https://example.com"
	example.Site.Phone = "+1-519-555-0100"
	example.Site.Email = "office@example.com"
	example.Content.BlogDir = "content/blog"
	example.Notify.NATSURL = "${PAVESITE_NATS_URL}"
	example.Monitoring.Metrics.Enabled = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
