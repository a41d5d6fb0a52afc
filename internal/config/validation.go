package config

import (
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

// ValidateConfig checks a defaulted configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.ConfigError("configuration is nil").Build()
	}
	if strings.TrimSpace(cfg.Site.Name) == "" {
		return invalid("site.name", "must not be empty", cfg.Site.Name)
	}
	u, err := url.Parse(cfg.Site.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("site.base_url", "must be an absolute http(s) URL", cfg.Site.BaseURL)
	}
	durations := []struct{ field, value string }{
		{"server.read_header_timeout", cfg.Server.ReadHeaderTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout},
		{"content.publish_interval", cfg.Content.PublishInterval},
		{"cache.ttl", cfg.Cache.TTL},
	}
	for _, d := range durations {
		if v, err := time.ParseDuration(d.value); err != nil || v <= 0 {
			return invalid(d.field, "must be a positive duration such as 30s", d.value)
		}
	}
	if cfg.Build.Concurrency > 64 {
		return invalid("build.concurrency", "must be at most 64", cfg.Build.Concurrency)
	}
	if cfg.Cache.RedisURL != "" && !strings.HasPrefix(cfg.Cache.RedisURL, "redis://") &&
		!strings.HasPrefix(cfg.Cache.RedisURL, "rediss://") {
		return invalid("cache.redis_url", "must use the redis:// or rediss:// scheme", cfg.Cache.RedisURL)
	}
	if cfg.Notify.NATSURL != "" && !strings.Contains(cfg.Notify.NATSURL, "://") {
		return invalid("notify.nats_url", "must be a URL such as nats://localhost:4222", cfg.Notify.NATSURL)
	}
	return nil
}

func invalid(field, msg string, value any) error {
	return errors.ConfigError(field + " " + msg).
		WithContext("field", field).
		WithContext("value", value).
		UserAction().
		Build()
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ReadHeaderTimeoutDuration returns the parsed server.read_header_timeout.
func (s ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return mustDuration(s.ReadHeaderTimeout) }

// WriteTimeoutDuration returns the parsed server.write_timeout.
func (s ServerConfig) WriteTimeoutDuration() time.Duration { return mustDuration(s.WriteTimeout) }

// ShutdownTimeoutDuration returns the parsed server.shutdown_timeout.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration { return mustDuration(s.ShutdownTimeout) }

// PublishIntervalDuration returns the parsed content.publish_interval.
func (c ContentConfig) PublishIntervalDuration() time.Duration { return mustDuration(c.PublishInterval) }

// TTLDuration returns the parsed cache.ttl.
func (c CacheConfig) TTLDuration() time.Duration { return mustDuration(c.TTL) }
