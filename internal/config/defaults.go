package config

import (
	"fmt"
	"runtime"
)

const (
	DefaultSiteName        = "Sanctuary Sealcoating"
	DefaultBaseURL         = "http://localhost:8080"
	DefaultAddr            = ":8080"
	DefaultOutputDir       = "./public"
	DefaultHistoryDB       = "./pavesite-builds.db"
	DefaultPublishInterval = "15m"
	DefaultCacheTTL        = "10m"
	DefaultCacheEntries    = 512
	DefaultCachePrefix     = "pavesite:"
)

// DefaultApplier applies defaults for one configuration section.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles Site defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Name == "" {
		cfg.Site.Name = DefaultSiteName
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = DefaultBaseURL
	}
	return nil
}

// ServerDefaultApplier handles Server defaults.
type ServerDefaultApplier struct{}

func (s *ServerDefaultApplier) Domain() string { return "server" }

func (s *ServerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.ReadHeaderTimeout == "" {
		cfg.Server.ReadHeaderTimeout = "5s"
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = "30s"
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = "10s"
	}
	return nil
}

// ContentDefaultApplier handles Content defaults.
type ContentDefaultApplier struct{}

func (c *ContentDefaultApplier) Domain() string { return "content" }

func (c *ContentDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Content.PublishInterval == "" {
		cfg.Content.PublishInterval = DefaultPublishInterval
	}
	return nil
}

// BuildDefaultApplier handles Build defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = DefaultOutputDir
	}
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = min(runtime.NumCPU(), 8)
	}
	if cfg.Build.HistoryDB == "" {
		cfg.Build.HistoryDB = DefaultHistoryDB
	}
	return nil
}

// CacheDefaultApplier handles Cache defaults.
type CacheDefaultApplier struct{}

func (c *CacheDefaultApplier) Domain() string { return "cache" }

func (c *CacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = DefaultCacheEntries
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}
	return nil
}

// MonitoringDefaultApplier handles Monitoring defaults.
type MonitoringDefaultApplier struct{}

func (m *MonitoringDefaultApplier) Domain() string { return "monitoring" }

func (m *MonitoringDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	return nil
}

// CompositeDefaultApplier applies defaults across all sections.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier for every section.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&SiteDefaultApplier{},
			&ServerDefaultApplier{},
			&ContentDefaultApplier{},
			&BuildDefaultApplier{},
			&CacheDefaultApplier{},
			&MonitoringDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all sections.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// ApplyDefaults fills every unset field of cfg.
func ApplyDefaults(cfg *Config) error {
	return NewDefaultApplier().ApplyDefaults(cfg)
}
