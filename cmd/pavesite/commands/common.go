// Package commands implements the pavesite subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/config"
	"git.home.luguber.info/inful/pavesite/internal/content"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/page"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/seo"
)

// DefaultConfigFile is read when present; its absence means built-in defaults.
const DefaultConfigFile = "pavesite.yaml"

// Global carries shared state into every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pavesite.yaml" env:"PAVESITE_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Serve the site over HTTP"`
	Build    BuildCmd    `cmd:"" help:"Export the site as static HTML"`
	Variants VariantsCmd `cmd:"" help:"Show the content variant each city gets per section"`
	Validate ValidateCmd `cmd:"" help:"Check the registry, variant table and blog posts"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	History  HistoryCmd  `cmd:"" help:"List recent static exports"`

	cfg *config.Config `kong:"-"`
}

// AfterApply runs after flag parsing: load configuration and set up logging once.
func (c *CLI) AfterApply() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	c.cfg = cfg
	slog.SetDefault(newLogger(os.Stderr, cfg.Monitoring.Logging, c.Verbose))
	return nil
}

// Settings returns the loaded configuration.
func (c *CLI) Settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == DefaultConfigFile {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := lc.Level.Slog()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// siteFor maps the site section onto SEO site settings.
func siteFor(sc config.SiteConfig) seo.Site {
	return seo.Site{
		Name:          sc.Name,
		BaseURL:       sc.BaseURL,
		Phone:         sc.Phone,
		Email:         sc.Email,
		Image:         sc.Image,
		TwitterHandle: sc.TwitterHandle,
	}
}

func businessFor(sc config.SiteConfig) content.Business {
	return content.Business{Name: sc.Name, Phone: sc.Phone, Email: sc.Email}
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Content.RegistryFile != "" {
		return registry.LoadFile(cfg.Content.RegistryFile)
	}
	return registry.Default()
}

func loadTable(cfg *config.Config) (*content.Table, error) {
	if cfg.Content.VariantsDir != "" {
		return content.LoadDir(cfg.Content.VariantsDir)
	}
	return content.Default()
}

func blogSource(cfg *config.Config) *blog.Store {
	if cfg.Content.BlogDir != "" {
		return blog.NewStore(blog.DirSource(cfg.Content.BlogDir))
	}
	return blog.NewStore(blog.DefaultSource())
}

// loadSources loads and cross-checks every content source.
func loadSources(cfg *config.Config, now time.Time) (page.Sources, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return page.Sources{}, err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return page.Sources{}, err
	}
	if err := table.Validate(reg, businessFor(cfg.Site)); err != nil {
		return page.Sources{}, err
	}
	store := blogSource(cfg)
	if err := store.Reload(now); err != nil {
		return page.Sources{}, err
	}
	return page.Sources{Registry: reg, Table: table, Blog: store}, nil
}

func newAssembler(cfg *config.Config, rec metrics.Recorder) (*page.Assembler, error) {
	src, err := loadSources(cfg, time.Now())
	if err != nil {
		return nil, err
	}
	return page.NewAssembler(src, siteFor(cfg.Site), page.WithRecorder(rec))
}

// contentPaths lists the on-disk content locations that can change at runtime.
func contentPaths(cfg *config.Config) []string {
	var paths []string
	for _, p := range []string{cfg.Content.RegistryFile, cfg.Content.VariantsDir, cfg.Content.BlogDir} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// contentRoot is where the export looks for the git repository holding content.
func contentRoot(cfg *config.Config) string {
	switch {
	case cfg.Content.BlogDir != "":
		return cfg.Content.BlogDir
	case cfg.Content.VariantsDir != "":
		return cfg.Content.VariantsDir
	case cfg.Content.RegistryFile != "":
		return filepath.Dir(cfg.Content.RegistryFile)
	default:
		return "."
	}
}
