package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/cache"
	"git.home.luguber.info/inful/pavesite/internal/config"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/preview"
	"git.home.luguber.info/inful/pavesite/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr  string `help:"Listen address (overrides server.addr)"`
	Watch bool   `short:"w" help:"Reload content when files change"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := root.Settings()
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	live, err := startSite(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out(), "Serving %s on http://%s\n", cfg.Site.Name, live.srv.Addr())

	if s.Watch {
		paths := contentPaths(cfg)
		if len(paths) == 0 {
			slog.Warn("Nothing to watch: all content is compiled in")
		} else {
			w, err := preview.New(paths, preview.DefaultDebounce, live.reload)
			if err != nil {
				_ = live.stop(context.Background())
				return err
			}
			w.Start(ctx)
			defer func() { _ = w.Stop() }()
			slog.Info("Watching content for changes", logfields.Count(len(paths)))
		}
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping server")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer stopCancel()
	return live.stop(stopCtx)
}

// liveSite is a running server plus the schedule that publishes articles.
type liveSite struct {
	cfg *config.Config
	srv *server.Server
	rec metrics.Recorder

	mu    sync.Mutex
	sched *blog.Scheduler
}

func startSite(ctx context.Context, cfg *config.Config) (*liveSite, error) {
	var (
		rec metrics.Recorder = metrics.NoopRecorder{}
		reg *prom.Registry
	)
	if cfg.Monitoring.Metrics.Enabled {
		reg = metrics.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
	}

	asm, err := newAssembler(cfg, rec)
	if err != nil {
		return nil, err
	}
	pc, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv := server.New(asm, server.Options{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
		Cache:             pc,
		Recorder:          rec,
		MetricsRegistry:   reg,
	})
	if err := srv.Start(ctx); err != nil {
		if pc != nil {
			_ = pc.Close()
		}
		return nil, err
	}

	live := &liveSite{cfg: cfg, srv: srv, rec: rec}
	if err := live.schedule(asm.Blog()); err != nil {
		_ = srv.Stop(context.Background())
		return nil, err
	}
	return live, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Disabled {
		return nil, nil
	}
	ttl := cfg.Cache.TTLDuration()
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.CacheKeyPrefix(), ttl)
		if err != nil {
			return nil, err
		}
		slog.Info("Using shared page cache", slog.String("backend", "redis"))
		return rc, nil
	}
	return cache.NewMemory(ttl, cfg.Cache.MaxEntries), nil
}

// schedule starts publishing refreshes for store, replacing any previous schedule.
func (l *liveSite) schedule(store *blog.Store) error {
	sched, err := blog.NewScheduler(store, l.cfg.Content.PublishIntervalDuration(), func() {
		if err := l.srv.Purge(context.Background()); err != nil {
			slog.Warn("Failed to purge page cache after publishing", logfields.Error(err))
		}
	})
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	l.mu.Lock()
	old := l.sched
	l.sched = sched
	l.mu.Unlock()
	if old != nil {
		return old.Stop()
	}
	return nil
}

// reload rebuilds every content source and swaps it into the server.
func (l *liveSite) reload(ctx context.Context) error {
	asm, err := newAssembler(l.cfg, l.rec)
	if err != nil {
		return err
	}
	if err := l.srv.Swap(ctx, asm); err != nil {
		return err
	}
	return l.schedule(asm.Blog())
}

func (l *liveSite) stop(ctx context.Context) error {
	l.mu.Lock()
	sched := l.sched
	l.sched = nil
	l.mu.Unlock()
	if sched != nil {
		if err := sched.Stop(); err != nil {
			slog.Warn("Failed to stop publishing schedule", logfields.Error(err))
		}
	}
	return l.srv.Stop(ctx)
}
