// Package server serves the site over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pavesite/internal/cache"
	derrors "git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/page"
	smw "git.home.luguber.info/inful/pavesite/internal/server/middleware"
)

// Options configures a Server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	// Cache stores rendered responses; nil disables caching.
	Cache    cache.Cache
	Recorder metrics.Recorder
	// MetricsRegistry, when set, is exposed on /metrics.
	MetricsRegistry *prom.Registry
}

// Server serves pages assembled by a page.Assembler.
type Server struct {
	opts         Options
	gen          atomic.Pointer[generation]
	genMu        sync.Mutex
	cache        cache.Cache
	recorder     metrics.Recorder
	errorAdapter *derrors.HTTPErrorAdapter
	handler      http.Handler
	startTime    time.Time

	httpServer *http.Server
	addr       string
}

// New constructs a server for asm.
func New(asm *page.Assembler, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	s := &Server{
		opts:         opts,
		cache:        opts.Cache,
		recorder:     opts.Recorder,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
		startTime:    time.Now(),
	}
	s.gen.Store(&generation{asm: asm})

	mchain := smw.Chain(slog.Default(), s.errorAdapter, s.recorder)
	s.handler = mchain(s.routes())
	return s
}

// Handler returns the full handler including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// generation pairs an assembler with a counter that moves on every swap or
// purge. Cache keys carry the counter, so a response rendered by a request
// that started before a reload is never served after it.
type generation struct {
	asm *page.Assembler
	n   uint64
}

func (g *generation) key(path string) string {
	return strconv.FormatUint(g.n, 10) + ":" + path
}

func (s *Server) current() *generation { return s.gen.Load() }

// advance starts a new generation. A nil asm keeps the current assembler.
func (s *Server) advance(asm *page.Assembler) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	cur := s.gen.Load()
	if asm == nil {
		asm = cur.asm
	}
	s.gen.Store(&generation{asm: asm, n: cur.n + 1})
}

// Assembler returns the assembler currently serving requests.
func (s *Server) Assembler() *page.Assembler { return s.current().asm }

// Swap replaces the assembler after a content reload and purges cached pages.
func (s *Server) Swap(ctx context.Context, asm *page.Assembler) error {
	s.advance(asm)
	return s.purge(ctx)
}

// Purge drops every cached response.
func (s *Server) Purge(ctx context.Context) error {
	s.advance(nil)
	return s.purge(ctx)
}

func (s *Server) purge(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Purge(ctx); err != nil {
		return err
	}
	slog.Info("Page cache purged")
	return nil
}

// Start binds the listener and serves in the background. Binding happens
// before Start returns so a busy port fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "http startup failed").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("site server error", logfields.Error(err))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", s.addr))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("site server shutdown: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("HTTP server stopped")
	return nil
}
