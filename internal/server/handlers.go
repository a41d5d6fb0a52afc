package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/pavesite/internal/cache"
	derrors "git.home.luguber.info/inful/pavesite/internal/foundation/errors"
	"git.home.luguber.info/inful/pavesite/internal/logfields"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/page"
	"git.home.luguber.info/inful/pavesite/internal/seo"
	"git.home.luguber.info/inful/pavesite/internal/version"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Cities    int       `json:"cities"`
	Articles  int       `json:"articles"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.pageHandler(func(ctx context.Context, a *page.Assembler, _ *http.Request) (*page.Page, error) {
		return a.Home(ctx)
	}))
	mux.HandleFunc("GET "+seo.LocationsPath, s.pageHandler(func(ctx context.Context, a *page.Assembler, _ *http.Request) (*page.Page, error) {
		return a.Locations(ctx)
	}))
	mux.HandleFunc("GET "+seo.CityPath("{city}"), s.pageHandler(func(ctx context.Context, a *page.Assembler, r *http.Request) (*page.Page, error) {
		return a.City(ctx, r.PathValue("city"))
	}))
	mux.HandleFunc("GET "+seo.RegionPath("{region}"), s.pageHandler(func(ctx context.Context, a *page.Assembler, r *http.Request) (*page.Page, error) {
		return a.Region(ctx, r.PathValue("region"))
	}))
	mux.HandleFunc("GET "+seo.BlogPath, s.pageHandler(func(ctx context.Context, a *page.Assembler, _ *http.Request) (*page.Page, error) {
		return a.BlogIndex(ctx)
	}))
	mux.HandleFunc("GET "+seo.ArticlePath("{slug}"), s.pageHandler(func(ctx context.Context, a *page.Assembler, r *http.Request) (*page.Page, error) {
		return a.Article(ctx, r.PathValue("slug"))
	}))
	mux.HandleFunc("GET "+seo.SitemapPath, s.handleSitemap)
	mux.HandleFunc("GET "+seo.RobotsPath, s.handleRobots)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.MetricsRegistry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.opts.MetricsRegistry))
	}
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

type pageFunc func(ctx context.Context, a *page.Assembler, r *http.Request) (*page.Page, error)

// pageHandler serves an assembled page through the response cache.
func (s *Server) pageHandler(build pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g := s.current()
		a := g.asm
		s.serveCached(w, r, g, func(ctx context.Context) (cache.Entry, error) {
			p, err := build(ctx, a, r)
			if err != nil {
				return cache.Entry{}, err
			}
			var buf bytes.Buffer
			if err := a.Render(&buf, p); err != nil {
				return cache.Entry{}, err
			}
			etag := ""
			if p.ETag != "" {
				etag = `"` + p.ETag + `"`
			}
			return cache.Entry{Body: buf.Bytes(), ContentType: contentTypeHTML, ETag: etag}, nil
		})
	}
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	g := s.current()
	a := g.asm
	s.serveCached(w, r, g, func(context.Context) (cache.Entry, error) {
		body, err := a.Sitemap()
		if err != nil {
			return cache.Entry{}, err
		}
		return cache.Entry{Body: body, ContentType: contentTypeXML}, nil
	})
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	g := s.current()
	a := g.asm
	s.serveCached(w, r, g, func(context.Context) (cache.Entry, error) {
		return cache.Entry{Body: a.Robots(), ContentType: contentTypeText}, nil
	})
}

// serveCached answers from the cache when possible, otherwise builds the
// entry, stores it under g's key and writes it. Cache failures are logged
// and bypassed.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, g *generation, build func(context.Context) (cache.Entry, error)) {
	ctx := r.Context()
	key := g.key(r.URL.Path)

	if s.cache != nil {
		e, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("page cache read failed", logfields.Path(r.URL.Path), logfields.Error(err))
		}
		s.recorder.IncCacheResult(ok)
		if ok {
			w.Header().Set("X-Cache", "HIT")
			writeEntry(w, r, e)
			return
		}
	}

	e, err := build(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, e); err != nil {
			slog.Warn("page cache write failed", logfields.Path(r.URL.Path), logfields.Error(err))
		}
		w.Header().Set("X-Cache", "MISS")
	}
	writeEntry(w, r, e)
}

func writeEntry(w http.ResponseWriter, r *http.Request, e cache.Entry) {
	h := w.Header()
	h.Set("Content-Type", e.ContentType)
	if e.ETag != "" {
		h.Set("ETag", e.ETag)
		if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, e.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(e.Body); err != nil {
		slog.Debug("response write failed", logfields.Path(r.URL.Path), logfields.Error(err))
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// writeError renders not_found errors as the HTML 404 page and everything
// else through the JSON error adapter.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if derrors.IsNotFound(err) {
		s.writeNotFound(w, r)
		return
	}
	s.errorAdapter.WriteErrorResponse(w, r, err)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeNotFound(w, r)
}

func (s *Server) writeNotFound(w http.ResponseWriter, r *http.Request) {
	a := s.current().asm
	var buf bytes.Buffer
	if err := a.Render(&buf, a.NotFound(r.URL.Path)); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	a := s.current().asm
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.startTime).Seconds(),
		Cities:    a.Registry().Len(),
		Articles:  len(a.Blog().Published()),
	}
	if err := writeJSON(w, http.StatusOK, health); err != nil {
		internalErr := derrors.WrapError(err, derrors.CategoryInternal, "failed to write health response").Build()
		s.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// writeJSON encodes into a buffer first so a failed encode sends nothing.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
