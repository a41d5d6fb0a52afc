package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pavesite/internal/blog"
	"git.home.luguber.info/inful/pavesite/internal/cache"
	"git.home.luguber.info/inful/pavesite/internal/content"
	"git.home.luguber.info/inful/pavesite/internal/metrics"
	"git.home.luguber.info/inful/pavesite/internal/page"
	"git.home.luguber.info/inful/pavesite/internal/registry"
	"git.home.luguber.info/inful/pavesite/internal/seo"
)

var testSite = seo.Site{Name: "Sanctuary Sealcoating", BaseURL: "https://example.org", Phone: "+1-519-555-0100"}

func newAssembler(t *testing.T, rec metrics.Recorder) *page.Assembler {
	t.Helper()
	return newSiteAssembler(t, testSite, rec)
}

func newSiteAssembler(t *testing.T, site seo.Site, rec metrics.Recorder) *page.Assembler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	table, err := content.Default()
	require.NoError(t, err)
	store := blog.NewStore(blog.DefaultSource())
	require.NoError(t, store.Reload(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	a, err := page.NewAssembler(page.Sources{Registry: reg, Table: table, Blog: store}, site, page.WithRecorder(rec))
	require.NoError(t, err)
	return a
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(newAssembler(t, opts.Recorder), opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string, header ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRoutes(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", contentTypeHTML, "Parking lot care for Ontario"},
		{"/locations", contentTypeHTML, "Communities we serve"},
		{"/locations/guelph", contentTypeHTML, "Sealcoating in Guelph | Sanctuary Sealcoating"},
		{"/regions/golden-horseshoe", contentTypeHTML, `href="/locations/hamilton"`},
		{"/blog", contentTypeHTML, `href="/blog/why-sealcoat-church-parking"`},
		{"/blog/why-sealcoat-church-parking", contentTypeHTML, "Why Sealcoating Pays Off"},
		{"/sitemap.xml", contentTypeXML, "<loc>https://example.org/locations/guelph</loc>"},
		{"/robots.txt", contentTypeText, "Sitemap: https://example.org/sitemap.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts, tt.path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			assert.Contains(t, body, tt.contains)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestNotFound(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	for _, path := range []string{"/locations/atlantis", "/regions/atlantis", "/blog/atlantis", "/no/such/page"} {
		resp, body := get(t, ts, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, contentTypeHTML, resp.Header.Get("Content-Type"), path)
		assert.Contains(t, body, "We couldn&#39;t find that page", path)
	}
}

func TestSitemapParses(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	_, body := get(t, ts, "/sitemap.xml")
	var set struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	require.NoError(t, xml.Unmarshal([]byte(body), &set))
	assert.Len(t, set.URLs, len(s.Assembler().Paths()))
}

func TestCacheHitAndPurge(t *testing.T) {
	mem := cache.NewMemory(time.Minute, 100)
	s, ts := newTestServer(t, Options{Cache: mem})

	resp, first := get(t, ts, "/locations/london")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp, second := get(t, ts, "/locations/london")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, first, second)

	// errors are not cached
	get(t, ts, "/locations/atlantis")
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, s.Swap(context.Background(), newAssembler(t, nil)))
	assert.Equal(t, 0, mem.Len())
	resp, _ = get(t, ts, "/locations/london")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
}

// gatedCache holds the first Get until release is closed.
type gatedCache struct {
	*cache.Memory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCache) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	c.once.Do(func() {
		close(c.entered)
		<-c.release
	})
	return c.Memory.Get(ctx, key)
}

func TestSwapDuringRequestDoesNotCacheOldPage(t *testing.T) {
	gate := &gatedCache{
		Memory:  cache.NewMemory(time.Minute, 100),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, ts := newTestServer(t, Options{Cache: gate})

	type result struct {
		body string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL + "/locations/guelph")
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		done <- result{body: string(body), err: err}
	}()

	<-gate.entered
	renamed := testSite
	renamed.Name = "Renamed Paving"
	require.NoError(t, s.Swap(context.Background(), newSiteAssembler(t, renamed, nil)))
	close(gate.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Contains(t, first.body, "Sanctuary Sealcoating")

	resp, body := get(t, ts, "/locations/guelph")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, "Renamed Paving")
	assert.NotContains(t, body, "Sanctuary Sealcoating")

	resp, _ = get(t, ts, "/locations/guelph")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
}

func TestPurgeStartsNewGeneration(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	before := s.current()
	require.NoError(t, s.Purge(context.Background()))
	after := s.current()
	assert.Same(t, before.asm, after.asm)
	assert.NotEqual(t, before.key("/"), after.key("/"))
}

func TestArticleETag(t *testing.T) {
	_, ts := newTestServer(t, Options{Cache: cache.NewMemory(time.Minute, 10)})
	resp, _ := get(t, ts, "/blog/why-sealcoat-church-parking")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	resp, body := get(t, ts, "/blog/why-sealcoat-church-parking", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = get(t, ts, "/blog/why-sealcoat-church-parking", "If-None-Match", `"other"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	resp, body := get(t, ts, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, s.Assembler().Registry().Len(), h.Cities)
	assert.Positive(t, h.Articles)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	_, ts := newTestServer(t, Options{Recorder: rec, MetricsRegistry: reg})

	get(t, ts, "/locations/guelph")
	resp, body := get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `pavesite_variant_selections_total{section="intro",variant="6"} 1`)
	assert.Contains(t, body, `pavesite_http_request_duration_seconds_count{code="200",route="GET /locations/{city}"}`)

	_, noMetrics := newTestServer(t, Options{})
	resp, _ = get(t, noMetrics, "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	s := New(newAssembler(t, nil), Options{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Start(context.Background()))
	require.True(t, strings.HasPrefix(s.Addr(), "127.0.0.1:"))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
