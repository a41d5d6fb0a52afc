package commands

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetch(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // local test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestStartSiteServesAndReloads(t *testing.T) {
	root, _, _ := newTestCLI(t)
	cfg := root.Settings()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Monitoring.Metrics.Enabled = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live, err := startSite(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = live.stop(context.Background()) })
	base := "http://" + live.srv.Addr()

	resp, body := fetch(t, base+"/locations/guelph")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Guelph")

	resp, _ = fetch(t, base+"/locations/atlantis")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	first := live.srv.Assembler()
	require.NoError(t, live.reload(ctx))
	assert.NotSame(t, first, live.srv.Assembler())

	resp, body = fetch(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pavesite_page_results_total")
}

func TestOpenCache(t *testing.T) {
	root, _, _ := newTestCLI(t)
	cfg := root.Settings()

	c, err := openCache(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Close())

	cfg.Cache.Disabled = true
	c, err = openCache(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, c)
}
