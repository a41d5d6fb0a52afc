package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncVariantSelected("intro", 6)
	pr.IncVariantSelected("intro", 6)
	pr.ObservePageDuration("city", 15*time.Millisecond)
	pr.IncPageResult("city", ResultSuccess)
	pr.IncCacheResult(true)
	pr.ObserveHTTPRequest("/locations/{city}", 200, 3*time.Millisecond)
	pr.ObserveExportDuration(time.Second)
	pr.IncExportOutcome(ResultSuccess)
	pr.SetExportConcurrency(4)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 8)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.variantSelections.WithLabelValues("intro", "6")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.exportConcurrency), 0)
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncVariantSelected("intro", 1)
		pr.IncCacheResult(false)
		pr.SetExportConcurrency(1)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncPageResult("home", ResultSuccess)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pavesite_page_results_total{kind="home",result="success"} 1`)
}
