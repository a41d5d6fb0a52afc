package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pavesite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	variantSelections *prom.CounterVec
	pageDuration      *prom.HistogramVec
	pageResults       *prom.CounterVec
	cacheResults      *prom.CounterVec
	httpDuration      *prom.HistogramVec
	exportDuration    prom.Histogram
	exportOutcomes    *prom.CounterVec
	exportConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.variantSelections = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "variant_selections_total",
			Help:      "Content variants rendered by section and index",
		}, []string{"section", "variant"})
		pr.pageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_assembly_duration_seconds",
			Help:      "Duration of page assembly by page kind",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.pageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_results_total",
			Help:      "Page assembly results by kind and outcome",
		}, []string{"kind", "result"})
		pr.cacheResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_cache_results_total",
			Help:      "Rendered page cache lookups by hit/miss",
		}, []string{"result"})
		pr.httpDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route and status code",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "code"})
		pr.exportDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Total static export duration",
			Buckets:   prom.DefBuckets,
		})
		pr.exportOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "export_outcomes_total",
			Help:      "Static export outcomes by final status",
		}, []string{"outcome"})
		pr.exportConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "export_concurrency",
			Help:      "Page render concurrency of the last export",
		})
		reg.MustRegister(pr.variantSelections, pr.pageDuration, pr.pageResults, pr.cacheResults,
			pr.httpDuration, pr.exportDuration, pr.exportOutcomes, pr.exportConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) IncVariantSelected(section string, index int) {
	if p == nil || p.variantSelections == nil {
		return
	}
	p.variantSelections.WithLabelValues(section, strconv.Itoa(index)).Inc()
}

func (p *PrometheusRecorder) ObservePageDuration(kind string, d time.Duration) {
	if p == nil || p.pageDuration == nil {
		return
	}
	p.pageDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(kind string, result ResultLabel) {
	if p == nil || p.pageResults == nil {
		return
	}
	p.pageResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(hit bool) {
	if p == nil || p.cacheResults == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil || p.httpDuration == nil {
		return
	}
	p.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveExportDuration(d time.Duration) {
	if p == nil || p.exportDuration == nil {
		return
	}
	p.exportDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncExportOutcome(result ResultLabel) {
	if p == nil || p.exportOutcomes == nil {
		return
	}
	p.exportOutcomes.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetExportConcurrency(n int) {
	if p == nil || p.exportConcurrency == nil {
		return
	}
	p.exportConcurrency.Set(float64(n))
}
