package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultNotFound ResultLabel = "not_found"
	ResultError    ResultLabel = "error"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for page assembly, serving and export.
// Implementations may forward to Prometheus. All methods must be safe to call
// concurrently.
type Recorder interface {
	// IncVariantSelected counts which variant a page section rendered.
	IncVariantSelected(section string, index int)
	ObservePageDuration(kind string, d time.Duration)
	IncPageResult(kind string, result ResultLabel)
	IncCacheResult(hit bool)
	ObserveHTTPRequest(route string, status int, d time.Duration)
	ObserveExportDuration(d time.Duration)
	IncExportOutcome(result ResultLabel)
	SetExportConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncVariantSelected(string, int) {}
func (NoopRecorder) ObservePageDuration(string, time.Duration) {}
func (NoopRecorder) IncPageResult(string, ResultLabel) {}
func (NoopRecorder) IncCacheResult(bool) {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
func (NoopRecorder) ObserveExportDuration(time.Duration) {}
func (NoopRecorder) IncExportOutcome(ResultLabel) {}
func (NoopRecorder) SetExportConcurrency(int) {}

// ResultFor maps an error to a result label. isNotFound is supplied by the
// caller so this package stays free of error-package imports.
func ResultFor(err error, isNotFound func(error) bool) ResultLabel {
	switch {
	case err == nil:
		return ResultSuccess
	case isNotFound != nil && isNotFound(err):
		return ResultNotFound
	default:
		return ResultError
	}
}
