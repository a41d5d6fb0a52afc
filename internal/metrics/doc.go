// Package metrics provides the observability hooks of the site.
//
// Components receive a Recorder and never check for nil: the default is
// NoopRecorder, whose methods do nothing. When monitoring is enabled the CLI
// swaps in a PrometheusRecorder and mounts HTTPHandler on /metrics.
//
//	asm := page.NewAssembler(reg, table, store, site, page.WithRecorder(rec))
package metrics
