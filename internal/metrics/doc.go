// Package metrics provides build observability for nanosite.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metric calls never need nil checks:
//
//	builder := site.NewBuilder(cfg, fs, site.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The preview server registers a PrometheusRecorder and serves its registry
// through HTTPHandler.
package metrics
