// Package metrics provides observability hooks for compilation passes,
// builds and the file watcher.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// collection never requires nil checks at call sites. The watch command
// installs a PrometheusRecorder and serves it over HTTP when
// --metrics-addr is given:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	seq := compile.NewSequencer(runner, opts, compile.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
