// Package metrics records stage timings and artifact sizes for cdnbundle runs.
//
// Components receive a Recorder through injection and default to NoopRecorder.
// The CLI swaps in a PrometheusRecorder when metrics.textfile is configured and
// writes the registry to that file at the end of the run, in the node exporter
// textfile format, since the tool is short-lived and never serves HTTP.
package metrics
