package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "cdnbundle"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	runDuration   *prom.HistogramVec
	runOutcome    *prom.CounterVec
	artifactBytes *prom.GaugeVec
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build and deploy stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a build or deploy run",
			Buckets:   prom.DefBuckets,
		}, []string{"command"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by command and final status",
		}, []string{"command", "outcome"}),
		artifactBytes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of the last emitted artifact per format and variant",
		}, []string{"format", "minified"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics file was last written",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcome, pr.artifactBytes, pr.lastRun)
	return pr
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(command string, d time.Duration) {
	p.runDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(command, outcome string) {
	p.runOutcome.WithLabelValues(command, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveArtifactSize(format string, minified bool, bytes int) {
	p.artifactBytes.WithLabelValues(format, strconv.FormatBool(minified)).Set(float64(bytes))
}

// WriteTextfile writes every registered metric to path in the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string, now time.Time) error {
	p.lastRun.Set(float64(now.Unix()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
