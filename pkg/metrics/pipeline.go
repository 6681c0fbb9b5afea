package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records upload pipeline observability signals.
type PipelineMetrics struct {
	stageDuration   *prometheus.HistogramVec
	uploadOutcomes  *prometheus.CounterVec
	promoteFailures prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_stage_duration_seconds",
		Help:    "Duration of upload pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	uploadOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_attempts_total",
		Help: "Terminal outcomes of upload pipeline attempts.",
	}, []string{"outcome"})
	promoteFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_record_promote_failures_total",
		Help: "Asset records stuck in processing because promotion failed.",
	})
	reg.MustRegister(stageDuration, uploadOutcomes, promoteFailures)
	return &PipelineMetrics{
		stageDuration:   stageDuration,
		uploadOutcomes:  uploadOutcomes,
		promoteFailures: promoteFailures,
	}
}

// ObserveStage records the duration of the named stage.
func (p *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncOutcome increments the terminal-outcome counter ("complete", "error", "canceled").
func (p *PipelineMetrics) IncOutcome(outcome string) {
	if p == nil || p.uploadOutcomes == nil {
		return
	}
	p.uploadOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPromoteFailure counts a swallowed phase-two commit failure so operators
// can reconcile processing-stuck records out of band.
func (p *PipelineMetrics) IncPromoteFailure() {
	if p == nil || p.promoteFailures == nil {
		return
	}
	p.promoteFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
