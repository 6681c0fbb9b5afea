package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.ObserveStage("uploading", 250*time.Millisecond)
	metrics.IncOutcome("complete")
	metrics.IncPromoteFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "upload_attempts_total", "outcome", "complete"); err != nil {
		t.Fatalf("fetch outcomes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected complete=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "upload_stage_duration_seconds", "stage", "uploading"); err != nil {
		t.Fatalf("fetch stage duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "upload_record_promote_failures_total")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("promote failure counter not exported")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected promote failures=1, got %f", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var metrics *PipelineMetrics
	metrics.ObserveStage("uploading", time.Second)
	metrics.IncOutcome("error")
	metrics.IncPromoteFailure()

	empty := NewPipelineMetrics(nil)
	empty.IncOutcome("complete")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
