package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMediaMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMediaMetrics(reg)

	m.AddAttached("post", 2)
	m.AddSkipped("post", 1)
	m.AddRemoved("post", 3)
	m.IncUnlinkFailure("post")
	m.AddOrphansSwept(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := map[string]float64{
		"media_files_attached_total":  2,
		"media_files_skipped_total":   1,
		"media_files_removed_total":   3,
		"media_unlink_failures_total": 1,
	}
	for name, want := range checks {
		got, err := counterValue(mfs, name, "context", "post")
		if err != nil {
			t.Fatalf("fetch %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: expected %f, got %f", name, want, got)
		}
	}

	mf := findFamily(mfs, "media_orphans_swept_total")
	if mf == nil {
		t.Fatal("orphans counter not exported")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 4 {
		t.Fatalf("expected orphans=4, got %f", got)
	}
}

func TestMediaMetricsNilRegistererIsNoop(t *testing.T) {
	m := NewMediaMetrics(nil)
	m.AddAttached("post", 1)
	m.IncUnlinkFailure("post")
	m.AddOrphansSwept(1)
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
