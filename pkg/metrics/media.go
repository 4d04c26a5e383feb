package metrics

import "github.com/prometheus/client_golang/prometheus"

// MediaMetrics tracks media sync activity per upload context.
type MediaMetrics struct {
	attached       *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	removed        *prometheus.CounterVec
	unlinkFailures *prometheus.CounterVec
	orphansSwept   prometheus.Counter
}

// NewMediaMetrics registers media sync counters on the provided registerer.
func NewMediaMetrics(reg prometheus.Registerer) *MediaMetrics {
	if reg == nil {
		return &MediaMetrics{}
	}
	attached := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_files_attached_total",
		Help: "Media files written to storage and registered.",
	}, []string{"context"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_files_skipped_total",
		Help: "Duplicate uploads skipped by content hash.",
	}, []string{"context"})
	removed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_files_removed_total",
		Help: "Media registry rows removed.",
	}, []string{"context"})
	unlinkFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_unlink_failures_total",
		Help: "Best-effort file unlinks that failed during cleanup.",
	}, []string{"context"})
	orphansSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_orphans_swept_total",
		Help: "Unreferenced files reclaimed by the reconciler.",
	})
	reg.MustRegister(attached, skipped, removed, unlinkFailures, orphansSwept)
	return &MediaMetrics{
		attached:       attached,
		skipped:        skipped,
		removed:        removed,
		unlinkFailures: unlinkFailures,
		orphansSwept:   orphansSwept,
	}
}

// AddAttached records newly attached files for the named context.
func (m *MediaMetrics) AddAttached(context string, n int) {
	if m == nil || m.attached == nil || n <= 0 {
		return
	}
	m.attached.WithLabelValues(normalizeLabel(context)).Add(float64(n))
}

// AddSkipped records duplicate uploads skipped for the named context.
func (m *MediaMetrics) AddSkipped(context string, n int) {
	if m == nil || m.skipped == nil || n <= 0 {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(context)).Add(float64(n))
}

// AddRemoved records registry rows removed for the named context.
func (m *MediaMetrics) AddRemoved(context string, n int) {
	if m == nil || m.removed == nil || n <= 0 {
		return
	}
	m.removed.WithLabelValues(normalizeLabel(context)).Add(float64(n))
}

// IncUnlinkFailure records one failed best-effort unlink.
func (m *MediaMetrics) IncUnlinkFailure(context string) {
	if m == nil || m.unlinkFailures == nil {
		return
	}
	m.unlinkFailures.WithLabelValues(normalizeLabel(context)).Inc()
}

// AddOrphansSwept records files reclaimed by the reconciler.
func (m *MediaMetrics) AddOrphansSwept(n int) {
	if m == nil || m.orphansSwept == nil || n <= 0 {
		return
	}
	m.orphansSwept.Add(float64(n))
}
