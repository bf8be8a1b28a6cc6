package studentgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful login attempts.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for invalid credentials.
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by an active lockout.
	MetricLoginLocked
	// MetricMigrationSuccess counts one-time remote provisionings.
	MetricMigrationSuccess
	// MetricMigrationFailure counts failed provisioning attempts.
	MetricMigrationFailure
	// MetricProviderUnavailable counts logins that resolved to a transient
	// provider failure.
	MetricProviderUnavailable
	// MetricRiskFlaggedMedium counts medium-risk device assessments.
	MetricRiskFlaggedMedium
	// MetricRiskFlaggedHigh counts high-risk device assessments.
	MetricRiskFlaggedHigh
	// MetricSessionStarted counts started sessions.
	MetricSessionStarted
	// MetricSessionExpired counts sessions found expired on access.
	MetricSessionExpired
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricRegistrationSuccess counts self-registration successes.
	MetricRegistrationSuccess
	// MetricRegistrationDuplicate counts registrations rejected as duplicates.
	MetricRegistrationDuplicate
	// MetricRosterMigrationRun counts bulk roster migration runs.
	MetricRosterMigrationRun
	// MetricLoginLatency is the login latency histogram.
	MetricLoginLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds padded atomic counters and an optional login latency
// histogram. When disabled, all operations are no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is collected.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc atomically increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample into the histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricLoginLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, +Inf.
func bucketIndex(d time.Duration) int {
	switch {
	case d < 5*time.Millisecond:
		return 0
	case d < 10*time.Millisecond:
		return 1
	case d < 25*time.Millisecond:
		return 2
	case d < 50*time.Millisecond:
		return 3
	case d < 100*time.Millisecond:
		return 4
	case d < 250*time.Millisecond:
		return 5
	case d < 500*time.Millisecond:
		return 6
	default:
		return 7
	}
}
