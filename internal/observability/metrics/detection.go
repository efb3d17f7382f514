package metrics

import (
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/rfdetect/internal/detection"
)

// DetectionMetrics contains Prometheus metrics for the sampling loop
type DetectionMetrics struct {
	registry *prometheus.Registry

	DetectionsTotal   *prometheus.CounterVec
	Power             *prometheus.GaugeVec
	Threshold         *prometheus.GaugeVec
	NoiseFloor        *prometheus.GaugeVec
	WindowPeak        *prometheus.GaugeVec
	AcquisitionErrors *prometheus.CounterVec
	SinkErrors        *prometheus.CounterVec
	TickDuration      prometheus.Histogram
}

// NewDetectionMetrics creates and registers detection metrics
func NewDetectionMetrics(registry *prometheus.Registry) (*DetectionMetrics, error) {
	m := &DetectionMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize detection metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for DetectionMetrics.
func (m *DetectionMetrics) initMetrics() error {
	device := []string{LabelDevice}

	m.DetectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "detections_total",
		Help:      "Total number of detections per device",
	}, device)

	m.Power = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "power_dbfs",
		Help:      "Last power reading per device",
	}, device)

	m.Threshold = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "threshold_dbfs",
		Help:      "Effective detection threshold per device",
	}, device)

	m.NoiseFloor = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "noise_floor_dbfs",
		Help:      "Estimated noise floor per device, NaN until established",
	}, device)

	m.WindowPeak = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "window_peak_dbfs",
		Help:      "Strongest reading inside the pulse window per device",
	}, device)

	m.AcquisitionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "acquisition_errors_total",
		Help:      "Total number of failed power readings per device",
	}, device)

	m.SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_errors_total",
		Help:      "Total number of failed detection event deliveries per sink",
	}, []string{LabelSink})

	m.TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "tick_duration_seconds",
		Help:      "Time taken to scan all devices once",
		Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~2s
	})

	return nil
}

// RecordOutcome updates the per-device gauges and the detection counter
func (m *DetectionMetrics) RecordOutcome(o detection.Outcome) {
	name := o.Device.Name

	m.Power.WithLabelValues(name).Set(o.Power)
	m.Threshold.WithLabelValues(name).Set(o.Threshold)
	m.NoiseFloor.WithLabelValues(name).Set(o.Floor.Or(math.NaN()))
	m.WindowPeak.WithLabelValues(name).Set(o.Peak)

	counter := m.DetectionsTotal.WithLabelValues(name)
	if o.Detected {
		counter.Inc()
	}
}

// RecordAcquisitionError increments the acquisition error counter for device
func (m *DetectionMetrics) RecordAcquisitionError(device string) {
	m.AcquisitionErrors.WithLabelValues(device).Inc()
}

// RecordSinkError increments the delivery error counter for sink
func (m *DetectionMetrics) RecordSinkError(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}

// ObserveTickDuration records the duration of one tick
func (m *DetectionMetrics) ObserveTickDuration(seconds float64) {
	m.TickDuration.Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DetectionsTotal.Describe(ch)
	m.Power.Describe(ch)
	m.Threshold.Describe(ch)
	m.NoiseFloor.Describe(ch)
	m.WindowPeak.Describe(ch)
	m.AcquisitionErrors.Describe(ch)
	m.SinkErrors.Describe(ch)
	m.TickDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DetectionsTotal.Collect(ch)
	m.Power.Collect(ch)
	m.Threshold.Collect(ch)
	m.NoiseFloor.Collect(ch)
	m.WindowPeak.Collect(ch)
	m.AcquisitionErrors.Collect(ch)
	m.SinkErrors.Collect(ch)
	m.TickDuration.Collect(ch)
}
