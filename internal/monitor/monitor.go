// Package monitor runs the sampling loop: one power reading per device per
// tick, driven through the detection engine, with results handed to renderers
// and detection events to sinks.
package monitor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/rfdetect/internal/acquisition"
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
	"github.com/tphakala/rfdetect/internal/observability/metrics"
)

// DefaultFailureLogInterval is how long repeated acquisition failures of one
// device are folded into a single log entry.
const DefaultFailureLogInterval = 30 * time.Second

// GetLogger returns the module logger for the sampling loop
func GetLogger() logger.Logger {
	return logger.Global().Module("monitor")
}

// Renderer presents tick results
type Renderer interface {
	Header(devices []detection.Device, cfg detection.Config)
	Render(result detection.AggregateResult)
	Summary(summary Summary)
}

// EventSink receives one event per detection. Emit errors are logged and
// counted, they never stop the loop.
type EventSink interface {
	Name() string
	Emit(ctx context.Context, event DetectionEvent) error
	Close() error
}

// DetectionEvent describes one detection for logging and export
type DetectionEvent struct {
	DeviceIndex int
	DeviceName  string
	FrequencyHz float64
	Power       float64
	Threshold   float64
	Floor       detection.Floor
	Peak        float64
	Timestamp   time.Time
}

// Summary holds the counters at the end of a run
type Summary struct {
	Devices      []detection.Device
	DeviceTotals []uint64
	Total        uint64
	Ticks        uint64
	Started      time.Time
	Stopped      time.Time
}

// Duration returns the run time
func (s Summary) Duration() time.Duration {
	if s.Started.IsZero() {
		return 0
	}
	return s.Stopped.Sub(s.Started)
}

// Monitor owns the per-device detection state and drives ticks
type Monitor struct {
	cfg      detection.Config
	decider  detection.Decider
	source   acquisition.PowerSource
	channels []*Channel

	renderers []Renderer
	sinks     []EventSink
	recorder  metrics.Recorder
	clock     func() time.Time
	log       logger.Logger

	failures           *cache.Cache
	failureLogInterval time.Duration

	ticks   uint64
	total   uint64
	started time.Time

	finalizeOnce sync.Once
}

// Option configures a Monitor
type Option func(*Monitor)

// WithRenderers adds renderers
func WithRenderers(r ...Renderer) Option {
	return func(m *Monitor) {
		m.renderers = append(m.renderers, r...)
	}
}

// WithSinks adds detection event sinks
func WithSinks(s ...EventSink) Option {
	return func(m *Monitor) {
		m.sinks = append(m.sinks, s...)
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Monitor) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock replaces time.Now for tick timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.clock = now
	}
}

// WithFailureLogInterval sets the acquisition failure log suppression window
func WithFailureLogInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.failureLogInterval = d
		}
	}
}

// New creates a monitor for devices reading from source
func New(cfg detection.Config, devices []detection.Device, source acquisition.PowerSource, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.Newf("power source is required").
			Component("monitor").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(devices) == 0 {
		return nil, errors.Newf("at least one device is required").
			Component("monitor").
			Category(errors.CategoryConfiguration).
			Build()
	}

	m := &Monitor{
		cfg:                cfg,
		decider:            detection.NewDecider(cfg),
		source:             source,
		recorder:           metrics.NoOpRecorder{},
		clock:              time.Now,
		log:                GetLogger(),
		failureLogInterval: DefaultFailureLogInterval,
	}
	for _, opt := range opts {
		opt(m)
	}

	seen := make(map[int]bool, len(devices))
	for _, dev := range devices {
		if seen[dev.Index] {
			return nil, errors.Newf("device index %d configured twice", dev.Index).
				Component("monitor").
				Category(errors.CategoryConfiguration).
				Build()
		}
		seen[dev.Index] = true
		m.channels = append(m.channels, newChannel(dev, cfg))
	}

	// No janitor goroutine: expired entries are swept at the start of each tick
	m.failures = cache.New(m.failureLogInterval, 0)
	m.failures.OnEvicted(m.reportSuppressed)

	return m, nil
}

// Devices returns the monitored devices in configuration order
func (m *Monitor) Devices() []detection.Device {
	devices := make([]detection.Device, len(m.channels))
	for i, ch := range m.channels {
		devices[i] = ch.Device
	}
	return devices
}

// Run renders the header, ticks immediately and then every scan interval
// until ctx is canceled. The summary is emitted and sinks are closed exactly
// once on return. Cancellation is not an error.
func (m *Monitor) Run(ctx context.Context) error {
	m.started = m.clock()
	for _, r := range m.renderers {
		r.Header(m.Devices(), m.cfg)
	}
	m.log.Info("Sampling loop started",
		logger.Int("devices", len(m.channels)),
		logger.String("mode", string(m.cfg.Mode)),
		logger.Duration("scan_interval", m.cfg.ScanInterval),
		logger.Duration("pulse_window", m.cfg.PulseWindow))

	defer m.finalize()

	timer := time.NewTimer(m.cfg.ScanInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		m.Tick(ctx, m.clock())

		timer.Reset(m.cfg.ScanInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Tick reads every device once, updates detection state and counters, and
// hands the result to renderers and sinks.
func (m *Monitor) Tick(ctx context.Context, now time.Time) detection.AggregateResult {
	start := time.Now()
	m.failures.DeleteExpired()

	m.ticks++
	result := detection.AggregateResult{
		Seq:          m.ticks,
		Timestamp:    now,
		Outcomes:     make([]detection.Outcome, len(m.channels)),
		DeviceTotals: make([]uint64, len(m.channels)),
	}

	for i, ch := range m.channels {
		power, err := m.source.ReadPower(ctx, ch.Device)
		failed := err != nil
		if failed {
			power = acquisition.SentinelPower
			m.acquisitionFailed(ch.Device, err)
		}

		result.Outcomes[i] = ch.process(m.decider, detection.Reading{
			DeviceIndex: ch.Device.Index,
			Timestamp:   now,
			Power:       power,
		}, failed)
	}

	// Counters change only after every decision of the tick is final
	for i, ch := range m.channels {
		if result.Outcomes[i].Detected {
			ch.detections++
			m.total++
		}
		result.DeviceTotals[i] = ch.detections
		m.recorder.RecordOutcome(result.Outcomes[i])
	}
	result.Total = m.total

	for _, r := range m.renderers {
		r.Render(result)
	}
	for _, out := range result.Detections() {
		m.emit(ctx, out)
	}

	m.recorder.ObserveTickDuration(time.Since(start).Seconds())
	return result
}

// emit delivers a detection to every sink
func (m *Monitor) emit(ctx context.Context, out detection.Outcome) {
	event := DetectionEvent{
		DeviceIndex: out.Device.Index,
		DeviceName:  out.Device.Name,
		FrequencyHz: out.Device.FrequencyHz,
		Power:       out.Power,
		Threshold:   out.Threshold,
		Floor:       out.Floor,
		Peak:        out.Peak,
		Timestamp:   out.Timestamp,
	}

	m.log.Info("Signal detected",
		logger.String("device", out.Device.Name),
		logger.Float64("power_dbfs", out.Power),
		logger.Float64("threshold_dbfs", out.Threshold),
		logger.String("noise_floor", out.Floor.String()),
		logger.Float64("peak_dbfs", out.Peak))

	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			m.recorder.RecordSinkError(sink.Name())
			m.log.Warn("Detection event delivery failed",
				logger.String("sink", sink.Name()),
				logger.String("device", out.Device.Name),
				logger.Error(err))
		}
	}
}

// acquisitionFailed logs the first failure of a device per suppression window
// and counts the rest.
func (m *Monitor) acquisitionFailed(dev detection.Device, err error) {
	m.recorder.RecordAcquisitionError(dev.Name)

	key := strconv.Itoa(dev.Index)
	if _, found := m.failures.Get(key); found {
		_ = m.failures.Increment(key, 1)
		return
	}
	m.failures.Set(key, 0, cache.DefaultExpiration)

	if errors.Is(err, context.Canceled) {
		return
	}
	enhanced := errors.New(err).
		Component("acquisition").
		Category(errors.CategoryAcquisition).
		DeviceContext(dev.Index, dev.Name).
		Context("operation", "read_power").
		Build()
	m.log.Warn("Power reading failed, using sentinel value",
		logger.String("device", dev.Name),
		logger.Int("device_index", dev.Index),
		logger.Float64("sentinel_dbfs", acquisition.SentinelPower),
		logger.Error(enhanced))
}

// reportSuppressed runs when a suppression window ends
func (m *Monitor) reportSuppressed(key string, value any) {
	if n, ok := value.(int); ok && n > 0 {
		m.log.Warn("Repeated power reading failures were suppressed",
			logger.String("device_index", key),
			logger.Int("count", n),
			logger.Duration("window", m.failureLogInterval))
	}
}

// Totals returns the counters so far
func (m *Monitor) Totals() Summary {
	s := Summary{
		Devices:      m.Devices(),
		DeviceTotals: make([]uint64, len(m.channels)),
		Total:        m.total,
		Ticks:        m.ticks,
		Started:      m.started,
		Stopped:      m.clock(),
	}
	for i, ch := range m.channels {
		s.DeviceTotals[i] = ch.detections
	}
	return s
}

// finalize emits the summary and releases sinks, once
func (m *Monitor) finalize() {
	m.finalizeOnce.Do(func() {
		m.failures.DeleteExpired()
		summary := m.Totals()
		for _, r := range m.renderers {
			r.Summary(summary)
		}

		for _, sink := range m.sinks {
			if err := sink.Close(); err != nil {
				m.log.Warn("Failed to close event sink", logger.String("sink", sink.Name()), logger.Error(err))
			}
		}

		m.log.Info("Sampling loop stopped",
			logger.Uint64("ticks", summary.Ticks),
			logger.Uint64("detections", summary.Total),
			logger.Duration("runtime", summary.Duration()))
		if err := m.log.Flush(); err != nil {
			GetLogger().Debug("Log flush failed", logger.Error(err))
		}
	})
}
