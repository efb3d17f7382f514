// Package eventlog appends detections and session start and stop records to
// a plain text log file that rolls over daily.
package eventlog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
	"github.com/tphakala/rfdetect/internal/monitor"
)

// SinkName identifies the daily log in metrics and logs
const SinkName = "eventlog"

const (
	lineTimeLayout = time.DateTime
	dirPerm        = 0o755
	filePerm       = 0o644
)

// ErrClosed is returned by Emit after Close
var ErrClosed = errors.NewStd("event log is closed")

// GetLogger returns the module logger for the detection log
func GetLogger() logger.Logger {
	return logger.Global().Module(SinkName)
}

// DailyLog writes one line per detection to <dir>/<pattern>, where pattern is
// a Go time layout expanded with the local date of the event.
type DailyLog struct {
	mu      sync.Mutex
	fs      afero.Fs
	dir     string
	pattern string
	loc     *time.Location
	clock   func() time.Time

	path   string // current file
	file   afero.File
	w      *bufio.Writer
	closed bool
}

var (
	_ monitor.EventSink = (*DailyLog)(nil)
	_ monitor.Renderer  = (*DailyLog)(nil)
)

// Option configures a DailyLog
type Option func(*DailyLog)

// WithLocation sets the time zone used for rollover and timestamps
func WithLocation(loc *time.Location) Option {
	return func(d *DailyLog) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock replaces time.Now for the session start record
func WithClock(now func() time.Time) Option {
	return func(d *DailyLog) {
		if now != nil {
			d.clock = now
		}
	}
}

// New creates a daily log on fs. Files are opened lazily on the first event.
func New(fs afero.Fs, dir, pattern string, opts ...Option) *DailyLog {
	d := &DailyLog{
		fs:      fs,
		dir:     dir,
		pattern: pattern,
		loc:     time.Local,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromSettings creates a daily log on the OS filesystem, nil when disabled
func NewFromSettings(s conf.EventLogSettings) *DailyLog {
	if !s.Enabled {
		return nil
	}
	return New(afero.NewOsFs(), s.Dir, s.Filename)
}

// Name implements monitor.EventSink
func (d *DailyLog) Name() string { return SinkName }

// PathFor returns the log file an event at t is written to
func (d *DailyLog) PathFor(t time.Time) string {
	return filepath.Join(d.dir, t.In(d.loc).Format(d.pattern))
}

// FormatLine renders one detection without the trailing newline
func FormatLine(event monitor.DetectionEvent, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s DETECTION device=%s freq_mhz=%.4f power=%.1f threshold=%.1f",
		event.Timestamp.In(loc).Format(lineTimeLayout),
		event.DeviceName,
		event.FrequencyHz/1e6,
		event.Power,
		event.Threshold)
	if floor, ok := event.Floor.Value(); ok {
		fmt.Fprintf(&b, " noise_floor=%.1f", floor)
	}
	fmt.Fprintf(&b, " peak=%.1f", event.Peak)
	return b.String()
}

// Emit appends the event, switching files when the local date has changed
func (d *DailyLog) Emit(_ context.Context, event monitor.DetectionEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked(event.Timestamp, FormatLine(event, d.loc), "write_event")
}

// Header records the session start and the monitored devices
func (d *DailyLog) Header(devices []detection.Device, cfg detection.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	lines := make([]string, 0, len(devices)+1)
	lines = append(lines, FormatSessionStart(now, len(devices), cfg, d.loc))
	for _, dev := range devices {
		lines = append(lines, FormatDevice(now, dev, d.loc))
	}
	for _, line := range lines {
		if err := d.writeLocked(now, line, "write_session_start"); err != nil {
			GetLogger().Warn("Failed to record session start", logger.Error(err))
			return
		}
	}
}

// Render implements monitor.Renderer, ticks without detections are not logged
func (d *DailyLog) Render(detection.AggregateResult) {}

// Summary records the session end with detection totals
func (d *DailyLog) Summary(summary monitor.Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stopped := summary.Stopped
	if stopped.IsZero() {
		stopped = d.clock()
	}
	if err := d.writeLocked(stopped, FormatSessionStop(summary, d.loc), "write_session_stop"); err != nil {
		GetLogger().Warn("Failed to record session stop", logger.Error(err))
	}
}

// FormatSessionStart renders the session start line
func FormatSessionStart(t time.Time, devices int, cfg detection.Config, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s SESSION_START devices=%d mode=%s",
		t.In(loc).Format(lineTimeLayout), devices, cfg.Mode)
	if cfg.Mode == detection.ModeFixed {
		fmt.Fprintf(&b, " threshold=%.1f", cfg.FixedThreshold)
	} else {
		fmt.Fprintf(&b, " margin=%.1f window=%d initial_threshold=%.1f", cfg.Margin, cfg.WindowSize, cfg.FixedThreshold)
	}
	fmt.Fprintf(&b, " pulse_window=%s", cfg.PulseWindow)
	return b.String()
}

// FormatDevice renders one monitored device line
func FormatDevice(t time.Time, dev detection.Device, loc *time.Location) string {
	return fmt.Sprintf("%s DEVICE index=%d name=%s freq_mhz=%.4f",
		t.In(loc).Format(lineTimeLayout), dev.Index, dev.Name, dev.FrequencyMHz())
}

// FormatSessionStop renders the session stop line
func FormatSessionStop(summary monitor.Summary, loc *time.Location) string {
	return fmt.Sprintf("%s SESSION_STOP detections=%d ticks=%d runtime=%s",
		summary.Stopped.In(loc).Format(lineTimeLayout),
		summary.Total,
		summary.Ticks,
		summary.Duration().Round(time.Second))
}

// writeLocked appends one line to the file for t and flushes it
func (d *DailyLog) writeLocked(t time.Time, line, operation string) error {
	if d.closed {
		return ErrClosed
	}

	path := d.PathFor(t)
	if path != d.path || d.file == nil {
		if err := d.rotateLocked(path); err != nil {
			return err
		}
	}

	if _, err := d.w.WriteString(line + "\n"); err != nil {
		return d.ioError(err, operation)
	}
	// Lines are rare, keep the file current for tail -f
	if err := d.w.Flush(); err != nil {
		return d.ioError(err, operation)
	}
	return nil
}

// rotateLocked closes the current file and opens path for appending
func (d *DailyLog) rotateLocked(path string) error {
	if err := d.closeFileLocked(); err != nil {
		GetLogger().Warn("Failed to close previous detection log",
			logger.String("path", d.path),
			logger.Error(err))
	}

	if err := d.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return d.ioError(err, "create_log_dir")
	}
	f, err := d.fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return d.ioError(err, "open_log_file")
	}

	d.path = path
	d.file = f
	d.w = bufio.NewWriter(f)

	GetLogger().Info("Detection log opened", logger.String("path", path))
	return nil
}

func (d *DailyLog) closeFileLocked() error {
	if d.file == nil {
		return nil
	}
	flushErr := d.w.Flush()
	closeErr := d.file.Close()
	d.file, d.w = nil, nil
	return errors.Join(flushErr, closeErr)
}

func (d *DailyLog) ioError(err error, operation string) error {
	return errors.New(err).
		Component(SinkName).
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Context("path", d.path).
		Build()
}

// Path returns the file currently open, empty before the first event
func (d *DailyLog) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Close flushes and closes the current file. Further events are rejected.
func (d *DailyLog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.closeFileLocked(); err != nil {
		return d.ioError(err, "close_log_file")
	}
	return nil
}
