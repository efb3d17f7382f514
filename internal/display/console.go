// Package display renders the sampling loop to a terminal: a header, one
// carriage-return status line per tick and a summary on exit.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/monitor"
)

// ANSI sequences
const (
	ansiReset     = "\033[0m"
	ansiRed       = "\033[91m"
	ansiGreen     = "\033[92m"
	ansiYellow    = "\033[93m"
	ansiClearLine = "\033[K"
)

const (
	barFilled = "█"
	barEmpty  = "░"
	ruleWidth = 80
	nameWidth = 12
)

// Options controls the status line layout
type Options struct {
	BarWidth        int
	PowerMin        float64 // dBFS mapped to an empty bar
	PowerMax        float64 // dBFS mapped to a full bar
	UseColors       bool
	ShowDeviceNames bool
}

// OptionsFromSettings converts display settings
func OptionsFromSettings(s conf.DisplaySettings) Options {
	return Options{
		BarWidth:        s.BarWidth,
		PowerMin:        s.PowerMin,
		PowerMax:        s.PowerMax,
		UseColors:       s.UseColors,
		ShowDeviceNames: s.ShowDeviceNames,
	}
}

// Console writes human readable output. Colours are only used when enabled
// and w is a terminal.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	opts    Options
	colors  bool
	lastLen int
}

var _ monitor.Renderer = (*Console)(nil)

// NewConsole creates a console renderer on w
func NewConsole(w io.Writer, opts Options) *Console {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 30
	}
	if opts.PowerMax <= opts.PowerMin {
		opts.PowerMin, opts.PowerMax = -80, -20
	}
	return &Console{
		w:      w,
		opts:   opts,
		colors: opts.UseColors && IsTerminal(w),
	}
}

// IsTerminal reports whether w is a terminal file descriptor
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// NormalizePower maps power onto [0, 1] over [lo, hi], clamped
func NormalizePower(power, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return min(1, max(0, (power-lo)/(hi-lo)))
}

// Bar draws a bar of width cells filled to fraction
func Bar(fraction float64, width int) string {
	filled := int(min(1, max(0, fraction)) * float64(width))
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

func trendArrow(t detection.Trend) string {
	switch t {
	case detection.TrendRising:
		return "↑"
	case detection.TrendFalling:
		return "↓"
	default:
		return "→"
	}
}

func (c *Console) paint(color, s string) string {
	if !c.colors || color == "" {
		return s
	}
	return color + s + ansiReset
}

// Header prints the run banner
func (c *Console) Header(devices []detection.Device, cfg detection.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	b.WriteString("\n" + rule + "\n")
	b.WriteString("  RFDETECT - multi-receiver RF power monitor\n")
	b.WriteString(rule + "\n")

	if len(devices) == 1 {
		b.WriteString("  Device: single receiver\n")
	} else {
		fmt.Fprintf(&b, "  Devices: %d receivers\n", len(devices))
	}
	for _, d := range devices {
		gain := "auto"
		if d.ManualGain {
			gain = fmt.Sprintf("%.1f dB", d.GainDB)
		}
		fmt.Fprintf(&b, "    [%d] %s: %.4f MHz @ %.2f MS/s, gain %s (%s)\n",
			d.Index, d.Name, d.FrequencyMHz(), d.SampleRateHz/1e6, gain, strings.ToUpper(string(d.Source)))
		if d.PPM != 0 {
			fmt.Fprintf(&b, "        tuned to %.6f MHz (%+.1f ppm)\n", d.CorrectedFrequencyHz()/1e6, d.PPM)
		}
	}

	if cfg.Adaptive() {
		fmt.Fprintf(&b, "  Detection: adaptive, noise floor + %.1f dB (median of %d readings, fixed %.1f dBFS until %d collected)\n",
			cfg.Margin, cfg.WindowSize, cfg.FixedThreshold, cfg.MinSamples)
	} else {
		fmt.Fprintf(&b, "  Detection: fixed threshold %.1f dBFS\n", cfg.FixedThreshold)
	}
	fmt.Fprintf(&b, "  Pulse window: %s, scan interval: %s\n", cfg.PulseWindow, cfg.ScanInterval)
	b.WriteString(rule + "\n\n")
	b.WriteString("Press Ctrl+C to stop\n\n")

	_, _ = io.WriteString(c.w, b.String())
}

// Render redraws the status line in place
func (c *Console) Render(result detection.AggregateResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := c.statusLine(result)

	var b strings.Builder
	b.WriteString("\r")
	b.WriteString(line)
	if c.colors {
		b.WriteString(ansiClearLine)
	} else if visible := utf8.RuneCountInString(line); visible < c.lastLen {
		// Blank out what is left of a longer previous line
		b.WriteString(strings.Repeat(" ", c.lastLen-visible))
	}
	c.lastLen = utf8.RuneCountInString(line)

	_, _ = io.WriteString(c.w, b.String())
}

func (c *Console) statusLine(result detection.AggregateResult) string {
	var b strings.Builder
	b.WriteString(c.paint(ansiYellow, result.Timestamp.Format(time.TimeOnly)))

	for i, out := range result.Outcomes {
		b.WriteString(" | ")

		color, marker := ansiGreen, "scan"
		switch {
		case out.Detected:
			color, marker = ansiRed, "DETECTED"
		case out.AcquisitionFailed:
			color, marker = ansiYellow, "NO DATA"
		case out.DisplayState == detection.RecentDetection:
			color, marker = ansiYellow, "recent"
		}

		if c.opts.ShowDeviceNames {
			name := out.Device.Name
			if utf8.RuneCountInString(name) > nameWidth {
				name = string([]rune(name)[:nameWidth])
			}
			b.WriteString(name + ": ")
		}

		fraction := NormalizePower(out.Display, c.opts.PowerMin, c.opts.PowerMax)
		fmt.Fprintf(&b, "[%s] %6.1f dBFS (thr %.1f) %s %s (%d)",
			Bar(fraction, c.opts.BarWidth),
			out.Display,
			out.Threshold,
			trendArrow(out.Trend),
			c.paint(color, marker),
			deviceTotal(result, i))
	}

	if len(result.Outcomes) > 1 {
		fmt.Fprintf(&b, " | total %d", result.Total)
	}
	return b.String()
}

func deviceTotal(result detection.AggregateResult, i int) uint64 {
	if i < len(result.DeviceTotals) {
		return result.DeviceTotals[i]
	}
	return 0
}

// Summary prints the totals after the loop has stopped
func (c *Console) Summary(s monitor.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteString("\n\nDetector stopped\n")
	fmt.Fprintf(&b, "Total detections: %s\n", humanize.Comma(int64(s.Total))) //nolint:gosec // counter fits int64

	if len(s.Devices) > 1 {
		b.WriteString("\nPer device:\n")
		for i, d := range s.Devices {
			var n uint64
			if i < len(s.DeviceTotals) {
				n = s.DeviceTotals[i]
			}
			fmt.Fprintf(&b, "  %s: %s\n", d.Name, humanize.Comma(int64(n))) //nolint:gosec // counter fits int64
		}
	}

	if !s.Started.IsZero() {
		fmt.Fprintf(&b, "\nScanned %s ticks in %s (started %s)\n",
			humanize.Comma(int64(s.Ticks)), //nolint:gosec // counter fits int64
			s.Duration().Round(time.Second),
			humanize.RelTime(s.Started, s.Stopped, "earlier", "later"))
	}

	_, _ = io.WriteString(c.w, b.String())
	c.lastLen = 0
}
