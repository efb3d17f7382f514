package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
)

const (
	// DefaultSamples is the number of complex samples per power reading
	DefaultSamples = 256 * 1024
	// DefaultBinary is the rtl_sdr executable looked up in PATH
	DefaultBinary = "rtl_sdr"

	// bufferBlocks is how many reading blocks the per-device ring holds
	bufferBlocks = 4
	// readChunk is the stdout copy size
	readChunk = 32 * 1024
	// stderrLimit bounds the captured rtl_sdr diagnostics
	stderrLimit = 4096
)

// CommandFunc builds the receiver process for a device
type CommandFunc func(ctx context.Context, dev detection.Device) *exec.Cmd

// RTLSDRSource streams IQ samples from one rtl_sdr process per device into a
// ring buffer and computes power over the most recent block on demand.
type RTLSDRSource struct {
	binary  string
	samples int
	command CommandFunc

	mu      sync.Mutex
	streams map[int]*iqStream
	ctx     context.Context // parent of every stream, canceled by Close
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// Option configures an RTLSDRSource
type Option func(*RTLSDRSource)

// WithSamples sets the complex samples per reading
func WithSamples(n int) Option {
	return func(s *RTLSDRSource) {
		if n > 0 {
			s.samples = n
		}
	}
}

// WithBinary sets the rtl_sdr executable path
func WithBinary(path string) Option {
	return func(s *RTLSDRSource) {
		if path != "" {
			s.binary = path
		}
	}
}

// WithCommand replaces the rtl_sdr command builder
func WithCommand(fn CommandFunc) Option {
	return func(s *RTLSDRSource) {
		s.command = fn
	}
}

// NewRTLSDRSource creates an unstarted source
func NewRTLSDRSource(opts ...Option) *RTLSDRSource {
	s := &RTLSDRSource{
		binary:  DefaultBinary,
		samples: DefaultSamples,
		streams: make(map[int]*iqStream),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.command == nil {
		s.command = s.rtlSDRCommand
	}
	return s
}

// Args returns the rtl_sdr arguments for a device, writing samples to stdout
func Args(dev detection.Device) []string {
	args := []string{
		"-d", strconv.Itoa(dev.Index),
		"-f", strconv.FormatFloat(dev.CorrectedFrequencyHz(), 'f', 0, 64),
		"-s", strconv.FormatFloat(dev.SampleRateHz, 'f', 0, 64),
	}
	if dev.ManualGain {
		args = append(args, "-g", strconv.FormatFloat(dev.GainDB, 'f', -1, 64))
	}
	return append(args, "-")
}

func (s *RTLSDRSource) rtlSDRCommand(ctx context.Context, dev detection.Device) *exec.Cmd {
	return exec.CommandContext(ctx, s.binary, Args(dev)...) //nolint:gosec // binary from settings, args built internally
}

// Start launches one stream per device. Streams already running are left alone.
func (s *RTLSDRSource) Start(ctx context.Context, devices []detection.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(ErrStreamClosed).
			Component("acquisition").
			Category(errors.CategoryAcquisition).
			Context("operation", "start_stream").
			Build()
	}
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}

	for _, dev := range devices {
		if _, ok := s.streams[dev.Index]; ok {
			continue
		}
		st, err := s.startStream(s.ctx, dev)
		if err != nil {
			return err
		}
		s.streams[dev.Index] = st
	}
	return nil
}

func (s *RTLSDRSource) startStream(ctx context.Context, dev detection.Device) (*iqStream, error) {
	cmd := s.command(ctx, dev)
	stderr := newBoundedBuffer(stderrLimit)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.New(err).
			Component("acquisition").
			Category(errors.CategoryCommandExecution).
			DeviceContext(dev.Index, dev.Name).
			Context("operation", "create_pipe").
			Build()
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.New(err).
			Component("acquisition").
			Category(errors.CategoryCommandExecution).
			DeviceContext(dev.Index, dev.Name).
			Context("operation", "start_stream").
			Context("command", cmd.Path).
			Build()
	}

	GetLogger().Info("Receiver stream started",
		logger.Int("device_index", dev.Index),
		logger.String("device_name", dev.Name),
		logger.Float64("frequency_hz", dev.CorrectedFrequencyHz()),
		logger.String("command", cmd.String()))

	st := &iqStream{
		dev:    dev,
		rb:     ringbuffer.New(s.blockBytes() * bufferBlocks),
		stderr: stderr,
		block:  make([]byte, s.blockBytes()),
	}

	s.wg.Go(func() {
		st.copyFrom(stdout)
		waitErr := cmd.Wait()
		st.markExited(waitErr)
		if waitErr != nil && ctx.Err() == nil {
			GetLogger().Warn("Receiver process exited",
				logger.Int("device_index", dev.Index),
				logger.Error(waitErr),
				logger.String("stderr", stderr.String()))
		}
	})

	return st, nil
}

// blockBytes is the byte length of one reading, two bytes per complex sample
func (s *RTLSDRSource) blockBytes() int {
	return s.samples * 2
}

// ReadPower computes power over the most recent buffered block for dev
func (s *RTLSDRSource) ReadPower(ctx context.Context, dev detection.Device) (float64, error) {
	if err := ctx.Err(); err != nil {
		return SentinelPower, err
	}

	s.mu.Lock()
	st, ok := s.streams[dev.Index]
	s.mu.Unlock()
	if !ok {
		return SentinelPower, fmt.Errorf("device %d: %w", dev.Index, ErrUnknownDevice)
	}

	return st.power()
}

// Buffered returns the number of IQ bytes waiting for a device
func (s *RTLSDRSource) Buffered(index int) int {
	s.mu.Lock()
	st, ok := s.streams[index]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rb.Length()
}

// Close stops all receiver processes and waits for their readers to finish
func (s *RTLSDRSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.Newf("timed out waiting for receiver streams to stop").
			Component("acquisition").
			Category(errors.CategoryTimeout).
			Context("operation", "close_streams").
			Build()
	}
}

// iqStream is the buffered output of one receiver process
type iqStream struct {
	dev    detection.Device
	stderr *boundedBuffer

	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	exited  bool
	exitErr error
	dropped int64 // bytes discarded because the reader fell behind

	block   []byte
	scratch []float64
}

// copyFrom moves stdout into the ring, dropping the oldest bytes when full
func (st *iqStream) copyFrom(r io.Reader) {
	chunk := make([]byte, readChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			st.write(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}

func (st *iqStream) write(p []byte) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(p) > st.rb.Capacity() {
		p = p[len(p)-st.rb.Capacity():]
	}
	if need := len(p) - st.rb.Free(); need > 0 {
		// Keep I/Q pairs aligned by discarding whole pairs
		need = min(need+need&1, st.rb.Length())
		st.discard(need)
		st.dropped += int64(need)
		if st.dropped%(int64(st.rb.Capacity())*16) < int64(need) {
			GetLogger().Debug("Receiver buffer overrun, dropping oldest samples",
				logger.Int("device_index", st.dev.Index),
				logger.Int64("dropped_bytes", st.dropped))
		}
	}
	if _, err := st.rb.Write(p); err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		GetLogger().Debug("Ring buffer write failed", logger.Int("device_index", st.dev.Index), logger.Error(err))
	}
}

// discard drops n bytes from the head of the ring, caller holds mu
func (st *iqStream) discard(n int) {
	var sink [4096]byte
	for n > 0 {
		k, err := st.rb.Read(sink[:min(n, len(sink))])
		if err != nil || k == 0 {
			return
		}
		n -= k
	}
}

func (st *iqStream) markExited(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.exited = true
	st.exitErr = err
}

// power consumes the newest full block and returns its power
func (st *iqStream) power() (float64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	need := len(st.block)
	available := st.rb.Length()
	if available < need {
		if st.exited {
			if st.exitErr != nil {
				return SentinelPower, fmt.Errorf("%w: %w", ErrStreamClosed, st.exitErr)
			}
			return SentinelPower, ErrStreamClosed
		}
		return SentinelPower, ErrNoSamples
	}

	// Skip stale data so the reading reflects the latest samples
	if stale := (available - need) &^ 1; stale > 0 {
		st.discard(stale)
	}
	if _, err := io.ReadFull(st.rb, st.block); err != nil {
		return SentinelPower, fmt.Errorf("reading IQ block: %w", err)
	}

	var power float64
	power, st.scratch = PowerFromIQ(st.block, st.scratch)
	return power, nil
}

// boundedBuffer keeps the tail of a process's stderr
type boundedBuffer struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	size int
}

func newBoundedBuffer(size int) *boundedBuffer {
	return &boundedBuffer{size: size}
}

// Write implements io.Writer
func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if b.buf.Len()+len(p) > b.size {
		b.buf.Reset()
		if len(p) > b.size {
			p = p[len(p)-b.size:]
		}
	}
	b.buf.Write(p)
	return n, nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
