// Package acquisition supplies power readings for configured receivers, either
// from rtl_sdr IQ streams or from a simulated noise source.
package acquisition

import (
	"context"
	"io"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
)

// SentinelPower replaces a reading that could not be acquired, in dBFS
const SentinelPower = -80.0

// CalibrationOffset shifts 10·log10 of the normalized IQ power to an
// approximate dBm scale.
const CalibrationOffset = -50.0

// powerEpsilon keeps log10 finite for an all-zero block
const powerEpsilon = 1e-10

var (
	// ErrNoSamples is returned while a stream has not buffered a full block yet
	ErrNoSamples = errors.NewStd("not enough IQ samples buffered")
	// ErrStreamClosed is returned after the receiver process has exited
	ErrStreamClosed = errors.NewStd("receiver stream closed")
	// ErrUnknownDevice is returned for a device the source was not started for
	ErrUnknownDevice = errors.NewStd("device not managed by this source")
)

// PowerSource reads one scalar power value per device
type PowerSource interface {
	ReadPower(ctx context.Context, dev detection.Device) (float64, error)
}

// Source is a PowerSource owning resources that must be released
type Source interface {
	PowerSource
	io.Closer
}

// GetLogger returns the acquisition package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("acquisition")
}

// NewSource creates the source selected by settings.Mode. Live sources start
// one rtl_sdr process per configured device, bound to ctx, and opts are
// applied to them. When live receivers cannot start and
// settings.SimulatedFallback is set, settings.Mode is switched to simulated
// and a simulated source is returned instead of the error.
func NewSource(ctx context.Context, settings *conf.Settings, opts ...Option) (Source, error) {
	devices := settings.DeviceList()

	if settings.Mode == conf.ModeSimulated {
		GetLogger().Info("Using simulated receivers", logger.Int("devices", len(devices)))
		return NewSimulatedSource(rand.Uint64()), nil
	}

	src := NewRTLSDRSource(append([]Option{WithSamples(settings.Detection.Samples)}, opts...)...)
	if err := src.Start(ctx, devices); err != nil {
		_ = src.Close()
		if !settings.SimulatedFallback {
			return nil, err
		}
		GetLogger().Warn("Live receivers unavailable, falling back to simulated readings",
			logger.Int("devices", len(devices)),
			logger.Error(err))
		settings.Mode = conf.ModeSimulated
		return NewSimulatedSource(rand.Uint64()), nil
	}
	return src, nil
}

// PowerFromIQ converts interleaved unsigned 8-bit IQ bytes to power in dBFS.
// scratch is reused between calls and may be nil.
func PowerFromIQ(iq []byte, scratch []float64) (power float64, buf []float64) {
	n := len(iq) &^ 1
	if n == 0 {
		return SentinelPower, scratch
	}

	if cap(scratch) < n {
		scratch = make([]float64, n)
	}
	scratch = scratch[:n]
	for i, b := range iq[:n] {
		scratch[i] = (float64(b) - 127.5) / 127.5
	}

	// Sum of I² + Q² over all complex samples
	meanSquare := floats.Dot(scratch, scratch) / float64(n/2)
	return 10*math.Log10(meanSquare+powerEpsilon) + CalibrationOffset, scratch
}
