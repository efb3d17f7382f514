package acquisition

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tphakala/rfdetect/internal/detection"
)

// Simulated signal levels in dBFS
const (
	simNoiseMin    = -70.0
	simNoiseMax    = -60.0
	simBurstMin    = -45.0
	simBurstMax    = -35.0
	simBurstChance = 0.15
)

// SimulatedSource produces uniform background noise with occasional bursts,
// for running without receiver hardware.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource creates a simulated source. A zero seed picks a random one.
func NewSimulatedSource(seed uint64) *SimulatedSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SimulatedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// ReadPower returns a noise reading, or a burst with probability simBurstChance
func (s *SimulatedSource) ReadPower(ctx context.Context, _ detection.Device) (float64, error) {
	if err := ctx.Err(); err != nil {
		return SentinelPower, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < simBurstChance {
		return simBurstMin + s.rng.Float64()*(simBurstMax-simBurstMin), nil
	}
	return simNoiseMin + s.rng.Float64()*(simNoiseMax-simNoiseMin), nil
}

// Close is a no-op
func (s *SimulatedSource) Close() error {
	return nil
}
