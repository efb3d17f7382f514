// publisher.go: detection event sink publishing JSON to the broker
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
	"github.com/tphakala/rfdetect/internal/monitor"
	"github.com/tphakala/rfdetect/internal/observability/metrics"
)

// SinkName identifies the publisher in metrics and logs
const SinkName = "mqtt"

// Payload is the JSON document published for each detection
type Payload struct {
	SessionID      string    `json:"session_id"`
	DeviceIndex    int       `json:"device_index"`
	DeviceName     string    `json:"device_name"`
	FrequencyMHz   float64   `json:"frequency_mhz"`
	PowerDBFS      float64   `json:"power_dbfs"`
	ThresholdDBFS  float64   `json:"threshold_dbfs"`
	NoiseFloorDBFS *float64  `json:"noise_floor_dbfs,omitempty"`
	PeakDBFS       float64   `json:"peak_dbfs"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewPayload converts a detection event
func NewPayload(sessionID string, event monitor.DetectionEvent) Payload {
	p := Payload{
		SessionID:     sessionID,
		DeviceIndex:   event.DeviceIndex,
		DeviceName:    event.DeviceName,
		FrequencyMHz:  event.FrequencyHz / 1e6,
		PowerDBFS:     event.Power,
		ThresholdDBFS: event.Threshold,
		PeakDBFS:      event.Peak,
		Timestamp:     event.Timestamp,
	}
	if floor, ok := event.Floor.Value(); ok {
		p.NoiseFloorDBFS = &floor
	}
	return p
}

// Publisher sends detection events to <topic>/<device-index>. Events above
// the rate limit are dropped.
type Publisher struct {
	client    Client
	topic     string
	sessionID string
	limiter   *rate.Limiter
	metrics   *metrics.MQTTMetrics
	dropped   atomic.Uint64
}

var _ monitor.EventSink = (*Publisher)(nil)

// NewPublisher creates a publisher on a connected (or connecting) client.
// A non-positive rate limit disables limiting. m may be nil.
func NewPublisher(c Client, topic, sessionID string, ratePerSecond float64, m *metrics.MQTTMetrics) *Publisher {
	limit := rate.Inf
	burst := 0
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = max(1, int(ratePerSecond))
	}
	return &Publisher{
		client:    c,
		topic:     strings.TrimSuffix(topic, "/"),
		sessionID: sessionID,
		limiter:   rate.NewLimiter(limit, burst),
		metrics:   m,
	}
}

// Name implements monitor.EventSink
func (p *Publisher) Name() string { return SinkName }

// Topic returns the topic events of a device are published to
func (p *Publisher) Topic(deviceIndex int) string {
	return p.topic + "/" + strconv.Itoa(deviceIndex)
}

// Dropped returns the number of events discarded by the rate limit
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Emit publishes one detection. Rate limited events are dropped without error.
func (p *Publisher) Emit(ctx context.Context, event monitor.DetectionEvent) error {
	if !p.limiter.Allow() {
		n := p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.IncrementMessagesDropped()
		}
		GetLogger().Debug("Detection dropped by publish rate limit",
			logger.Int("device_index", event.DeviceIndex),
			logger.Uint64("dropped_total", n))
		return nil
	}

	data, err := json.Marshal(NewPayload(p.sessionID, event))
	if err != nil {
		return errors.New(fmt.Errorf("encode detection: %w", err)).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	if err := p.client.Publish(ctx, p.Topic(event.DeviceIndex), string(data)); err != nil {
		return fmt.Errorf("publish detection for device %d: %w", event.DeviceIndex, err)
	}
	return nil
}

// Close disconnects the client
func (p *Publisher) Close() error {
	p.client.Disconnect()
	if n := p.dropped.Load(); n > 0 {
		GetLogger().Info("MQTT publisher closed", logger.Uint64("dropped_total", n))
	}
	return nil
}
