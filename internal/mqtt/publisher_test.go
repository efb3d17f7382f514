package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/monitor"
	"github.com/tphakala/rfdetect/internal/observability/metrics"
)

type message struct {
	topic   string
	payload string
}

// fakeClient records publishes
type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	messages     []message
	publishErr   error
	disconnected int
}

func (f *fakeClient) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, message{topic: topic, payload: payload})
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected++
}

func testEvent(index int, floor detection.Floor) monitor.DetectionEvent {
	return monitor.DetectionEvent{
		DeviceIndex: index,
		DeviceName:  "Tetra Mobile",
		FrequencyHz: 382.5e6,
		Power:       -45,
		Threshold:   -62.5,
		Floor:       floor,
		Peak:        -41,
		Timestamp:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestPublisherPayload(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewPublisher(client, "rfdetect/detections/", "session-1", 0, nil)

	require.NoError(t, p.Emit(t.Context(), testEvent(1, detection.Established(-70.5))))
	require.NoError(t, p.Emit(t.Context(), testEvent(0, detection.Unset)))

	require.Len(t, client.messages, 2)
	assert.Equal(t, "rfdetect/detections/1", client.messages[0].topic)
	assert.Equal(t, "rfdetect/detections/0", client.messages[1].topic)

	var got Payload
	require.NoError(t, json.Unmarshal([]byte(client.messages[0].payload), &got))
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, 1, got.DeviceIndex)
	assert.InDelta(t, 382.5, got.FrequencyMHz, 1e-9)
	assert.InDelta(t, -45.0, got.PowerDBFS, 1e-9)
	require.NotNil(t, got.NoiseFloorDBFS)
	assert.InDelta(t, -70.5, *got.NoiseFloorDBFS, 1e-9)
	assert.True(t, got.Timestamp.Equal(testEvent(1, detection.Unset).Timestamp))

	assert.NotContains(t, client.messages[1].payload, "noise_floor_dbfs", "unset floor is omitted")
}

func TestPublisherRateLimit(t *testing.T) {
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	client := &fakeClient{connected: true}
	p := NewPublisher(client, "rf", "s", 2, m)

	for range 5 {
		require.NoError(t, p.Emit(t.Context(), testEvent(0, detection.Unset)))
	}

	assert.Len(t, client.messages, 2, "burst equals the per second rate")
	assert.Equal(t, uint64(3), p.Dropped())
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.MessagesDropped), 1e-9)
}

func TestPublisherReturnsPublishErrors(t *testing.T) {
	client := &fakeClient{publishErr: ErrNotConnected}
	p := NewPublisher(client, "rf", "s", 0, nil)

	err := p.Emit(t.Context(), testEvent(2, detection.Unset))
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Contains(t, err.Error(), "device 2")
}

func TestPublisherCloseDisconnects(t *testing.T) {
	client := &fakeClient{connected: true}
	p := NewPublisher(client, "rf", "s", 1, nil)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, client.disconnected)
	assert.False(t, client.IsConnected())
	assert.Equal(t, SinkName, p.Name())
}
