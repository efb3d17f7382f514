package mqtt

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/observability/metrics"
)

func newTestMetrics(t *testing.T) *metrics.MQTTMetrics {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNewClientFromSettings(t *testing.T) {
	settings := conf.Defaults()
	settings.MQTT.ClientID = ""

	c, err := NewClient(settings, newTestMetrics(t))
	require.NoError(t, err)

	impl, ok := c.(*client)
	require.True(t, ok)
	assert.Equal(t, "tcp://localhost:1883", impl.config.Broker)
	assert.Contains(t, impl.config.ClientID, "rfdetect-", "client id is generated")
	assert.Equal(t, 30*time.Second, impl.config.ConnectTimeout)
	assert.False(t, c.IsConnected())
}

func TestNewClientRejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "tcp://"
	_, err := NewClientWithConfig(cfg, newTestMetrics(t))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	cfg.Broker = "tcp://localhost:1883"
	_, err = NewClientWithConfig(cfg, nil)
	require.Error(t, err)
}

func TestPublishWhileDisconnected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	c, err := NewClientWithConfig(cfg, newTestMetrics(t))
	require.NoError(t, err)

	err = c.Publish(t.Context(), "rf/0", "{}")
	require.ErrorIs(t, err, ErrNotConnected)

	c.Disconnect() // no-op before Connect
}

func TestConnectCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	cfg.ReconnectCooldown = time.Hour
	c, err := NewClientWithConfig(cfg, newTestMetrics(t))
	require.NoError(t, err)

	impl := c.(*client)
	impl.lastConnAttempt = time.Now()

	err = c.Connect(t.Context())
	require.ErrorIs(t, err, ErrConnectCooldown)
}
