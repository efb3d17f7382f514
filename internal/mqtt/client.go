// client.go: paho backed implementation of Client
package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
	"github.com/tphakala/rfdetect/internal/observability/metrics"
)

const componentName = "mqtt"

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	metrics         *metrics.MQTTMetrics
}

// NewClient creates a new MQTT client from the MQTT settings.
func NewClient(settings *conf.Settings, m *metrics.MQTTMetrics) (Client, error) {
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Topic = settings.MQTT.Topic
	cfg.RateLimit = settings.MQTT.RateLimit
	return NewClientWithConfig(cfg, m)
}

// NewClientWithConfig creates a new MQTT client. The broker URL is checked
// here, the connection is made by Connect.
func NewClientWithConfig(cfg Config, m *metrics.MQTTMetrics) (Client, error) {
	if m == nil {
		return nil, errors.Newf("MQTT metrics are required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if _, err := brokerHost(cfg.Broker); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "rfdetect-" + uuid.NewString()[:8]
	}
	return &client{config: cfg, metrics: m}, nil
}

// brokerHost parses the broker URL and returns its host name
func brokerHost(broker string) (string, error) {
	u, err := url.Parse(broker)
	if err == nil && u.Hostname() == "" {
		err = fmt.Errorf("missing host")
	}
	if err != nil {
		return "", errors.New(fmt.Errorf("invalid broker URL: %w", err)).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("broker", broker).
			Build()
	}
	return u.Hostname(), nil
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return fmt.Errorf("%w, last attempt was %v ago", ErrConnectCooldown, since.Round(time.Millisecond))
	}
	c.lastConnAttempt = time.Now()

	host, err := brokerHost(c.config.Broker)
	if err != nil {
		return err
	}

	// Fail fast on a name that does not resolve instead of waiting out the connect timeout
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			c.metrics.IncrementErrors()
			return c.connectionError(fmt.Errorf("failed to resolve hostname %s: %w", host, err), "resolve_broker")
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(c.config.ConnectRetry)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	if c.internalClient != nil {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds())) //nolint:gosec // small positive timeout
	}
	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if err := c.wait(ctx, token, c.config.ConnectTimeout); err != nil {
		c.metrics.IncrementErrors()
		if errors.Is(err, ErrConnectTimeout) && c.config.ConnectRetry {
			GetLogger().Warn("MQTT broker not reachable yet, retrying in background",
				logger.String("broker", c.config.Broker))
		}
		return c.connectionError(err, "connect_broker")
	}

	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// wait blocks until token completes, ctx is done or timeout elapses
func (c *client) wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrConnectTimeout
	}
}

func (c *client) connectionError(err error, operation string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryMQTTConnection).
		Context("operation", operation).
		Context("broker", c.config.Broker).
		Build()
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnectedLocked() {
		return ErrNotConnected
	}

	timer := c.metrics.StartPublishTimer()
	defer timer.ObserveDuration()

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if err := c.wait(ctx, token, c.config.PublishTimeout); err != nil {
		c.metrics.IncrementErrors()
		if errors.Is(err, ErrConnectTimeout) {
			err = ErrPublishTimeout
		}
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	c.metrics.IncrementMessagesDelivered()
	c.metrics.ObserveMessageSize(float64(len(payload)))
	GetLogger().Debug("Published detection", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnectedLocked()
}

func (c *client) isConnectedLocked() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker and stops background retries.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds())) //nolint:gosec // small positive timeout
	c.internalClient = nil
	c.metrics.UpdateConnectionStatus(false)
}

func (c *client) onConnect(_ paho.Client) {
	GetLogger().Info("Connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	GetLogger().Warn("Connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.IncrementErrors()
}

func (c *client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	GetLogger().Debug("Reconnecting to MQTT broker", logger.String("broker", c.config.Broker))
	c.metrics.IncrementReconnectAttempts()
}
