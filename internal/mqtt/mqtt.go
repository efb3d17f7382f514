// mqtt.go: Package mqtt publishes detection events to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	// It returns an error if the connection fails.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	// It returns an error if the publish operation fails.
	Publish(ctx context.Context, topic string, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string  // Base topic, the device index is appended
	RateLimit         float64 // Publishes per second
	Retain            bool    // true to retain messages at the broker
	ReconnectCooldown time.Duration
	// ConnectRetry keeps retrying the first connection in the background
	// after Connect has timed out
	ConnectRetry bool
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// Sentinel errors
var (
	ErrNotConnected    = errors.NewStd("not connected to MQTT broker")
	ErrConnectTimeout  = errors.NewStd("connection timeout")
	ErrPublishTimeout  = errors.NewStd("publish timeout")
	ErrConnectCooldown = errors.NewStd("connection attempt too recent")
)

// GetLogger returns the module logger for MQTT export
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		RateLimit:         5,
		ReconnectCooldown: 5 * time.Second,
		ConnectRetry:      true,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
