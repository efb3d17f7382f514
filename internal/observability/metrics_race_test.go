package observability

import (
	"sync"
	"testing"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without causing race conditions, each call using its own registry
func TestNewMetricsConcurrency(t *testing.T) {
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for range numGoroutines {
		go func() {
			defer wg.Done()

			metrics, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}
			if metrics == nil {
				t.Error("NewMetrics returned nil")
				return
			}

			if metrics.registry == nil {
				t.Error("metrics.registry is nil")
			}
			if metrics.Detection == nil {
				t.Error("metrics.Detection is nil")
			}
			if metrics.MQTT == nil {
				t.Error("metrics.MQTT is nil")
			}

			// Concurrent writers on a single instance
			metrics.Detection.RecordSinkError("eventlog")
			metrics.MQTT.IncrementMessagesDelivered()
		}()
	}

	wg.Wait()
}
