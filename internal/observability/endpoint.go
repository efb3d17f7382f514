// Package observability provides Prometheus metrics functionality for monitoring rfdetect.
// Sentry-related error telemetry is handled in the telemetry package.
package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
	metricspkg "github.com/tphakala/rfdetect/internal/observability/metrics"
)

// Endpoint serves the Prometheus-compatible /metrics endpoint.
type Endpoint struct {
	listenAddress string
	metrics       *Metrics

	mu   sync.Mutex
	addr net.Addr
}

// NewEndpoint creates an endpoint for metrics on listenAddress.
// It does not create new metrics but uses the provided Metrics instance.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
	}
}

// Run binds the listen address and serves until ctx is canceled, then shuts
// the server down gracefully. It returns nil after a clean shutdown.
func (e *Endpoint) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("address", e.listenAddress).
			Build()
	}

	e.mu.Lock()
	e.addr = ln.Addr()
	e.mu.Unlock()

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		GetLogger().Info("Telemetry endpoint starting", logger.String("address", ln.Addr().String()))
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("operation", "serve").
			Build()
	case <-ctx.Done():
	}

	GetLogger().Info("Stopping telemetry server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		GetLogger().Error("Telemetry server shutdown error", logger.Error(err))
		return err
	}
	<-serveErr
	return nil
}

// Addr returns the bound address, or nil before Run has bound it
func (e *Endpoint) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
