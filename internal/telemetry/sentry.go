// Package telemetry provides privacy-compliant error reporting to Sentry
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
)

// FlushTimeout bounds how long shutdown waits for queued events
const FlushTimeout = 2 * time.Second

// GetLogger returns the module logger for telemetry
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// PlatformInfo holds privacy-safe platform information
type PlatformInfo struct {
	OS           string
	Architecture string
	NumCPU       int
	GoVersion    string
}

func collectPlatformInfo() PlatformInfo {
	return PlatformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}
}

// InitSentry binds a Sentry client to the current hub and installs the
// enhanced error reporter. It does nothing unless Sentry is enabled.
func InitSentry(settings *conf.Settings, sessionID string) error {
	return initSentry(settings, sessionID, nil)
}

// initSentry accepts a transport so tests can capture events
func initSentry(settings *conf.Settings, sessionID string, transport sentry.Transport) error {
	cfg := settings.Telemetry.Sentry
	if !cfg.Enabled {
		GetLogger().Debug("Sentry error reporting is disabled")
		return nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // prevent hostname leakage
		Release:          fmt.Sprintf("rfdetect@%s", settings.Version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	hub := sentry.CurrentHub()
	hub.BindClient(client)
	configureScope(hub.Scope(), settings, sessionID)

	errors.SetTelemetryReporter(errors.NewSentryReporterWithHub(hub))

	GetLogger().Info("Sentry error reporting enabled",
		logger.String("release", settings.Version),
		logger.String("session_id", sessionID))
	return nil
}

// configureScope tags every event with the session and platform
func configureScope(scope *sentry.Scope, settings *conf.Settings, sessionID string) {
	platform := collectPlatformInfo()

	scope.SetTag("session_id", sessionID)
	scope.SetTag("os", platform.OS)
	scope.SetTag("arch", platform.Architecture)
	scope.SetTag("mode", settings.Mode)

	scope.SetContext("application", map[string]any{
		"name":    "rfdetect",
		"version": settings.Version,
		"devices": len(settings.Devices),
	})
	scope.SetContext("platform", map[string]any{
		"os":           platform.OS,
		"architecture": platform.Architecture,
		"num_cpu":      platform.NumCPU,
		"go_version":   platform.GoVersion,
	})
}

// applyPrivacyFilters strips user, host and runtime data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	for _, key := range []string{"device", "os", "runtime"} {
		delete(event.Contexts, key)
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	delete(event.Tags, "server_name")
	delete(event.Tags, "hostname")

	return event
}

// Close flushes queued events, then shuts down the Sentry client and its
// background workers and removes the error reporter.
func Close(timeout time.Duration) {
	hub := sentry.CurrentHub()
	client := hub.Client()
	if client == nil {
		return
	}
	if !client.Flush(timeout) {
		GetLogger().Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
	client.Close()
	hub.BindClient(nil)
	errors.SetTelemetryReporter(nil)
}
