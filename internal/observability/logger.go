// Package observability provides Prometheus metrics functionality for monitoring rfdetect.
package observability

import "github.com/tphakala/rfdetect/internal/logger"

// GetLogger returns the observability package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
