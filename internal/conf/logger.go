// Package conf provides configuration management for rfdetect.
package conf

import "github.com/tphakala/rfdetect/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows the
// centralized logger once the monitor command has installed it.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
