// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/tphakala/rfdetect/internal/detection"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if settings.Mode != ModeLive && settings.Mode != ModeSimulated {
		ve.Errors = append(ve.Errors, fmt.Sprintf("mode must be %q or %q, got %q", ModeLive, ModeSimulated, settings.Mode))
	}

	ve.Errors = append(ve.Errors, validateDevices(settings.Devices)...)
	ve.Errors = append(ve.Errors, validateDetectionSettings(&settings.Detection)...)
	ve.Errors = append(ve.Errors, validateDisplaySettings(&settings.Display)...)

	if settings.EventLog.Enabled && strings.TrimSpace(settings.EventLog.Filename) == "" {
		ve.Errors = append(ve.Errors, "eventlog.filename must not be empty when the detection log is enabled")
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateDevices checks the receiver list
func validateDevices(devices []DeviceSettings) []string {
	if len(devices) == 0 {
		return []string{"at least one device must be configured"}
	}

	var errs []string
	seen := make(map[int]bool, len(devices))
	for i := range devices {
		d := &devices[i]
		if seen[d.Index] {
			errs = append(errs, fmt.Sprintf("device index %d is configured more than once", d.Index))
		}
		seen[d.Index] = true

		if d.Index < 0 {
			errs = append(errs, fmt.Sprintf("device %q: index must not be negative", d.Name))
		}
		if d.Frequency <= 0 {
			errs = append(errs, fmt.Sprintf("device %q: frequency must be positive MHz", d.Name))
		}
		if d.SampleRate <= 0 {
			errs = append(errs, fmt.Sprintf("device %q: sample rate must be positive MS/s", d.Name))
		}
		if _, _, err := d.GainDB(); err != nil {
			errs = append(errs, fmt.Sprintf("device %q: %v", d.Name, err))
		}
	}
	return errs
}

// validateDetectionSettings checks detection parameters
func validateDetectionSettings(settings *DetectionSettings) []string {
	var errs []string

	if settings.Mode != string(detection.ModeFixed) && settings.Mode != string(detection.ModeAdaptive) {
		errs = append(errs, fmt.Sprintf("detection.mode must be %q or %q, got %q",
			detection.ModeFixed, detection.ModeAdaptive, settings.Mode))
	}
	if settings.ScanInterval <= 0 {
		errs = append(errs, "detection.scaninterval must be positive")
	}
	if settings.PulseWindow <= 0 {
		errs = append(errs, "detection.pulsewindow must be positive")
	}
	if settings.Samples <= 0 || settings.Samples%2 != 0 {
		errs = append(errs, "detection.samples must be a positive even number")
	}

	adaptive := settings.Adaptive
	if adaptive.MinSamples < 1 {
		errs = append(errs, "detection.adaptive.minsamples must be at least 1")
	}
	if adaptive.WindowSize < adaptive.MinSamples {
		errs = append(errs, fmt.Sprintf("detection.adaptive.windowsize (%d) must be at least minsamples (%d)",
			adaptive.WindowSize, adaptive.MinSamples))
	}
	if adaptive.Margin < 0 {
		errs = append(errs, "detection.adaptive.margin must not be negative")
	}

	return errs
}

// validateDisplaySettings checks status line settings
func validateDisplaySettings(settings *DisplaySettings) []string {
	var errs []string
	if settings.BarWidth <= 0 {
		errs = append(errs, "display.barwidth must be positive")
	}
	if settings.PowerMax <= settings.PowerMin {
		errs = append(errs, fmt.Sprintf("display.powermax (%g) must be greater than powermin (%g)",
			settings.PowerMax, settings.PowerMin))
	}
	return errs
}

// validateMQTTSettings validates the MQTT-specific settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	u, err := url.Parse(settings.Broker)
	switch {
	case settings.Broker == "":
		errs = append(errs, "broker URL is required")
	case err != nil:
		errs = append(errs, fmt.Sprintf("invalid broker URL: %v", err))
	case u.Scheme != "tcp" && u.Scheme != "ssl" && u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "mqtt" && u.Scheme != "mqtts":
		errs = append(errs, fmt.Sprintf("unsupported broker scheme %q", u.Scheme))
	case u.Hostname() == "":
		errs = append(errs, "broker URL has no host")
	}

	if strings.TrimSpace(settings.Topic) == "" {
		errs = append(errs, "topic is required")
	}
	if settings.RateLimit <= 0 {
		errs = append(errs, "ratelimit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("MQTT settings errors: %v", errs)
	}
	return nil
}

// validateTelemetrySettings validates the metrics endpoint and Sentry settings
func validateTelemetrySettings(settings *TelemetrySettings) error {
	var errs []string

	if settings.Enabled {
		if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("invalid listen address %q: %v", settings.Listen, err))
		}
	}
	if settings.Sentry.Enabled && strings.TrimSpace(settings.Sentry.DSN) == "" {
		errs = append(errs, "sentry DSN is required when Sentry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry settings errors: %v", errs)
	}
	return nil
}
