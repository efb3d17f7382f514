// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default receiver values
const (
	DefaultFrequency  = 382.5 // MHz
	DefaultSampleRate = 2.4   // MS/s
	DefaultDeviceName = "Tetra Mobile"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("mode", ModeLive)
	v.SetDefault("simulatedfallback", false)
	v.SetDefault("devices", []map[string]any{
		{
			"index":      0,
			"name":       DefaultDeviceName,
			"frequency":  DefaultFrequency,
			"samplerate": DefaultSampleRate,
			"gain":       GainAuto,
			"ppm":        0.0,
		},
	})

	v.SetDefault("detection.mode", "adaptive")
	v.SetDefault("detection.threshold", -50.0)
	v.SetDefault("detection.scaninterval", 500*time.Millisecond)
	v.SetDefault("detection.samples", 256*1024)
	v.SetDefault("detection.pulsewindow", 4*time.Second)
	v.SetDefault("detection.adaptive.windowsize", 20)
	v.SetDefault("detection.adaptive.minsamples", 5)
	v.SetDefault("detection.adaptive.margin", 8.0)

	v.SetDefault("display.barwidth", 30)
	v.SetDefault("display.powermin", -80.0)
	v.SetDefault("display.powermax", -20.0)
	v.SetDefault("display.usecolors", true)
	v.SetDefault("display.showdevicenames", true)

	v.SetDefault("eventlog.enabled", true)
	v.SetDefault("eventlog.dir", "logs")
	v.SetDefault("eventlog.filename", "rfdetect_20060102.log")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.timezone", "Local")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "rfdetect/detections")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.clientid", "")
	v.SetDefault("mqtt.ratelimit", 5.0)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", "0.0.0.0:8090")
	v.SetDefault("telemetry.sentry.enabled", false)
	v.SetDefault("telemetry.sentry.dsn", "")
}
