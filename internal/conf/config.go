// config.go: settings tree, loading and saving
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/logger"
)

// Source modes
const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

// GainAuto selects the tuner's automatic gain control
const GainAuto = "auto"

// DeviceSettings describes one receiver
type DeviceSettings struct {
	Index      int     // rtl_sdr device index
	Name       string  // display name
	Frequency  float64 // centre frequency in MHz
	SampleRate float64 // sample rate in MS/s
	Gain       string  // "auto" or tuner gain in dB
	PPM        float64 // frequency correction in parts per million
}

// AdaptiveSettings contains the noise floor estimator parameters
type AdaptiveSettings struct {
	WindowSize int     // number of non-signal readings kept for the noise floor
	MinSamples int     // readings needed before the noise floor is established
	Margin     float64 // dB added to the noise floor to form the dynamic threshold
}

// DetectionSettings contains detection parameters
type DetectionSettings struct {
	Mode         string           // fixed or adaptive
	Threshold    float64          // fixed threshold in dBFS
	ScanInterval time.Duration    // delay between ticks
	Samples      int              // IQ samples per power reading in live mode
	PulseWindow  time.Duration    // trailing horizon for peak tracking
	Adaptive     AdaptiveSettings // adaptive threshold settings
}

// DisplaySettings contains status line settings
type DisplaySettings struct {
	BarWidth        int     // number of cells in the power bar
	PowerMin        float64 // power mapped to an empty bar
	PowerMax        float64 // power mapped to a full bar
	UseColors       bool    // ANSI colours when stdout is a terminal
	ShowDeviceNames bool    // prefix each segment with the device name
}

// EventLogSettings contains the detection log settings
type EventLogSettings struct {
	Enabled  bool   // true to write detections to a daily log file
	Dir      string // directory for log files
	Filename string // file name, a Go time layout is expanded with the local date
}

// LoggingSettings contains application log settings
type LoggingSettings struct {
	Level    string // trace, debug, info, warn, error
	Console  bool   // log to stderr
	File     string // JSON log file path, empty disables file logging
	Timezone string // "Local", "UTC" or IANA name
}

// MQTTSettings contains settings for MQTT detection export
type MQTTSettings struct {
	Enabled   bool    // true to enable MQTT
	Broker    string  // MQTT broker URL (tcp://host:port)
	Topic     string  // base topic, device index is appended
	Username  string  // MQTT username
	Password  string  // MQTT password
	ClientID  string  // client id, generated when empty
	RateLimit float64 // maximum publishes per second
}

// SentrySettings contains settings for error telemetry
type SentrySettings struct {
	Enabled bool   // true to report errors to Sentry
	DSN     string // project DSN
}

// TelemetrySettings contains settings for the Prometheus endpoint
type TelemetrySettings struct {
	Enabled bool           // true to enable Prometheus compatible telemetry endpoint
	Listen  string         // IP address and port to listen on
	Sentry  SentrySettings // error telemetry
}

// Settings is the root of the configuration tree
type Settings struct {
	Debug bool // true to enable debug logging

	// Runtime values, not stored in config file
	Version    string `yaml:"-"`
	ConfigFile string `yaml:"-"`

	Mode              string            // live or simulated
	SimulatedFallback bool              // use simulated receivers when live ones cannot start
	Devices           []DeviceSettings  // receivers to scan
	Detection         DetectionSettings // detection parameters
	Display           DisplaySettings   // status line
	EventLog          EventLogSettings  // daily detection log
	Logging           LoggingSettings   // application log
	MQTT              MQTTSettings      // MQTT export
	Telemetry         TelemetrySettings // metrics and error reporting
}

var settingsMutex sync.Mutex

// Load reads configuration from configFile (or the default search paths when
// empty), applies defaults and validates the result. A missing configuration
// file is not an error, defaults are used.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v, err := Viper(configFile)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Viper returns a viper instance with defaults applied and the configuration
// file read, used by commands that bind flags before unmarshaling.
func Viper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}
	return v, nil
}

// Decode unmarshals and validates settings from a prepared viper instance
func Decode(v *viper.Viper) (*Settings, error) {
	return decode(v, nil)
}

// decode unmarshals settings, lets adjust modify them and validates the result
func decode(v *viper.Viper, adjust func(*Settings)) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()
	if adjust != nil {
		adjust(settings)
	}
	applyDeviceDefaults(settings.Devices)

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// applyDeviceDefaults fills per-device fields omitted from a configured device list
func applyDeviceDefaults(devices []DeviceSettings) {
	for i := range devices {
		d := &devices[i]
		if d.Name == "" {
			d.Name = fmt.Sprintf("Device %d", d.Index)
		}
		if d.SampleRate == 0 {
			d.SampleRate = DefaultSampleRate
		}
		if strings.TrimSpace(d.Gain) == "" {
			d.Gain = GainAuto
		}
	}
}

// initViper applies defaults and reads the configuration file
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	v.SetEnvPrefix("RFDETECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("No configuration file found, using defaults")
			return nil
		}
		if configFile != "" && errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("configuration file %s does not exist: %w", configFile, err)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("Configuration loaded", logger.String("file", v.ConfigFileUsed()))
	return nil
}

// Defaults returns the settings produced by defaults alone
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	// Defaults always decode, a failure here is a programming error
	if err := v.Unmarshal(settings); err != nil {
		panic(fmt.Sprintf("conf: default settings do not decode: %v", err))
	}
	return settings
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing
// file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Write to a temporary file in the same directory and rename it over the target
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

// GainDB parses the gain setting. ok is false for automatic gain.
func (d DeviceSettings) GainDB() (gain float64, ok bool, err error) {
	if strings.EqualFold(strings.TrimSpace(d.Gain), GainAuto) || d.Gain == "" {
		return 0, false, nil
	}
	gain, err = strconv.ParseFloat(strings.TrimSpace(d.Gain), 64)
	if err != nil {
		return 0, false, fmt.Errorf("gain must be %q or a number in dB, got %q", GainAuto, d.Gain)
	}
	return gain, true, nil
}

// DeviceList converts configured receivers to core devices
func (s *Settings) DeviceList() []detection.Device {
	mode := detection.SourceLive
	if s.Mode == ModeSimulated {
		mode = detection.SourceSimulated
	}

	devices := make([]detection.Device, 0, len(s.Devices))
	for _, d := range s.Devices {
		gain, manual, _ := d.GainDB()
		devices = append(devices, detection.Device{
			Index:        d.Index,
			Name:         d.Name,
			FrequencyHz:  d.Frequency * 1e6,
			SampleRateHz: d.SampleRate * 1e6,
			ManualGain:   manual,
			GainDB:       gain,
			PPM:          d.PPM,
			Source:       mode,
		})
	}
	return devices
}

// DetectionConfig converts detection settings to the immutable core snapshot
func (s *Settings) DetectionConfig() detection.Config {
	mode := detection.ModeAdaptive
	if s.Detection.Mode == string(detection.ModeFixed) {
		mode = detection.ModeFixed
	}
	return detection.Config{
		Mode:           mode,
		FixedThreshold: s.Detection.Threshold,
		WindowSize:     s.Detection.Adaptive.WindowSize,
		MinSamples:     s.Detection.Adaptive.MinSamples,
		Margin:         s.Detection.Adaptive.Margin,
		PulseWindow:    s.Detection.PulseWindow,
		ScanInterval:   s.Detection.ScanInterval,
	}
}

// LoggerConfig converts logging settings for the central logger. Debug mode
// lowers every output to debug.
func (s *Settings) LoggerConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug {
		level = "debug"
	}
	return &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Logging.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: s.Logging.Console, Level: level},
		FileOutput: &logger.FileOutput{
			Enabled: s.Logging.File != "",
			Path:    s.Logging.File,
			Level:   level,
		},
	}
}
