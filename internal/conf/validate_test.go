package conf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "no devices", mutate: func(s *Settings) { s.Devices = nil }, wantErr: "at least one device"},
		{
			name: "duplicate index",
			mutate: func(s *Settings) {
				s.Devices = append(s.Devices, s.Devices[0])
			},
			wantErr: "more than once",
		},
		{name: "zero frequency", mutate: func(s *Settings) { s.Devices[0].Frequency = 0 }, wantErr: "frequency"},
		{name: "bad gain", mutate: func(s *Settings) { s.Devices[0].Gain = "max" }, wantErr: "gain"},
		{name: "bad mode", mutate: func(s *Settings) { s.Mode = "replay" }, wantErr: "mode must be"},
		{
			name:    "window smaller than min samples",
			mutate:  func(s *Settings) { s.Detection.Adaptive.WindowSize = 3 },
			wantErr: "windowsize",
		},
		{name: "negative margin", mutate: func(s *Settings) { s.Detection.Adaptive.Margin = -1 }, wantErr: "margin"},
		{name: "zero interval", mutate: func(s *Settings) { s.Detection.ScanInterval = 0 }, wantErr: "scaninterval"},
		{name: "zero pulse window", mutate: func(s *Settings) { s.Detection.PulseWindow = 0 }, wantErr: "pulsewindow"},
		{name: "odd samples", mutate: func(s *Settings) { s.Detection.Samples = 1001 }, wantErr: "samples"},
		{
			name: "inverted bar range",
			mutate: func(s *Settings) {
				s.Display.PowerMin = -20
				s.Display.PowerMax = -80
			},
			wantErr: "powermax",
		},
		{
			name: "mqtt without broker",
			mutate: func(s *Settings) {
				s.MQTT.Enabled = true
				s.MQTT.Broker = ""
			},
			wantErr: "broker URL is required",
		},
		{
			name: "mqtt bad scheme",
			mutate: func(s *Settings) {
				s.MQTT.Enabled = true
				s.MQTT.Broker = "http://broker:1883"
			},
			wantErr: "unsupported broker scheme",
		},
		{
			name: "telemetry bad listen",
			mutate: func(s *Settings) {
				s.Telemetry.Enabled = true
				s.Telemetry.Listen = "8090"
			},
			wantErr: "listen address",
		},
		{
			name: "sentry without dsn",
			mutate: func(s *Settings) {
				s.Telemetry.Sentry.Enabled = true
			},
			wantErr: "DSN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	s := Defaults()
	s.Devices[0].Frequency = -1
	s.Detection.ScanInterval = 0
	s.Display.BarWidth = 0

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3, strings.Join(ve.Errors, "; "))
}
