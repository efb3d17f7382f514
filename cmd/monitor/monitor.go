// Package monitor implements the monitor command running the detection loop
package monitor

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/rfdetect/internal/acquisition"
	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/display"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/eventlog"
	"github.com/tphakala/rfdetect/internal/logger"
	loop "github.com/tphakala/rfdetect/internal/monitor"
	"github.com/tphakala/rfdetect/internal/mqtt"
	"github.com/tphakala/rfdetect/internal/observability"
	"github.com/tphakala/rfdetect/internal/telemetry"
)

// Command creates the monitor command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor configured receivers for RF activity",
		Long:  "Scan every configured receiver in turn and report transmissions above the fixed or adaptive threshold until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err) // flags are defined in setupFlags
	}

	return cmd
}

// setupFlags configures flags specific to the monitor command
func setupFlags(cmd *cobra.Command) error {
	fs := cmd.Flags()
	fs.Bool("simulated", false, "Use simulated readings instead of rtl_sdr")
	fs.Bool("fallback-simulated", false, "Use simulated readings when rtl_sdr cannot start")
	fs.Bool("fixed", false, "Use the fixed threshold only")
	fs.Float64P("threshold", "t", 0, "Fixed threshold in dBFS")
	fs.Duration("interval", 0, "Delay between scans")
	fs.Int("window", 0, "Noise floor window size in readings")
	fs.Float64("margin", 0, "Adaptive margin in dB above the noise floor")
	fs.Float64P("frequency", "f", 0, "Monitor a single receiver on this frequency in MHz")
	fs.Bool("no-color", false, "Disable coloured output")

	bindings := []struct {
		flag, key string
		value     []string
	}{
		{"simulated", "mode", []string{conf.ModeSimulated}},
		{"fallback-simulated", "simulatedfallback", nil},
		{"fixed", "detection.mode", []string{"fixed"}},
		{"threshold", "detection.threshold", nil},
		{"interval", "detection.scaninterval", nil},
		{"window", "detection.adaptive.windowsize", nil},
		{"margin", "detection.adaptive.margin", nil},
		{"frequency", conf.FrequencyOverrideKey, nil},
		{"no-color", "display.usecolors", []string{"false"}},
	}
	for _, b := range bindings {
		if err := conf.BindFlag(fs, b.flag, b.key, b.value...); err != nil {
			return err
		}
	}
	return nil
}

// Run starts telemetry, the power source and sinks, then runs the sampling
// loop until ctx is canceled. Status output goes to out.
func Run(ctx context.Context, settings *conf.Settings, out io.Writer) error {
	log := logger.Global().Module("main")
	sessionID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, sessionID)

	logHostInfo(ctx, log, sessionID, settings)

	if err := telemetry.InitSentry(settings, sessionID); err != nil {
		log.Warn("Error reporting disabled", logger.Error(err))
	}
	defer telemetry.Close(telemetry.FlushTimeout)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).Component("cmd").Category(errors.CategorySystem).Build()
	}

	source, err := acquisition.NewSource(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Warn("Failed to stop power source", logger.Error(err))
		}
	}()

	sinks, recorders := buildSinks(ctx, settings, sessionID, metrics)

	console := display.NewConsole(out, display.OptionsFromSettings(settings.Display))
	mon, err := loop.New(settings.DetectionConfig(), settings.DeviceList(), source,
		loop.WithRenderers(console),
		loop.WithRenderers(recorders...),
		loop.WithSinks(sinks...),
		loop.WithRecorder(metrics.Detection))
	if err != nil {
		for _, s := range sinks {
			_ = s.Close()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(gctx) })

	if settings.Telemetry.Enabled {
		endpoint := observability.NewEndpoint(settings.Telemetry.Listen, metrics)
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Detector stopped", logger.Uint64("detections", mon.Totals().Total))
	return nil
}

// buildSinks creates the enabled detection sinks and the session recorders
// among them. A broker that cannot be reached yet is logged, the client keeps
// retrying in the background.
func buildSinks(ctx context.Context, settings *conf.Settings, sessionID string, metrics *observability.Metrics) (sinks []loop.EventSink, recorders []loop.Renderer) {
	log := logger.Global().Module("main")

	if dailyLog := eventlog.NewFromSettings(settings.EventLog); dailyLog != nil {
		sinks = append(sinks, dailyLog)
		recorders = append(recorders, dailyLog)
	}

	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings, metrics.MQTT)
		if err != nil {
			log.Error("MQTT export disabled", logger.Error(err))
			return sinks, recorders
		}
		if err := client.Connect(ctx); err != nil {
			log.Warn("Failed to connect to MQTT broker",
				logger.String("broker", settings.MQTT.Broker),
				logger.Error(err))
		}
		sinks = append(sinks, mqtt.NewPublisher(client, settings.MQTT.Topic, sessionID, settings.MQTT.RateLimit, metrics.MQTT))
	}

	return sinks, recorders
}

// logHostInfo records the platform the detector runs on
func logHostInfo(ctx context.Context, log logger.Logger, sessionID string, settings *conf.Settings) {
	fields := []logger.Field{
		logger.String("session_id", sessionID),
		logger.String("version", settings.Version),
		logger.String("mode", settings.Mode),
		logger.Int("devices", len(settings.Devices)),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		fields = append(fields,
			logger.String("hostname", info.Hostname),
			logger.String("platform", fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)),
			logger.String("kernel_arch", info.KernelArch))
	} else {
		log.Debug("Host info unavailable", logger.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields = append(fields, logger.Uint64("memory_total_bytes", vm.Total))
	}

	log.Info("Starting detector", fields...)
}
