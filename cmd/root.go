package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfdetect/cmd/devices"
	"github.com/tphakala/rfdetect/cmd/initconfig"
	"github.com/tphakala/rfdetect/cmd/monitor"
	"github.com/tphakala/rfdetect/internal/buildinfo"
	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/errors"
	"github.com/tphakala/rfdetect/internal/logger"
)

// RootCommand creates and returns the root command. Settings are loaded into
// settings before any subcommand except init-config runs.
func RootCommand(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "rfdetect",
		Short:         "Adaptive RF power detector for RTL-SDR receivers",
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := conf.BindFlag(rootCmd.PersistentFlags(), "debug", "debug"); err != nil {
		panic(err) // flag defined above
	}

	monitorCmd := monitor.Command(settings)
	devicesCmd := devices.Command(settings)
	initCmd := initconfig.Command()

	rootCmd.AddCommand(monitorCmd, devicesCmd, initCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// init-config writes defaults and must work with a broken config file
		if cmd.Name() == initCmd.Name() {
			return nil
		}

		loaded, err := conf.LoadWithFlags(configFile, cmd.Flags())
		if err != nil {
			return errors.New(err).
				Component("cmd").
				Category(errors.CategoryConfiguration).
				Build()
		}
		loaded.Version = info.GetVersion()
		*settings = *loaded

		return initLogger(settings)
	}

	return rootCmd
}

// initLogger replaces the fallback console logger with the configured one
func initLogger(settings *conf.Settings) error {
	cl, err := logger.NewCentralLogger(settings.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.ConfigFile != "" {
		logger.Global().Module("main").Debug("Using configuration file", logger.String("path", settings.ConfigFile))
	}
	return nil
}
