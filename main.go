package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/rfdetect/cmd"
	"github.com/tphakala/rfdetect/internal/buildinfo"
	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := buildinfo.NewContext(version, buildDate)
	settings := &conf.Settings{Version: info.GetVersion()}
	rootCmd := cmd.RootCommand(settings, info)

	err := rootCmd.ExecuteContext(ctx)

	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
