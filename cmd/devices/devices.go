// Package devices implements the devices command
package devices

import (
	"fmt"
	"io"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfdetect/internal/acquisition"
	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/detection"
)

// Command creates the devices command listing configured receivers
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List configured receivers",
		Long:  "List configured receivers with their PPM corrected tuning frequencies and check that rtl_sdr is available.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return List(cmd.OutOrStdout(), settings.DeviceList(), settings.Mode)
		},
	}
}

// List writes a table of devices to w
func List(w io.Writer, devices []detection.Device, mode string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tFREQUENCY\tTUNED\tSAMPLE RATE\tGAIN")
	for _, d := range devices {
		gain := "auto"
		if d.ManualGain {
			gain = fmt.Sprintf("%.1f dB", d.GainDB)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.4f MHz\t%.6f MHz\t%.2f MS/s\t%s\n",
			d.Index, d.Name, d.FrequencyMHz(), d.CorrectedFrequencyHz()/1e6, d.SampleRateHz/1e6, gain)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if mode == conf.ModeSimulated {
		_, err := fmt.Fprintln(w, "\nMode: simulated, rtl_sdr is not used")
		return err
	}
	if path, err := exec.LookPath(acquisition.DefaultBinary); err == nil {
		_, err = fmt.Fprintf(w, "\n%s: %s\n", acquisition.DefaultBinary, path)
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s: not found in PATH\n", acquisition.DefaultBinary)
	return err
}
