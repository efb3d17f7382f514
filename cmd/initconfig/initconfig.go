// Package initconfig implements the init-config command
package initconfig

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/errors"
)

// Command creates the init-config command, writing the default configuration
func Command() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration file",
		Long:  "Write a configuration file populated with default settings. Without a path the user configuration directory is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			written, err := Write(path, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", written)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

// Write saves the default settings to path, or the default location when path
// is empty, and returns the file written.
func Write(path string, force bool) (string, error) {
	if path == "" {
		var err error
		if path, err = conf.DefaultConfigFile(); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return "", errors.Newf("%s already exists, use --force to overwrite", path).
			Component("cmd").
			Category(errors.CategoryFileIO).
			Build()
	}

	if err := conf.SaveYAMLConfig(path, conf.Defaults()); err != nil {
		return "", errors.New(err).
			Component("cmd").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return path, nil
}
