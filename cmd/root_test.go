package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/buildinfo"
	"github.com/tphakala/rfdetect/internal/conf"
)

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand(settings, buildinfo.NewContext("1.2.3", "2026-01-02"))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRootLoadsConfigForSubcommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: simulated
devices:
  - index: 3
    name: Downlink
    frequency: 392.5
`), 0o600))

	settings := &conf.Settings{}
	out, err := execute(t, settings, "devices", "--config", path, "--debug")
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, "1.2.3", settings.Version)
	assert.Equal(t, path, settings.ConfigFile)
	assert.Contains(t, out, "Downlink")
	assert.Contains(t, out, "392.5000 MHz")
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detection:\n  mode: sometimes\n"), 0o600))

	_, err := execute(t, &conf.Settings{}, "devices", "--config", path)
	require.Error(t, err)
}

func TestInitConfigSkipsLoading(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("detection:\n  mode: sometimes\n"), 0o600))
	target := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, &conf.Settings{}, "init-config", target, "--config", broken)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, &conf.Settings{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (built 2026-01-02)")
}
