package initconfig

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/conf"
)

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfdetect", "config.yaml")

	written, err := Write(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	settings, err := conf.Load(path)
	require.NoError(t, err)
	assert.Equal(t, conf.Defaults().Detection, settings.Detection)

	_, err = Write(path, false)
	require.Error(t, err, "existing file is kept")

	_, err = Write(path, true)
	require.NoError(t, err)
}

func TestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	cmd := Command()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)
}
