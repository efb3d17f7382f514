package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedFileWriter_Write(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "test.log")

	writer, err := NewBufferedFileWriter(logPath, WithFlushInterval(0))
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	line := "detection on channel 0\n"
	n, err := writer.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)
	assert.Positive(t, writer.Buffered(), "data should stay buffered until flushed")

	require.NoError(t, writer.Flush())
	assert.Equal(t, 0, writer.Buffered())

	content, err := os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, line, string(content))
}

func TestBufferedFileWriter_AutoFlush(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "autoflush.log")

	writer, err := NewBufferedFileWriter(logPath, WithFlushInterval(20*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	_, err = writer.Write([]byte("auto\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return writer.Buffered() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBufferedFileWriter_Close(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "close.log")

	writer, err := NewBufferedFileWriter(logPath)
	require.NoError(t, err)

	_, err = writer.Write([]byte("before close\n"))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close(), "second close must be a no-op")

	content, err := os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "before close\n", string(content))

	_, err = writer.Write([]byte("after close"))
	assert.Error(t, err)
}

func TestBufferedFileWriter_AppendsToExistingFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "append.log")
	require.NoError(t, os.WriteFile(logPath, []byte("first\n"), 0o600))

	writer, err := NewBufferedFileWriter(logPath, WithBufferSize(16))
	require.NoError(t, err)
	_, err = writer.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	content, err := os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))
	assert.Equal(t, logPath, writer.FilePath())
}
