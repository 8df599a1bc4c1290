package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withCapturedOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return buf
}

func TestSilentByDefault(t *testing.T) {
	buf := withCapturedOutput(t)
	SetVerbose(false)

	Debug("hidden %d", 1)
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	assert.Empty(t, buf.String())
}

func TestVerboseLevels(t *testing.T) {
	buf := withCapturedOutput(t)
	SetVerbose(true)

	Debug("embedding %d chunks", 3)
	Info("sync started")
	Warn("truncated input")
	Section("Indexing")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] embedding 3 chunks")
	assert.Contains(t, out, "[INFO] sync started")
	assert.Contains(t, out, "[WARN] truncated input")
	assert.Contains(t, out, "=== Indexing ===")
}

func TestIsVerboseTracksSetting(t *testing.T) {
	withCapturedOutput(t)

	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}
