package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsole_Levels verifies debug records are hidden unless verbose and
// that warnings carry a prefix.
func TestConsole_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Console: &buf})
	defer func() { _ = closer.Close() }()

	logger.Debug("hidden")
	logger.Info("Checking out cvs module [pkg]")
	logger.Warn("already listed", "branch", "el6")

	assert.Equal(t, "Checking out cvs module [pkg]\nWARNING: already listed branch=el6\n", buf.String())
}

// TestConsole_Verbose verifies debug output with --verbose.
func TestConsole_Verbose(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Console: &buf, Verbose: true})

	logger.With("step", "upload").Debug("built tarball", "path", "/tmp/a.tar.gz")

	assert.Equal(t, "built tarball step=upload path=/tmp/a.tar.gz\n", buf.String())
}

// TestFile verifies records go to the log file as JSON, including debug
// records hidden from the console.
func TestFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "release.log")

	logger, closer := New(Options{Console: &buf, File: path})
	logger.Debug("debug only in file", "n", 1)
	logger.Info("visible")
	require.NoError(t, closer.Close())

	assert.Equal(t, "visible\n", buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "debug only in file", rec["msg"])
}

// TestNewRotator_Env verifies rotation settings can be overridden.
func TestNewRotator_Env(t *testing.T) {
	t.Setenv(EnvLogMaxSize, "10")
	t.Setenv(EnvLogMaxBackups, "0")
	t.Setenv(EnvLogMaxAge, "bogus")

	l := newRotator("/tmp/x.log")
	assert.Equal(t, 10, l.MaxSize)
	assert.Equal(t, 0, l.MaxBackups)
	assert.Equal(t, 30, l.MaxAge)
}
