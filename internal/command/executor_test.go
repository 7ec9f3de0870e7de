package command

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cvs-release/internal/model"
)

// requireSh skips the test when no POSIX shell is available, since the
// tests below use sh to produce controlled output and exit codes.
func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// TestExecRunner_Success verifies stdout capture and the working directory.
func TestExecRunner_Success(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()

	res, err := NewExecRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "pwd; echo warn >&2"},
		Dir:  dir,
	})
	require.NoError(t, err)

	resolved, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	assert.Equal(t, resolved, got)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

// TestExecRunner_NonZeroExit verifies that a failing command yields a
// *model.CommandError carrying the exit status and stderr.
func TestExecRunner_NonZeroExit(t *testing.T) {
	requireSh(t)

	res, err := NewExecRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'no such module' >&2; exit 3"},
		Dir:  t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)

	var cmdErr *model.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "sh", cmdErr.Name)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "no such module", cmdErr.Stderr)
	assert.ErrorIs(t, err, model.ErrCommandFailed)
}

// TestExecRunner_NotFound verifies that a missing executable is reported
// as a command failure with exit code -1.
func TestExecRunner_NotFound(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Command{
		Name: "cvs-release-no-such-binary",
		Dir:  t.TempDir(),
	})
	require.Error(t, err)

	var cmdErr *model.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, -1, cmdErr.ExitCode)
}

// TestExecRunner_Env verifies extra environment variables reach the child.
func TestExecRunner_Env(t *testing.T) {
	requireSh(t)

	res, err := NewExecRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "printf %s \"$CVS_RSH\""},
		Dir:  t.TempDir(),
		Env:  []string{"CVS_RSH=ssh"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ssh", res.Stdout)
}

// TestCommand_String verifies the rendered command line.
func TestCommand_String(t *testing.T) {
	assert.Equal(t, "cvs", Command{Name: "cvs"}.String())
	assert.Equal(t, `make new-sources FILES=/tmp/a.tar.gz`,
		Command{Name: "make", Args: []string{"new-sources", "FILES=/tmp/a.tar.gz"}}.String())
}

// TestResult_Output verifies how stdout and stderr are combined.
func TestResult_Output(t *testing.T) {
	assert.Equal(t, "", Result{}.Output())
	assert.Equal(t, "out", Result{Stdout: "out\n"}.Output())
	assert.Equal(t, "err", Result{Stderr: "err\n"}.Output())
	assert.Equal(t, "out\nerr", Result{Stdout: "out\n", Stderr: " err"}.Output())
}
