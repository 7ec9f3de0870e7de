package cvs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cvs-release/internal/command"
	"github.com/shinji-kodama/cvs-release/internal/model"
	"github.com/shinji-kodama/cvs-release/internal/testhelper"
)

// TestCheckout verifies the argument vector and working directory of the
// checkout command.
func TestCheckout(t *testing.T) {
	fake := testhelper.NewFakeExecutor()
	c := NewClient(fake, ":pserver:anon@cvs.example.com:/cvs/dist", "")

	_, err := c.Checkout(context.Background(), "/tmp/build/cvswork", "rhn-client")
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, command.Command{
		Name: "cvs",
		Args: []string{"-d", ":pserver:anon@cvs.example.com:/cvs/dist", "co", "rhn-client"},
		Dir:  "/tmp/build/cvswork",
	}, calls[0])
}

// TestCheckout_CustomBinary verifies that a configured cvs binary is used.
func TestCheckout_CustomBinary(t *testing.T) {
	fake := testhelper.NewFakeExecutor()
	c := NewClient(fake, "/cvs", "/opt/cvs/bin/cvs")

	_, err := c.Checkout(context.Background(), "/w", "pkg")
	require.NoError(t, err)
	assert.Equal(t, "/opt/cvs/bin/cvs", fake.Calls()[0].Name)
	assert.Equal(t, "/cvs", c.Root())
}

// TestCheckout_Rsh verifies CVS_RSH is exported only when a remote shell
// is configured.
func TestCheckout_Rsh(t *testing.T) {
	fake := testhelper.NewFakeExecutor()
	c := NewClient(fake, ":ext:builder@cvs.example.com:/cvs/dist", "").WithRsh("ssh")

	_, err := c.Checkout(context.Background(), "/w", "pkg")
	require.NoError(t, err)
	assert.Equal(t, []string{"CVS_RSH=ssh"}, fake.Calls()[0].Env)

	fake = testhelper.NewFakeExecutor()
	c = NewClient(fake, "/cvs", "").WithRsh("")
	_, err = c.Checkout(context.Background(), "/w", "pkg")
	require.NoError(t, err)
	assert.Nil(t, fake.Calls()[0].Env)
}

// TestCheckout_Failure verifies a non-zero exit surfaces as a command error.
func TestCheckout_Failure(t *testing.T) {
	fake := testhelper.NewFakeExecutor().FailOn("cvs", 1, "cannot find module `pkg'")
	c := NewClient(fake, "/cvs", "")

	_, err := c.Checkout(context.Background(), "/w", "pkg")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCommandFailed)
}

// TestCheckout_EmptyModule verifies the module name is required and that
// no command is run without one.
func TestCheckout_EmptyModule(t *testing.T) {
	fake := testhelper.NewFakeExecutor()
	c := NewClient(fake, "/cvs", "")

	_, err := c.Checkout(context.Background(), "/w", "")
	require.Error(t, err)
	assert.Empty(t, fake.Calls())
}

// TestHasBranch covers present, absent, and file-instead-of-directory cases.
func TestHasBranch(t *testing.T) {
	moduleDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(moduleDir, "el6"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "Makefile"), []byte("all:\n"), 0o644))

	ok, err := HasBranch(moduleDir, "el6")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasBranch(moduleDir, "el7")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = HasBranch(moduleDir, "Makefile")
	require.NoError(t, err)
	assert.False(t, ok, "a regular file is not a branch")
}

// TestNewSources verifies the make invocation used for lookaside uploads.
func TestNewSources(t *testing.T) {
	fake := testhelper.NewFakeExecutor()
	l := NewLookaside(fake, "")

	_, err := l.NewSources(context.Background(), "/w/pkg/el6", "/tmp/pkg-1.0.tar.gz")
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, command.Command{
		Name: "make",
		Args: []string{"new-sources", "FILES=/tmp/pkg-1.0.tar.gz"},
		Dir:  "/w/pkg/el6",
	}, calls[0])
}

// TestReadSources verifies manifest parsing, including blank lines and
// entries without a checksum.
func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	content := "d41d8cd98f00b204e9800998ecf8427e  pkg-1.0.tar.gz\n\nlegacy.tar.gz\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SourcesFile), []byte(content), 0o644))

	entries, err := ReadSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []SourceEntry{
		{Checksum: "d41d8cd98f00b204e9800998ecf8427e", Filename: "pkg-1.0.tar.gz"},
		{Filename: "legacy.tar.gz"},
	}, entries)
}

// TestReadSources_Missing verifies a branch without a manifest is not an error.
func TestReadSources_Missing(t *testing.T) {
	entries, err := ReadSources(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestHasSource verifies lookups by file name.
func TestHasSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SourcesFile),
		[]byte("abc  pkg-1.0.tar.gz\n"), 0o644))

	ok, err := HasSource(dir, "pkg-1.0.tar.gz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasSource(dir, "pkg-1.1.tar.gz")
	require.NoError(t, err)
	assert.False(t, ok)
}
