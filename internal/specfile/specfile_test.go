package specfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/cvs-release/internal/model"
)

const sampleSpec = `# sample package
%global upstream_version 5.2.1
%define short rhn

Name:           %{short}-client-tools
Version:        %{upstream_version}
Release:        3%{?dist}
Summary:        Support programs for %{name}
License:        GPLv2
Source0:        %{name}-%{version}.tar.gz

%description
Version: 9.9.9 must not be read from the body.

%prep
%setup -q
`

// TestFind covers zero, one and several spec files in a directory.
func TestFind(t *testing.T) {
	t.Run("single spec", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.spec"), []byte(sampleSpec), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))

		path, err := Find(dir)
		require.NoError(t, err)
		assert.Equal(t, "pkg.spec", filepath.Base(path))
		assert.True(t, filepath.IsAbs(path))
	})

	t.Run("no spec", func(t *testing.T) {
		_, err := Find(t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfig)
		assert.Contains(t, err.Error(), "no spec file found")
	})

	t.Run("several specs", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.spec"), []byte(sampleSpec), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.spec"), []byte(sampleSpec), 0o644))

		_, err := Find(dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfig)
		assert.Contains(t, err.Error(), "a.spec, b.spec")
	})

	t.Run("directory named like a spec is ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "old.spec"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.spec"), []byte(sampleSpec), 0o644))

		path, err := Find(dir)
		require.NoError(t, err)
		assert.Equal(t, "pkg.spec", filepath.Base(path))
	})

	t.Run("glob characters in directory name", func(t *testing.T) {
		for _, name := range []string{"job[3]", "build*", "what?"} {
			dir := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.Mkdir(dir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg.spec"), []byte(sampleSpec), 0o644))

			path, err := Find(dir)
			require.NoError(t, err, name)
			assert.Equal(t, filepath.Join(dir, "pkg.spec"), path)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "gone"))
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfig)
		assert.Contains(t, err.Error(), "no spec file found")
	})
}

// TestParse verifies tag extraction and macro expansion.
func TestParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg.spec")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec), 0o644))

	spec, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "rhn-client-tools", spec.Name)
	assert.Equal(t, "5.2.1", spec.Version)
	assert.Equal(t, "3", spec.Release)
	assert.Equal(t, "pkg.spec", spec.Filename())
}

// TestParse_MissingTags verifies that Name and Version are required.
func TestParse_MissingTags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no name", "Version: 1.0\n", "no Name tag"},
		{"no version", "Name: pkg\n", "no Version tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pkg.spec")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Parse(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, model.ErrConfig)
		})
	}
}

// TestLoad verifies discovery and parsing together.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tool.spec"),
		[]byte("Name: tool\nVersion: 0.4\n"), 0o644))

	spec, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "tool", spec.Name)
	assert.Equal(t, "0.4", spec.Version)
	assert.Empty(t, spec.Release)
}

// TestExpand verifies unknown macros are kept and optional ones dropped.
func TestExpand(t *testing.T) {
	macros := map[string]string{"name": "pkg", "version": "1.0"}

	assert.Equal(t, "pkg-1.0", expand("%{name}-%{version}", macros))
	assert.Equal(t, "pkg", expand("%name", macros))
	assert.Equal(t, "%{_libdir}/pkg", expand("%{_libdir}/%{name}", macros))
	assert.Equal(t, "1", expand("1%{?dist}", macros))
}
