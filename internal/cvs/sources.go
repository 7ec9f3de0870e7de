package cvs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/cvs-release/internal/command"
)

// SourcesFile is the lookaside manifest kept in every branch directory.
const SourcesFile = "sources"

// DefaultMakeBinary is the make executable looked up in PATH.
const DefaultMakeBinary = "make"

// SourceEntry is one line of a lookaside "sources" manifest:
//
//	<md5sum>  <filename>
type SourceEntry struct {
	Checksum string
	Filename string
}

// Lookaside uploads tarballs through the build system's Makefile
// convention (`make new-sources`).
type Lookaside struct {
	exec   command.Executor
	binary string
}

// NewLookaside creates a Lookaside. An empty binary selects
// DefaultMakeBinary.
func NewLookaside(exec command.Executor, binary string) *Lookaside {
	if binary == "" {
		binary = DefaultMakeBinary
	}
	return &Lookaside{exec: exec, binary: binary}
}

// NewSources registers tarball as the new source of the branch at
// branchDir by running `make new-sources FILES=<tarball>` there. The
// make target uploads the file and rewrites the sources manifest.
func (l *Lookaside) NewSources(ctx context.Context, branchDir, tarball string) (command.Result, error) {
	return l.exec.Run(ctx, command.Command{
		Name: l.binary,
		Args: []string{"new-sources", "FILES=" + tarball},
		Dir:  branchDir,
	})
}

// ReadSources parses the sources manifest in branchDir. A missing
// manifest yields no entries and no error; new branches start without one.
func ReadSources(branchDir string) ([]SourceEntry, error) {
	f, err := os.Open(filepath.Join(branchDir, SourcesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sources file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []SourceEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			entries = append(entries, SourceEntry{Filename: fields[0]})
		default:
			entries = append(entries, SourceEntry{Checksum: fields[0], Filename: fields[1]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return entries, nil
}

// HasSource reports whether filename is already listed in the sources
// manifest of branchDir.
func HasSource(branchDir, filename string) (bool, error) {
	entries, err := ReadSources(branchDir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}
