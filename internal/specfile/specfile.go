package specfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/shinji-kodama/cvs-release/internal/model"
)

// Extension is the file extension of RPM packaging spec files.
const Extension = ".spec"

// Spec holds the packaging metadata the release workflow needs.
type Spec struct {
	// Path is the absolute path to the spec file.
	Path string

	// Name is the value of the Name: tag.
	Name string

	// Version is the value of the Version: tag.
	Version string

	// Release is the value of the Release: tag, if present.
	Release string
}

// Filename returns the base name of the spec file.
func (s *Spec) Filename() string {
	return filepath.Base(s.Path)
}

// Find returns the absolute path of the single spec file in dir.
// Zero or several spec files is a *model.ConfigError.
func Find(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", model.WrapConfigError(fmt.Sprintf("no spec file found in %s", dir), err)
		}
		return "", fmt.Errorf("searching for spec file: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	switch len(files) {
	case 0:
		return "", model.NewConfigError(fmt.Sprintf("no spec file found in %s", dir))
	case 1:
		return filepath.Abs(files[0])
	default:
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		return "", model.NewConfigError(fmt.Sprintf("multiple spec files found in %s: %s", dir, strings.Join(names, ", ")))
	}
}

// tagRegex matches "Tag: value" preamble lines, case-insensitively.
var tagRegex = regexp.MustCompile(`(?i)^(name|version|release)\s*:\s*(.+?)\s*$`)

// defineRegex matches simple %define/%global macro definitions.
var defineRegex = regexp.MustCompile(`^%(?:define|global)\s+(\w+)\s+(.+?)\s*$`)

// macroRegex matches %{name} and %name macro references.
var macroRegex = regexp.MustCompile(`%\{\??(\w+)\}|%(\w+)`)

// Parse reads the spec file at path and extracts Name, Version and
// Release. Simple %define/%global macros and the %{name}/%{version} tags
// are expanded; unknown macros are left untouched.
func Parse(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.WrapConfigError(fmt.Sprintf("cannot open spec file %s", path), err)
	}
	defer func() { _ = f.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving spec file path: %w", err)
	}

	macros := make(map[string]string)
	spec := &Spec{Path: abs}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// The preamble ends at the first section marker.
		if strings.HasPrefix(line, "%description") || strings.HasPrefix(line, "%prep") {
			break
		}

		if m := defineRegex.FindStringSubmatch(line); m != nil {
			macros[m[1]] = expand(m[2], macros)
			continue
		}

		m := tagRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := expand(m[2], macros)
		switch strings.ToLower(m[1]) {
		case "name":
			spec.Name = value
		case "version":
			spec.Version = value
		case "release":
			spec.Release = value
		}
		macros[strings.ToLower(m[1])] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	if spec.Name == "" {
		return nil, model.NewConfigError(fmt.Sprintf("spec file %s has no Name tag", path))
	}
	if spec.Version == "" {
		return nil, model.NewConfigError(fmt.Sprintf("spec file %s has no Version tag", path))
	}
	return spec, nil
}

// Load finds the single spec file in dir and parses it.
func Load(dir string) (*Spec, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return Parse(path)
}

// expand replaces known macro references in s.
func expand(s string, macros map[string]string) string {
	return macroRegex.ReplaceAllStringFunc(s, func(ref string) string {
		m := macroRegex.FindStringSubmatch(ref)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := macros[name]; ok {
			return v
		}
		if strings.HasPrefix(ref, "%{?") {
			return ""
		}
		return ref
	})
}
