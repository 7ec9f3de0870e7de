package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/cvs-release/internal/model"
)

// Environment variables consulted when the corresponding flag is not set.
const (
	EnvConfigPath = "CVS_RELEASE_CONFIG"
	EnvBuildDir   = "CVS_RELEASE_BUILD_DIR"
)

// Section and option names read by the release workflow.
const (
	SectionCVS    = "cvs"
	OptionCVSRoot = "cvsroot"
	OptionBranch  = "branches"
	OptionCVSRsh  = "cvs_rsh"
)

// CVSWorkDirName is the directory under the build directory that holds
// CVS checkouts.
const CVSWorkDirName = "cvswork"

// Global is the parsed global configuration: named sections, each a set
// of string options.
//
// YAML example:
//
//	cvs:
//	  cvsroot: ":pserver:anonymous@cvs.example.com:/cvs/dist"
//	  branches: RHEL-5 RHEL-6
type Global struct {
	// Path is the file the configuration was loaded from, if any.
	Path string

	sections map[string]map[string]string
}

// NewGlobal builds a Global from in-memory sections. The map is copied.
func NewGlobal(sections map[string]map[string]string) *Global {
	g := &Global{sections: make(map[string]map[string]string, len(sections))}
	for name, opts := range sections {
		cp := make(map[string]string, len(opts))
		for k, v := range opts {
			cp[k] = v
		}
		g.sections[name] = cp
	}
	return g
}

// Load reads a global configuration file. The format is chosen by file
// extension: .yaml/.yml for YAML, .json/.jsonc for JSON with comments.
func Load(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapConfigError(fmt.Sprintf("configuration file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var sections map[string]map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		sections, err = decodeYAML(data)
		if err != nil {
			return nil, model.WrapConfigError(fmt.Sprintf("invalid YAML in %s", path), err)
		}
	case ".json", ".jsonc":
		sections, err = decodeJSON(data)
		if err != nil {
			return nil, model.WrapConfigError(fmt.Sprintf("invalid JSON in %s", path), err)
		}
	default:
		return nil, model.NewConfigError(fmt.Sprintf("unsupported configuration format %q (use .yaml, .yml, .json or .jsonc)", filepath.Ext(path)))
	}
	if sections == nil {
		sections = map[string]map[string]string{}
	}
	return &Global{Path: path, sections: sections}, nil
}

// decodeYAML keeps every scalar exactly as written, so `5.10` stays
// "5.10" instead of becoming the float 5.1.
func decodeYAML(data []byte) (map[string]map[string]string, error) {
	var raw map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	sections := make(map[string]map[string]string, len(raw))
	for name, opts := range raw {
		section := make(map[string]string, len(opts))
		for key, node := range opts {
			s, err := nodeString(&node)
			if err != nil {
				return nil, fmt.Errorf("option %s.%s: %w", name, key, err)
			}
			section[key] = s
		}
		sections[name] = section
	}
	return sections, nil
}

// nodeString converts an option node to its string form. Sequences are
// joined with single spaces so that `branches: [a, b]` and
// `branches: "a b"` are equivalent.
func nodeString(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeString(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("unsupported list item at line %d", item.Line)
			}
			parts = append(parts, item.Value)
		}
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("unsupported value at line %d", n.Line)
	}
}

// decodeJSON strips comments and trailing commas, then decodes with
// UseNumber so numbers keep their literal text.
func decodeJSON(data []byte) (map[string]map[string]string, error) {
	var raw map[string]map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	sections := make(map[string]map[string]string, len(raw))
	for name, opts := range raw {
		section := make(map[string]string, len(opts))
		for key, value := range opts {
			s, err := stringify(value)
			if err != nil {
				return nil, fmt.Errorf("option %s.%s: %w", name, key, err)
			}
			section[key] = s
		}
		sections[name] = section
	}
	return sections, nil
}

// stringify converts a decoded JSON option value to its string form, with
// the same list joining as nodeString.
func stringify(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return fmt.Sprint(val), nil
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// HasSection reports whether the named section exists.
func (g *Global) HasSection(section string) bool {
	_, ok := g.sections[section]
	return ok
}

// HasOption reports whether the section exists and defines option.
func (g *Global) HasOption(section, option string) bool {
	opts, ok := g.sections[section]
	if !ok {
		return false
	}
	_, ok = opts[option]
	return ok
}

// Get returns the value of option in section.
func (g *Global) Get(section, option string) (string, bool) {
	opts, ok := g.sections[section]
	if !ok {
		return "", false
	}
	v, ok := opts[option]
	return v, ok
}

// Sections returns the section names in sorted order.
func (g *Global) Sections() []string {
	names := make([]string, 0, len(g.sections))
	for name := range g.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Release extracts the CVS release settings. The work directory is
// <buildDir>/cvswork.
//
// A missing "cvs" section, or a missing "cvsroot" or "branches" key,
// yields a *model.ConfigError. The optional "cvs_rsh" key sets the remote
// shell cvs uses for :ext: roots.
func (g *Global) Release(buildDir string) (model.ReleaseConfig, error) {
	if !g.HasSection(SectionCVS) {
		return model.ReleaseConfig{}, model.NewConfigError(
			fmt.Sprintf("no '%s' section found in %s", SectionCVS, g.source()))
	}
	root, ok := g.Get(SectionCVS, OptionCVSRoot)
	if !ok {
		return model.ReleaseConfig{}, model.NewConfigError(
			fmt.Sprintf("cannot build from CVS: no '%s' defined in %s", OptionCVSRoot, g.source()))
	}
	branches, ok := g.Get(SectionCVS, OptionBranch)
	if !ok {
		return model.ReleaseConfig{}, model.NewConfigError(
			fmt.Sprintf("cannot build from CVS: no %s defined in %s", OptionBranch, g.source()))
	}

	cfg := model.ReleaseConfig{
		CVSRoot:  strings.TrimSpace(root),
		Branches: model.ParseBranches(branches),
		WorkDir:  filepath.Join(buildDir, CVSWorkDirName),
	}
	if rsh, ok := g.Get(SectionCVS, OptionCVSRsh); ok {
		cfg.CVSRsh = strings.TrimSpace(rsh)
	}
	if err := cfg.Validate(); err != nil {
		return model.ReleaseConfig{}, err
	}
	return cfg, nil
}

func (g *Global) source() string {
	if g.Path == "" {
		return "global configuration"
	}
	return g.Path
}

// DefaultPath returns the configuration file used when --config is not
// given: $CVS_RELEASE_CONFIG, else ~/.config/cvs-release/global.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "global.yaml"
	}
	return filepath.Join(home, ".config", "cvs-release", "global.yaml")
}

// DefaultBuildDir returns the build directory used when --build-dir is
// not given: $CVS_RELEASE_BUILD_DIR, else <tmp>/cvs-release-build.
func DefaultBuildDir() string {
	if d := os.Getenv(EnvBuildDir); d != "" {
		return d
	}
	return filepath.Join(os.TempDir(), "cvs-release-build")
}
