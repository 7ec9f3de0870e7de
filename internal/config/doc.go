// Package config loads the global release configuration.
//
// The configuration is a set of named sections holding string options,
// written as YAML (gopkg.in/yaml.v3) or as JSON with comments
// (github.com/tidwall/jsonc strips comments before encoding/json decodes).
// Global.Release turns the "cvs" section into a model.ReleaseConfig.
package config
