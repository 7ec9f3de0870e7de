// Package model defines the domain types and value objects for the
// cvs-release CLI.
//
// This package contains pure data structures with no external dependencies:
// the release configuration, branch names, and the typed errors that the
// CLI layer translates into process exit codes (ExitCode, CLIError).
package model
