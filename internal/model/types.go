// Package model defines the domain types for the cvs-release CLI.
//
// The types in this package are transient: a ReleaseConfig is built from
// the global configuration for one run, and nothing is persisted outside
// the CVS checkout tree itself.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Branch is the name of a release line inside the CVS module checkout.
// Each branch corresponds to a directory of the same name directly under
// the module directory, e.g. <workdir>/<package>/RHEL-5.
type Branch string

// String returns the branch name.
func (b Branch) String() string {
	return string(b)
}

// ParseBranches splits a whitespace-separated branch list into Branches,
// preserving declaration order. Runs of spaces, tabs and newlines are
// treated as a single separator.
func ParseBranches(s string) []Branch {
	fields := strings.Fields(s)
	branches := make([]Branch, 0, len(fields))
	for _, f := range fields {
		branches = append(branches, Branch(f))
	}
	return branches
}

// ReleaseConfig holds the settings for releasing one package into CVS.
//
// It is built once from the global configuration and never modified
// afterwards; the orchestrator only reads from it.
type ReleaseConfig struct {
	// CVSRoot is passed to `cvs -d` and identifies the central repository.
	CVSRoot string `json:"cvsRoot"`

	// Branches is the ordered list of release branches to operate on.
	Branches []Branch `json:"branches"`

	// WorkDir is the directory the CVS module is checked out into.
	WorkDir string `json:"workDir"`

	// CVSRsh, when set, is exported as CVS_RSH to cvs so :ext: roots use
	// the given remote shell.
	CVSRsh string `json:"cvsRsh,omitempty"`
}

// Validate checks that every required field is populated.
// It returns a *ConfigError describing the first problem found.
func (c *ReleaseConfig) Validate() error {
	if strings.TrimSpace(c.CVSRoot) == "" {
		return NewConfigError("cvsroot must not be empty")
	}
	if len(c.Branches) == 0 {
		return NewConfigError("no branches defined")
	}
	seen := make(map[Branch]bool, len(c.Branches))
	for _, b := range c.Branches {
		if strings.ContainsAny(string(b), `/\`) || b == "." || b == ".." {
			return NewConfigError(fmt.Sprintf("invalid branch name %q", b))
		}
		if seen[b] {
			return NewConfigError(fmt.Sprintf("branch %q listed more than once", b))
		}
		seen[b] = true
	}
	if c.WorkDir == "" {
		return NewConfigError("work directory must not be empty")
	}
	return nil
}

// ModuleDir returns the checkout directory of the given CVS module.
func (c *ReleaseConfig) ModuleDir(pkg string) string {
	return filepath.Join(c.WorkDir, pkg)
}

// BranchDir returns the directory of a branch inside the module checkout.
func (c *ReleaseConfig) BranchDir(pkg string, b Branch) string {
	return filepath.Join(c.WorkDir, pkg, string(b))
}

// ExitCode defines the process exit codes of the CLI.
// Scripts driving a release can use them to tell failure kinds apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates missing or invalid configuration, or a
	// missing spec file. No side effects have happened yet.
	ExitConfigError ExitCode = 2

	// ExitCommandFailed indicates an external command (cvs, make)
	// exited non-zero.
	ExitCommandFailed ExitCode = 3

	// ExitMissingBranch indicates the CVS checkout lacks a configured branch.
	ExitMissingBranch ExitCode = 4
)

// Sentinel errors for use with errors.Is.
var (
	// ErrConfig matches every *ConfigError.
	ErrConfig = errors.New("configuration error")

	// ErrCommandFailed matches every *CommandError.
	ErrCommandFailed = errors.New("external command failed")

	// ErrMissingBranch matches every *MissingBranchError.
	ErrMissingBranch = errors.New("missing branch")
)

// ConfigError reports a configuration problem detected before any side
// effect: a missing section or key, an empty branch list, or a spec file
// that could not be located.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a ConfigError with the given message.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{Message: message}
}

// WrapConfigError creates a ConfigError wrapping err.
func WrapConfigError(message string, err error) *ConfigError {
	return &ConfigError{Message: message, Err: err}
}

// CommandError represents an external command that could not be started
// or exited with a non-zero status.
type CommandError struct {
	// Name is the executable, e.g. "cvs" or "make".
	Name string

	// Args are the arguments the executable was invoked with.
	Args []string

	// Dir is the working directory the command ran in.
	Dir string

	// ExitCode is the process exit status, or -1 if it never ran.
	ExitCode int

	// Stderr holds the trimmed standard error output.
	Stderr string

	Err error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Name, strings.Join(e.Args, " "))
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s with exit status %d", msg, e.ExitCode)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	} else if e.Err != nil && e.ExitCode <= 0 {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrCommandFailed.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// MissingBranchError reports a configured branch whose directory is absent
// from the CVS checkout.
type MissingBranchError struct {
	Package string
	Branch  Branch
}

func (e *MissingBranchError) Error() string {
	return fmt.Sprintf("%s CVS checkout is missing branch: %s", e.Package, e.Branch)
}

// Is returns true if the target error is ErrMissingBranch.
func (e *MissingBranchError) Is(target error) bool {
	return target == ErrMissingBranch
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeFor picks the exit code for err. An explicit *CLIError wins;
// otherwise the typed domain errors are matched via errors.Is.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	switch {
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, ErrMissingBranch):
		return ExitMissingBranch
	case errors.Is(err, ErrCommandFailed):
		return ExitCommandFailed
	default:
		return ExitGeneralError
	}
}
