// Package cli implements the cobra-based CLI commands for cvs-release.
//
// Each subcommand (release, check, tarball) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cvs-release/internal/config"
	"github.com/shinji-kodama/cvs-release/internal/logging"
	"github.com/shinji-kodama/cvs-release/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput switches command results and errors to JSON.
	jsonOutput bool

	// verbose enables debug output on stderr.
	verbose bool

	// configPath is the global configuration file (--config).
	configPath string

	// buildDir is the root build directory (--build-dir).
	buildDir string

	// logFile is an optional rotating JSON log file (--log-file).
	logFile string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cvs-release",
		Short: "Release a package into a CVS-based build workflow",
		Long: `cvs-release checks out a package's CVS module, verifies the configured
release branches exist, uploads the source tarball to each branch's
lookaside cache and copies the spec file into every branch.

Run it from the directory holding the package's spec file.`,

		// Errors are printed by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("Global configuration file (default: $%s or ~/.config/cvs-release/global.yaml)", config.EnvConfigPath))
	rootCmd.PersistentFlags().StringVar(&buildDir, "build-dir", "",
		fmt.Sprintf("Build directory; checkouts go to <build-dir>/cvswork (default: $%s or <tmp>/cvs-release-build)", config.EnvBuildDir))
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write a rotating JSON log to this file")

	rootCmd.AddCommand(NewReleaseCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewTarballCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
		} else {
			printError(err.Error(), nil)
		}
		os.Exit(int(model.ExitCodeFor(err)))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	writeError(os.Stderr, jsonOutput, message, underlying)
}

func writeError(w io.Writer, asJSON bool, message string, underlying error) {
	if !asJSON {
		if underlying != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(w, "Error: %s\n", message)
		}
		return
	}

	errObj := map[string]interface{}{
		"message": message,
	}
	if underlying != nil {
		errObj["detail"] = underlying.Error()
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
	fmt.Fprintln(w, string(data))
}

// newLogger builds the logger for a command run from the global flags.
func newLogger() (*slog.Logger, io.Closer) {
	return logging.New(logging.Options{
		Console: os.Stderr,
		Verbose: verbose,
		File:    logFile,
	})
}

// resolvedConfigPath returns --config or the default path.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// resolvedBuildDir returns --build-dir or the default build directory.
func resolvedBuildDir() string {
	if buildDir != "" {
		return buildDir
	}
	return config.DefaultBuildDir()
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
