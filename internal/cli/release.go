// Package cli: release.go implements the "cvs-release release" command.
//
// The release command is the primary operation. It loads the global
// configuration, reads the spec file in the project directory, and hands
// both to release.Releaser, which checks out the CVS module, verifies the
// branches, uploads the source tarball and syncs the spec file.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cvs-release/internal/builder"
	"github.com/shinji-kodama/cvs-release/internal/command"
	"github.com/shinji-kodama/cvs-release/internal/config"
	"github.com/shinji-kodama/cvs-release/internal/cvs"
	"github.com/shinji-kodama/cvs-release/internal/model"
	"github.com/shinji-kodama/cvs-release/internal/release"
	"github.com/shinji-kodama/cvs-release/internal/specfile"
)

// tarballDirName is the directory under the build directory that receives
// built source tarballs.
const tarballDirName = "sources"

// releaseFlags holds the flag values shared by the release and check
// commands.
type releaseFlags struct {
	projectDir string // --project-dir: directory holding the spec file
	cvsBin     string // --cvs-bin: cvs executable
	makeBin    string // --make-bin: make executable
}

// register binds the flags to cmd.
func (f *releaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.projectDir, "project-dir", "", "Directory holding the package spec file (default: current directory)")
	cmd.Flags().StringVar(&f.cvsBin, "cvs-bin", cvs.DefaultBinary, "cvs executable")
	cmd.Flags().StringVar(&f.makeBin, "make-bin", cvs.DefaultMakeBinary, "make executable")
}

// NewReleaseCommand creates the "release" cobra command.
func NewReleaseCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release the package into every configured CVS branch",
		Long: `Check out the package's CVS module, verify every configured branch exists,
upload the source tarball with "make new-sources" in each branch and copy
the spec file into each branch.

The first failure stops the run. Nothing is rolled back; fix the cause
and run the command again.

Examples:
  cvs-release release
  cvs-release release --config ~/global.yaml --build-dir /var/tmp/build
  cvs-release release --project-dir ./client/tools --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd)

	return cmd
}

// runRelease performs a full release and prints the summary.
func runRelease(ctx context.Context, out io.Writer, flags *releaseFlags) error {
	logger, closer := newLogger()
	defer func() { _ = closer.Close() }()

	r, err := newReleaser(flags, logger)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx)
	if err != nil {
		return err
	}

	return printResult(out, "Released", res)
}

// newReleaser loads the configuration and the spec file and builds the
// Releaser. All failures here happen before any side effect.
func newReleaser(flags *releaseFlags, logger *slog.Logger) (*release.Releaser, error) {
	global, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, err
	}

	projectDir, err := resolveProjectDir(flags.projectDir)
	if err != nil {
		return nil, err
	}
	spec, err := specfile.Load(projectDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("spec file", "path", spec.Path, "name", spec.Name, "version", spec.Version)

	dir := resolvedBuildDir()
	b := builder.NewGitBuilder(projectDir, filepath.Join(dir, tarballDirName), spec)

	return release.New(global, b, release.Options{
		BuildDir:   dir,
		ProjectDir: projectDir,
		Executor:   command.NewExecRunner(),
		CVSBinary:  flags.cvsBin,
		MakeBinary: flags.makeBin,
		Logger:     logger,
	})
}

// resolveProjectDir returns dir as an absolute path, defaulting to the
// current working directory.
func resolveProjectDir(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, "failed to resolve project directory", err)
	}
	return abs, nil
}
