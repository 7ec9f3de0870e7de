package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cvs-release/internal/builder"
	"github.com/shinji-kodama/cvs-release/internal/specfile"
)

// tarballFlags holds the flag values for the tarball command.
type tarballFlags struct {
	projectDir string // --project-dir: directory holding the spec file
	outputDir  string // --output-dir: where the tarball is written
}

// NewTarballCommand creates the "tarball" cobra command. It builds the
// source tarball the release command would upload and prints its path.
func NewTarballCommand() *cobra.Command {
	flags := &tarballFlags{}

	cmd := &cobra.Command{
		Use:   "tarball",
		Short: "Build the source tarball from the committed HEAD tree",
		Long: `Build <name>-<version>.tar.gz from the committed HEAD tree of the git
repository containing the project directory. Name and version come from
the spec file. Uncommitted changes are not included.

Examples:
  cvs-release tarball
  cvs-release tarball --output-dir ./dist`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarball(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.projectDir, "project-dir", "", "Directory holding the package spec file (default: current directory)")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Output directory (default: <build-dir>/sources)")

	return cmd
}

func runTarball(ctx context.Context, out io.Writer, flags *tarballFlags) error {
	logger, closer := newLogger()
	defer func() { _ = closer.Close() }()

	projectDir, err := resolveProjectDir(flags.projectDir)
	if err != nil {
		return err
	}
	spec, err := specfile.Load(projectDir)
	if err != nil {
		return err
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = filepath.Join(resolvedBuildDir(), tarballDirName)
	}

	logger.Debug("building tarball", "name", spec.Name, "version", spec.Version, "output", outputDir)
	path, err := builder.NewGitBuilder(projectDir, outputDir, spec).Tarball(ctx)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]string{"tarball": path}, "", "  ")
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err = fmt.Fprintf(out, "Wrote %s\n", path)
	return err
}
