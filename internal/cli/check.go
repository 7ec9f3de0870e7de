package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the "check" cobra command, which checks out the
// module and verifies the branches without uploading anything.
func NewCheckCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check out the CVS module and verify the configured branches",
		Long: `Check out the package's CVS module and verify that every configured branch
directory exists. No tarball is built, nothing is uploaded and the spec
file is not copied.

Examples:
  cvs-release check
  cvs-release check --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, flags *releaseFlags) error {
	logger, closer := newLogger()
	defer func() { _ = closer.Close() }()

	r, err := newReleaser(flags, logger)
	if err != nil {
		return err
	}

	res, err := r.Check(ctx)
	if err != nil {
		return err
	}
	return printResult(out, "Verified", res)
}
