package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/cvs-release/internal/model"
)

// Command describes one external program invocation.
//
// Arguments are passed to the program as-is, without a shell, so values
// such as FILES=<path> need no quoting.
type Command struct {
	// Name is the executable to run, looked up in PATH.
	Name string

	// Args are the arguments passed to the executable.
	Args []string

	// Dir is the working directory for the child process. It must be set
	// explicitly; the CLI never changes its own working directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// String renders the command line for logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stdout and stderr combined, trimmed of surrounding
// whitespace. Build tools like make interleave both streams.
func (r Result) Output() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Executor runs external commands.
//
// Implementations must return a *model.CommandError when the command
// cannot be started or exits with a non-zero status.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner is the Executor backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to finish.
//
// No timeout is applied: cvs and make may legitimately run for a long
// time against a slow server. Cancelling ctx kills the child process.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	// #nosec G204 -- arguments are passed as a vector, never through a shell
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	res.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	return res, &model.CommandError{
		Name:     cmd.Name,
		Args:     cmd.Args,
		Dir:      cmd.Dir,
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(res.Stderr),
		Err:      err,
	}
}
