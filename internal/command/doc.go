// Package command provides the external-command abstraction used by the
// cvs-release CLI.
//
// Every program the release workflow invokes (cvs, make) goes through the
// Executor interface: an argument vector, an explicit working directory,
// and captured stdout/stderr/exit code. ExecRunner implements it with
// os/exec; tests substitute a recording fake.
package command
