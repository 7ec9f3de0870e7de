// Package cvs wraps the CVS command line and the lookaside-cache Makefile
// convention used by CVS-based package build systems.
//
// All commands go through command.Executor with an explicit working
// directory. The package never changes the process working directory, so
// the checkout root, module directory and branch directories are passed
// in by the caller.
package cvs
