package cvs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/cvs-release/internal/command"
	"github.com/shinji-kodama/cvs-release/internal/model"
)

// DefaultBinary is the cvs executable looked up in PATH.
const DefaultBinary = "cvs"

// Client runs cvs commands against one repository root.
type Client struct {
	exec   command.Executor
	root   string
	binary string
	rsh    string
}

// NewClient creates a Client for the repository at root (the value given
// to `cvs -d`). An empty binary selects DefaultBinary.
func NewClient(exec command.Executor, root, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{exec: exec, root: root, binary: binary}
}

// WithRsh sets the remote shell exported as CVS_RSH to every cvs
// invocation. An empty rsh leaves the inherited environment alone.
func (c *Client) WithRsh(rsh string) *Client {
	c.rsh = rsh
	return c
}

// Root returns the repository root this client operates on.
func (c *Client) Root() string {
	return c.root
}

// Checkout materializes module under workDir by running
// `cvs -d <root> co <module>` with workDir as the working directory.
// An existing checkout is updated in place by cvs itself.
func (c *Client) Checkout(ctx context.Context, workDir, module string) (command.Result, error) {
	if module == "" {
		return command.Result{}, fmt.Errorf("cvs checkout: module name must not be empty")
	}
	return c.exec.Run(ctx, command.Command{
		Name: c.binary,
		Args: []string{"-d", c.root, "co", module},
		Dir:  workDir,
		Env:  c.env(),
	})
}

func (c *Client) env() []string {
	if c.rsh == "" {
		return nil
	}
	return []string{"CVS_RSH=" + c.rsh}
}

// HasBranch reports whether moduleDir contains a directory named branch.
// Branches in the checkout are plain subdirectories of the module.
func HasBranch(moduleDir string, branch model.Branch) (bool, error) {
	info, err := os.Stat(filepath.Join(moduleDir, string(branch)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking branch %s: %w", branch, err)
	}
	return info.IsDir(), nil
}
