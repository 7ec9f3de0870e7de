package release

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/cvs-release/internal/command"
	"github.com/shinji-kodama/cvs-release/internal/config"
	"github.com/shinji-kodama/cvs-release/internal/cvs"
	"github.com/shinji-kodama/cvs-release/internal/model"
	"github.com/shinji-kodama/cvs-release/internal/specfile"
)

// Builder supplies the package name and builds its source tarball.
type Builder interface {
	// ProjectName is the package name, used as the CVS module name.
	ProjectName() string

	// Tarball builds the source tarball and returns its path. A relative
	// path is resolved against the working directory.
	Tarball(ctx context.Context) (string, error)
}

// Options configures a Releaser.
type Options struct {
	// BuildDir is the root build directory; checkouts go to
	// <BuildDir>/cvswork.
	BuildDir string

	// ProjectDir is searched for the spec file. Defaults to the current
	// working directory.
	ProjectDir string

	// Executor runs cvs and make. Defaults to command.NewExecRunner().
	Executor command.Executor

	// CVSBinary and MakeBinary override the executables. Empty means
	// "cvs" and "make" from PATH.
	CVSBinary  string
	MakeBinary string

	// Logger receives progress and debug output. Defaults to a logger
	// that discards everything.
	Logger *slog.Logger
}

// Result summarizes a completed release run.
type Result struct {
	Package   string         `json:"package"`
	CVSRoot   string         `json:"cvsRoot"`
	ModuleDir string         `json:"moduleDir"`
	Tarball   string         `json:"tarball,omitempty"`
	SpecFile  string         `json:"specFile"`
	Branches  []model.Branch `json:"branches"`
}

// Releaser checks out a package's CVS module, verifies its branches,
// uploads the source tarball to every branch and syncs the spec file.
//
// Steps run strictly in order and stop at the first error. Nothing is
// rolled back: a checkout or a partial set of uploads stays on disk and
// the run is expected to be repeated once the cause is fixed.
type Releaser struct {
	cfg       model.ReleaseConfig
	builder   Builder
	pkg       string
	specPath  string
	cvs       *cvs.Client
	lookaside *cvs.Lookaside
	log       *slog.Logger
}

// New validates the configuration and locates the spec file. It performs
// no filesystem writes and runs no commands; every failure here is a
// *model.ConfigError.
func New(global *config.Global, b Builder, opts Options) (*Releaser, error) {
	if global == nil {
		return nil, model.NewConfigError("no global configuration loaded")
	}
	if b == nil {
		return nil, model.NewConfigError("no builder configured")
	}

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.DefaultBuildDir()
	}
	cfg, err := global.Release(buildDir)
	if err != nil {
		return nil, err
	}

	pkg := b.ProjectName()
	if pkg == "" {
		return nil, model.NewConfigError("builder reported an empty package name")
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		if projectDir, err = os.Getwd(); err != nil {
			return nil, model.WrapConfigError("failed to get current directory", err)
		}
	}
	specPath, err := specfile.Find(projectDir)
	if err != nil {
		return nil, err
	}

	exec := opts.Executor
	if exec == nil {
		exec = command.NewExecRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	logger.Debug("release configuration",
		"cvsroot", cfg.CVSRoot,
		"workdir", cfg.WorkDir,
		"branches", cfg.Branches,
		"spec", specPath)

	return &Releaser{
		cfg:       cfg,
		builder:   b,
		pkg:       pkg,
		specPath:  specPath,
		cvs:       cvs.NewClient(exec, cfg.CVSRoot, opts.CVSBinary).WithRsh(cfg.CVSRsh),
		lookaside: cvs.NewLookaside(exec, opts.MakeBinary),
		log:       logger,
	}, nil
}

// Config returns the release configuration in use.
func (r *Releaser) Config() model.ReleaseConfig {
	return r.cfg
}

// Package returns the package (CVS module) name.
func (r *Releaser) Package() string {
	return r.pkg
}

// SpecPath returns the absolute path of the spec file that will be synced.
func (r *Releaser) SpecPath() string {
	return r.specPath
}

// Run executes the full release: checkout, branch verification, source
// upload and spec synchronization.
func (r *Releaser) Run(ctx context.Context) (*Result, error) {
	r.log.Info("Building release from CVS...")

	if err := r.checkout(ctx); err != nil {
		return nil, err
	}
	if err := r.VerifyBranches(); err != nil {
		return nil, err
	}
	tarball, err := r.UploadSources(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.SyncSpec(); err != nil {
		return nil, err
	}

	res := r.result()
	res.Tarball = tarball
	return res, nil
}

// Check checks out the module and verifies every configured branch is
// present, without uploading or copying anything.
func (r *Releaser) Check(ctx context.Context) (*Result, error) {
	if err := r.checkout(ctx); err != nil {
		return nil, err
	}
	if err := r.VerifyBranches(); err != nil {
		return nil, err
	}
	return r.result(), nil
}

func (r *Releaser) result() *Result {
	branches := make([]model.Branch, len(r.cfg.Branches))
	copy(branches, r.cfg.Branches)
	return &Result{
		Package:   r.pkg,
		CVSRoot:   r.cfg.CVSRoot,
		ModuleDir: r.cfg.ModuleDir(r.pkg),
		SpecFile:  r.specPath,
		Branches:  branches,
	}
}

// checkout creates the work directory and checks out the module into it.
func (r *Releaser) checkout(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory %s: %w", r.cfg.WorkDir, err)
	}

	r.log.Info(fmt.Sprintf("Checking out cvs module [%s]", r.pkg))
	res, err := r.cvs.Checkout(ctx, r.cfg.WorkDir, r.pkg)
	if out := res.Output(); out != "" {
		r.log.Debug(out)
	}
	if err != nil {
		return fmt.Errorf("checking out cvs module %s: %w", r.pkg, err)
	}
	return nil
}

// VerifyBranches checks, in declaration order, that every configured
// branch is a directory of the module checkout. The first missing branch
// is returned as a *model.MissingBranchError.
func (r *Releaser) VerifyBranches() error {
	moduleDir := r.cfg.ModuleDir(r.pkg)
	for _, b := range r.cfg.Branches {
		ok, err := cvs.HasBranch(moduleDir, b)
		if err != nil {
			return err
		}
		if !ok {
			return &model.MissingBranchError{Package: r.pkg, Branch: b}
		}
		r.log.Debug("found branch", "branch", b)
	}
	return nil
}

// UploadSources builds the tarball once and registers it with the
// lookaside cache of every branch. It returns the tarball path.
//
// A tarball already listed in a branch's sources manifest is reported
// but uploaded anyway; the build system decides how to treat duplicates.
func (r *Releaser) UploadSources(ctx context.Context) (string, error) {
	tarball, err := r.builder.Tarball(ctx)
	if err != nil {
		return "", fmt.Errorf("building source tarball: %w", err)
	}
	// make runs in each branch directory, so a relative path would not resolve.
	if tarball, err = filepath.Abs(tarball); err != nil {
		return "", fmt.Errorf("resolving tarball path: %w", err)
	}
	r.log.Debug("built tarball", "path", tarball)
	name := filepath.Base(tarball)

	for _, b := range r.cfg.Branches {
		dir := r.cfg.BranchDir(r.pkg, b)

		if dup, err := cvs.HasSource(dir, name); err != nil {
			r.log.Warn("could not read sources file", "branch", b, "error", err)
		} else if dup {
			r.log.Warn(fmt.Sprintf("%s already listed in %s/sources", name, b))
		}

		r.log.Info(fmt.Sprintf("Uploading %s to branch %s", name, b))
		res, err := r.lookaside.NewSources(ctx, dir, tarball)
		if out := res.Output(); out != "" {
			r.log.Debug(out)
		}
		if err != nil {
			return "", fmt.Errorf("uploading sources to branch %s: %w", b, err)
		}
	}
	return tarball, nil
}

// SyncSpec copies the spec file into every branch directory.
//
// TODO: copy the patches referenced by PatchN: tags once a branch needs
// them; only the spec file is synced today.
func (r *Releaser) SyncSpec() error {
	info, err := os.Stat(r.specPath)
	if err != nil {
		return fmt.Errorf("failed to stat spec file: %w", err)
	}
	for _, b := range r.cfg.Branches {
		dst := filepath.Join(r.cfg.BranchDir(r.pkg, b), filepath.Base(r.specPath))
		r.log.Debug("Copying spec file", "spec", filepath.Base(r.specPath), "to", dst)
		if err := copyFile(r.specPath, dst, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file from src to dst with the given permissions.
// An existing dst is truncated and overwritten.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
