package builder

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/shinji-kodama/cvs-release/internal/specfile"
)

// GitBuilder produces source tarballs from the committed HEAD tree of the
// git repository containing a project directory. Uncommitted changes are
// never included, so the tarball matches what was tagged.
type GitBuilder struct {
	projectDir string
	outputDir  string
	spec       *specfile.Spec
}

// NewGitBuilder creates a builder for the project at projectDir described
// by spec. Tarballs are written to outputDir.
func NewGitBuilder(projectDir, outputDir string, spec *specfile.Spec) *GitBuilder {
	return &GitBuilder{projectDir: projectDir, outputDir: outputDir, spec: spec}
}

// ProjectName returns the package name, which is also the CVS module name.
func (b *GitBuilder) ProjectName() string {
	return b.spec.Name
}

// TarballName returns the file name of the tarball, <name>-<version>.tar.gz.
func (b *GitBuilder) TarballName() string {
	return fmt.Sprintf("%s-%s.tar.gz", b.spec.Name, b.spec.Version)
}

// Tarball writes <outputDir>/<name>-<version>.tar.gz and returns its
// absolute path. Every entry is placed under a <name>-<version>/ prefix
// and stamped with the HEAD commit time, so rebuilding the same commit
// yields the same archive contents.
func (b *GitBuilder) Tarball(ctx context.Context) (string, error) {
	tree, commit, err := b.headTree()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", b.outputDir, err)
	}
	outPath, err := filepath.Abs(filepath.Join(b.outputDir, b.TarballName()))
	if err != nil {
		return "", fmt.Errorf("failed to resolve tarball path: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create tarball %s: %w", outPath, err)
	}

	prefix := fmt.Sprintf("%s-%s", b.spec.Name, b.spec.Version)
	if err := writeArchive(ctx, f, tree, prefix, commit); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("failed to close tarball: %w", err)
	}
	return outPath, nil
}

// headTree resolves the HEAD commit and returns the subtree rooted at the
// project directory.
func (b *GitBuilder) headTree() (*object.Tree, *object.Commit, error) {
	projectDir, err := filepath.Abs(b.projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(projectDir); err == nil {
		projectDir = resolved
	}

	repo, err := gogit.PlainOpenWithOptions(projectDir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open git repository at %s: %w", projectDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get HEAD tree: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate project in repository: %w", err)
	}
	if rel != "." {
		tree, err = tree.Tree(filepath.ToSlash(rel))
		if err != nil {
			return nil, nil, fmt.Errorf("project directory %s is not committed: %w", rel, err)
		}
	}
	return tree, commit, nil
}

// writeArchive streams the files of tree into a gzip-compressed tar.
func writeArchive(ctx context.Context, w io.Writer, tree *object.Tree, prefix string, commit *object.Commit) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	modTime := commit.Committer.When

	err := tree.Files().ForEach(func(file *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := path.Join(prefix, file.Name)
		if file.Mode == filemode.Symlink {
			target, err := file.Contents()
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", file.Name, err)
			}
			return tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     name,
				Linkname: target,
				Mode:     0o777,
				ModTime:  modTime,
			})
		}

		mode := int64(0o644)
		if file.Mode == filemode.Executable {
			mode = 0o755
		}
		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Size:     file.Size,
			Mode:     mode,
			ModTime:  modTime,
		}); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", file.Name, err)
		}

		r, err := file.Reader()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		defer func() { _ = r.Close() }()
		if _, err := io.Copy(tw, r); err != nil {
			return fmt.Errorf("failed to archive %s: %w", file.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}
