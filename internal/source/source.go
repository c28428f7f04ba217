package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"dockhand/pkg/recipe"
)

// Materialized is an application source ready to serve as the build context.
// SHA is set only for git sources; Cleanup removes clone directories and is a
// no-op for local paths.
type Materialized struct {
	Dir string
	Ref string
	SHA string

	temp bool
}

// Cleanup removes the temporary clone directory, if any.
func (m *Materialized) Cleanup() {
	if m.temp {
		if err := os.RemoveAll(m.Dir); err != nil {
			slog.Warn("Failed to remove source clone directory", "dir", m.Dir, "error", err)
		}
	}
}

// Materialize resolves the recipe's source into a local directory: a local
// path is validated and used as-is, a git source is shallow-cloned into a
// temporary directory.
func Materialize(ctx context.Context, src *recipe.Source) (*Materialized, error) {
	if src.Git != nil {
		return cloneSource(ctx, src.Git)
	}

	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source directory not found: %s", abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory: %s", abs)
	}

	return &Materialized{Dir: abs}, nil
}

// cloneSource shallow-clones the configured ref into a temp directory and
// records the commit it resolved to.
func cloneSource(ctx context.Context, src *recipe.GitSource) (*Materialized, error) {
	dir, err := os.MkdirTemp("", "dockhand-src-")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}

	slog.Info("Cloning application source", "url", src.URL, "ref", src.Ref)

	opts := &git.CloneOptions{
		URL:   src.URL,
		Depth: 1,
	}
	if src.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Ref)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			slog.Warn("Failed to remove clone directory after clone failure", "dir", dir, "error", removeErr)
		}
		return nil, fmt.Errorf("failed to clone source repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			slog.Warn("Failed to remove clone directory", "dir", dir, "error", removeErr)
		}
		return nil, fmt.Errorf("failed to resolve cloned HEAD: %w", err)
	}

	slog.Info("Source cloned", "dir", dir, "sha", head.Hash().String())

	return &Materialized{
		Dir:  dir,
		Ref:  src.Ref,
		SHA:  head.Hash().String(),
		temp: true,
	}, nil
}
