package builder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dockhand/pkg/recipe"
	"dockhand/pkg/runtime"
)

// DockerfileName is the in-archive name used for the rendered Dockerfile so
// an existing Dockerfile in the application source is never clobbered.
const DockerfileName = "Dockerfile.dockhand"

// Plan is a fully rendered image build: the Dockerfile content plus the
// context directory it will be built from.
type Plan struct {
	Recipe     *recipe.Recipe
	ContextDir string
	Dockerfile string
}

// NewPlan renders the build plan for a recipe against a materialized source
// directory. It fails early on problems that would otherwise surface as
// mid-build COPY errors.
func NewPlan(rec *recipe.Recipe, contextDir string) (*Plan, error) {
	info, err := os.Stat(contextDir)
	if err != nil {
		return nil, fmt.Errorf("build context directory not found: %s", contextDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("build context is not a directory: %s", contextDir)
	}

	manifestPath := filepath.Join(contextDir, rec.Spec.Image.Manifest)
	if _, err := os.Stat(manifestPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dependency manifest not found in build context: %s", rec.Spec.Image.Manifest)
		}
		return nil, fmt.Errorf("failed to stat dependency manifest %s: %w", rec.Spec.Image.Manifest, err)
	}

	return &Plan{
		Recipe:     rec,
		ContextDir: contextDir,
		Dockerfile: RenderDockerfile(rec),
	}, nil
}

// Execute pulls the base runtime image and builds the application image.
// Build failures are fatal and not retried.
func (p *Plan) Execute(ctx context.Context, rt runtime.ContainerRuntime) error {
	spec := &p.Recipe.Spec

	slog.Info("Starting image build", "tag", spec.Image.Tag, "base", spec.Image.Base, "context", p.ContextDir)

	if err := rt.PullImage(ctx, spec.Image.Base); err != nil {
		return fmt.Errorf("failed to pull base image: %w", err)
	}

	opts := runtime.BuildOptions{
		ContextDir:     p.ContextDir,
		Dockerfile:     p.Dockerfile,
		DockerfileName: DockerfileName,
		Tags:           []string{spec.Image.Tag},
	}

	if err := rt.BuildImage(ctx, opts); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}

	slog.Info("Image build completed successfully", "tag", spec.Image.Tag)
	return nil
}

// DryRun prints the rendered Dockerfile and the files that would enter the
// build context, without contacting the container engine.
func (p *Plan) DryRun() error {
	fmt.Printf("DRY RUN: Would build image %s from context %s\n", p.Recipe.Spec.Image.Tag, p.ContextDir)
	fmt.Printf("DRY RUN: Rendered %s:\n%s\n", DockerfileName, p.Dockerfile)

	err := filepath.WalkDir(p.ContextDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(p.ContextDir, path)
		if err != nil {
			return err
		}
		if relPath == "." || skipContextEntry(relPath) {
			if d.IsDir() && relPath != "." {
				return fs.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			fmt.Printf("DRY RUN: Would send to build context: %s\n", relPath)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk build context: %w", err)
	}

	return nil
}

// skipContextEntry filters entries that must never reach the build context.
func skipContextEntry(relPath string) bool {
	base := filepath.Base(relPath)
	return base == ".git" || base == ".dockhand.state.json"
}
