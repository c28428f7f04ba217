package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dockhand/pkg/recipe"
)

// chdirTemp runs the test from a temp directory so state files never leak
// between tests.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	})
	return tmpDir
}

func writeApplyFixture(t *testing.T, dir string) string {
	t.Helper()

	sourceDir := filepath.Join(dir, "source")
	if err := os.MkdirAll(sourceDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "requirements.txt"), []byte("streamlit==1.32.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "start.py"), []byte("print('up')\n"), 0644); err != nil {
		t.Fatal(err)
	}

	recipeContent := `apiVersion: v1
kind: Recipe
metadata:
  name: test-dashboard
  description: Recipe for integration testing
spec:
  source:
    path: ` + sourceDir + `
  image:
    base: python:3.11-slim
  runtime:
    port: 8501
    dirs:
      - tokens
      - .streamlit
  health:
    endpoint: /_stcore/health
    interval: 30s
    timeout: 10s
    startPeriod: 60s
    retries: 3
`

	recipeFile := filepath.Join(dir, "recipe.yaml")
	if err := os.WriteFile(recipeFile, []byte(recipeContent), 0644); err != nil {
		t.Fatal(err)
	}
	return recipeFile
}

func TestApply_DryRun(t *testing.T) {
	tmpDir := chdirTemp(t)
	recipeFile := writeApplyFixture(t, tmpDir)

	err := Apply(context.Background(), recipeFile, ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Dry run apply failed: %v", err)
	}

	// Dry run must not leave a state file behind
	if _, err := os.Stat(StateFileName); !os.IsNotExist(err) {
		t.Error("Dry run created a state file")
	}
}

func TestApply_InvalidRecipe(t *testing.T) {
	tmpDir := chdirTemp(t)

	recipeFile := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(recipeFile, []byte("apiVersion: v1\nkind: Wrong\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Apply(context.Background(), recipeFile, ApplyOptions{DryRun: true})
	if err == nil || !strings.Contains(err.Error(), "recipe parsing failed") {
		t.Errorf("Expected parse failure, got: %v", err)
	}
}

func TestApply_MissingRecipe(t *testing.T) {
	chdirTemp(t)

	err := Apply(context.Background(), "does-not-exist.yaml", ApplyOptions{DryRun: true})
	if err == nil || !strings.Contains(err.Error(), "recipe file not found") {
		t.Errorf("Expected missing-recipe error, got: %v", err)
	}
}

func TestApply_DryRunMissingSource(t *testing.T) {
	tmpDir := chdirTemp(t)

	recipeContent := `apiVersion: v1
kind: Recipe
metadata:
  name: test-dashboard
spec:
  source:
    path: ` + filepath.Join(tmpDir, "no-such-dir") + `
  image:
    base: python:3.11-slim
`
	recipeFile := filepath.Join(tmpDir, "recipe.yaml")
	if err := os.WriteFile(recipeFile, []byte(recipeContent), 0644); err != nil {
		t.Fatal(err)
	}

	err := Apply(context.Background(), recipeFile, ApplyOptions{DryRun: true})
	if err == nil || !strings.Contains(err.Error(), "source stage failed") {
		t.Errorf("Expected source stage failure, got: %v", err)
	}
}

func watchRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		APIVersion: "v1",
		Kind:       "Recipe",
		Metadata:   recipe.Metadata{Name: "watch-app"},
		Spec: recipe.Spec{
			Source: recipe.Source{Git: &recipe.GitSource{URL: "https://example.com/app.git", Ref: "main"}},
			Image:  recipe.Image{Base: "python:3.11-slim", Tag: "watch-app:latest"},
			Runtime: recipe.Runtime{
				Port: 59142,
			},
			Health: recipe.Health{
				Endpoint:    "/_stcore/health",
				Interval:    2 * time.Millisecond,
				Timeout:     50 * time.Millisecond,
				StartPeriod: time.Millisecond,
				Retries:     3,
			},
			Notify: &recipe.Notify{
				Provider:    "gitlab",
				URL:         "https://gitlab.example.com",
				Project:     "group/app",
				Environment: "production",
			},
		},
	}
}

func TestWatch_NotifyWithoutSHALogsOnly(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "")

	// No state file and no SHA from the caller: the monitor must still run,
	// with transitions logged instead of reported.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := Watch(ctx, watchRecipe(), "", "", false); err != nil {
		t.Fatalf("Expected watch without a known commit to run log-only, got: %v", err)
	}
}

func TestWatch_RecoversDeployedCommitFromState(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "")
	t.Setenv("GITLAB_PRIVATE_TOKEN", "")

	state := newState("recipe.yaml", "run-1")
	state.LastSuccessfulStage = StageDeploy
	state.SourceRef = "main"
	state.SourceSHA = "abc123def"
	if err := saveState(state); err != nil {
		t.Fatal(err)
	}

	// With a SHA recovered from state the notifier path is taken, and the
	// missing token fails notifier construction before the monitor starts.
	err := Watch(context.Background(), watchRecipe(), "", "", false)
	if err == nil || !strings.Contains(err.Error(), "failed to create notifier") {
		t.Errorf("Expected notifier construction with the recovered commit, got: %v", err)
	}
}

func TestFactory_UnsupportedNotifyProvider(t *testing.T) {
	_, err := NewProviderFactory().GetNotifier(&recipe.Notify{Provider: "unsupported"}, "", "")
	if err == nil || !strings.Contains(err.Error(), "unsupported notify provider") {
		t.Errorf("Expected unsupported-provider error, got: %v", err)
	}
}
