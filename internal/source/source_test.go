package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"dockhand/pkg/recipe"
)

func TestMaterialize_LocalPath(t *testing.T) {
	dir := t.TempDir()

	m, err := Materialize(context.Background(), &recipe.Source{Path: dir})
	if err != nil {
		t.Fatalf("Expected success for existing directory, got: %v", err)
	}
	defer m.Cleanup()

	if m.Dir != dir {
		t.Errorf("Expected dir %s, got %s", dir, m.Dir)
	}
	if m.SHA != "" {
		t.Errorf("Local source should have no SHA, got %s", m.SHA)
	}

	// Cleanup must not remove a local source directory
	m.Cleanup()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Local source directory removed by Cleanup: %v", err)
	}
}

func TestMaterialize_MissingLocalPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := Materialize(context.Background(), &recipe.Source{Path: missing})
	if err == nil || !strings.Contains(err.Error(), "source directory not found") {
		t.Errorf("Expected missing-directory error, got: %v", err)
	}
}

func TestMaterialize_LocalPathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Materialize(context.Background(), &recipe.Source{Path: file})
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("Expected not-a-directory error, got: %v", err)
	}
}

func TestMaterialize_GitClone(t *testing.T) {
	// Build a local upstream repository to clone from
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	if err != nil {
		t.Fatalf("Failed to init upstream repo: %v", err)
	}
	if err := os.WriteFile(filepath.Join(upstream, "requirements.txt"), []byte("streamlit\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("requirements.txt"); err != nil {
		t.Fatal(err)
	}
	commit, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := Materialize(context.Background(), &recipe.Source{
		Git: &recipe.GitSource{URL: upstream},
	})
	if err != nil {
		t.Fatalf("Expected clone to succeed, got: %v", err)
	}
	defer m.Cleanup()

	if m.SHA != commit.String() {
		t.Errorf("Expected cloned SHA %s, got %s", commit.String(), m.SHA)
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "requirements.txt")); err != nil {
		t.Errorf("Cloned tree missing manifest: %v", err)
	}

	cloneDir := m.Dir
	m.Cleanup()
	if _, err := os.Stat(cloneDir); !os.IsNotExist(err) {
		t.Errorf("Clone directory not removed by Cleanup")
	}
}
