package errors

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewErrorHandler(t *testing.T) {
	t.Setenv("DOCKHAND_LOG_DIR", t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	if handler == nil {
		t.Fatal("NewErrorHandler() returned nil handler")
	}

	if handler.logger == nil {
		t.Error("ErrorHandler.logger is nil")
	}

	if handler.console == nil {
		t.Error("ErrorHandler.console is nil")
	}
}

func TestErrorHandler_Handle_DockhandError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("DOCKHAND_LOG_DIR", logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	testErr := NewBuildError(
		"Image build failed for recipe 'search-dashboard'",
		"daemon returned an errored build step",
		"Check the dependency manifest and rerun with --dry-run",
		errors.New("step 4 failed"),
	)

	handler.Handle(testErr)

	logFile := filepath.Join(logDir, "dockhand.log")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(data), "build_failed") {
		t.Errorf("Log entry missing typed error name: %s", data)
	}
}

func TestErrorHandler_Handle_GenericError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("DOCKHAND_LOG_DIR", logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(errors.New("generic test error"))

	logFile := filepath.Join(logDir, "dockhand.log")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestErrorHandler_Handle_NilError(t *testing.T) {
	t.Setenv("DOCKHAND_LOG_DIR", t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	// Must be a no-op
	handler.Handle(nil)
}

func TestGetDefaultHandler_Singleton(t *testing.T) {
	t.Setenv("DOCKHAND_LOG_DIR", t.TempDir())
	resetDefaultHandler()

	h1, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() failed: %v", err)
	}
	h2, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() failed: %v", err)
	}
	if h1 != h2 {
		t.Error("GetDefaultHandler() must return the same instance")
	}
}

func TestDefaultSuggestion(t *testing.T) {
	tests := []struct {
		errType error
		want    string
	}{
		{ErrBuildFailed, "Rerun with --dry-run to inspect the rendered build plan"},
		{ErrRuntimeFailed, "Check that the Docker daemon is running and reachable"},
		{ErrNotifyFailed, "Check GITLAB_PRIVATE_TOKEN and the notify block"},
		{errors.New("other"), ""},
	}

	for _, tt := range tests {
		if got := defaultSuggestion(tt.errType); got != tt.want {
			t.Errorf("defaultSuggestion(%v) = %q, want %q", tt.errType, got, tt.want)
		}
	}
}

func TestGetErrorTypeName(t *testing.T) {
	tests := []struct {
		errType error
		want    string
	}{
		{ErrRecipeNotFound, "recipe_not_found"},
		{ErrBuildFailed, "build_failed"},
		{ErrDeployFailed, "deploy_failed"},
		{ErrProbeFailed, "probe_failed"},
		{errors.New("other"), "unknown"},
	}

	for _, tt := range tests {
		if got := getErrorTypeName(tt.errType); got != tt.want {
			t.Errorf("getErrorTypeName(%v) = %s, want %s", tt.errType, got, tt.want)
		}
	}
}
