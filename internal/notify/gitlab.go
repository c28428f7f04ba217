package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gitlab "github.com/xanzy/go-gitlab"

	"dockhand/internal/health"
	"dockhand/pkg/recipe"
)

// Notifier receives health state transitions for the deployed container.
type Notifier interface {
	HealthChanged(ctx context.Context, t health.Transition) error
}

// GitLabNotifier records health transitions as deployment statuses on the
// commit that was deployed.
type GitLabNotifier struct {
	client      *gitlab.Client
	project     string
	environment string
	ref         string
	sha         string
}

// NewGitLabNotifier creates a notifier for the recipe's notify block. The
// ref and sha identify the deployed commit (from the materialized git
// source). Authentication comes from GITLAB_PRIVATE_TOKEN.
func NewGitLabNotifier(cfg *recipe.Notify, ref, sha string) (*GitLabNotifier, error) {
	token := os.Getenv("GITLAB_PRIVATE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITLAB_PRIVATE_TOKEN environment variable is required")
	}
	if sha == "" {
		return nil, fmt.Errorf("deployment notification requires a deployed commit SHA")
	}

	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(cfg.URL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	if ref == "" {
		ref = "main"
	}

	return &GitLabNotifier{
		client:      client,
		project:     cfg.Project,
		environment: cfg.Environment,
		ref:         ref,
		sha:         sha,
	}, nil
}

// HealthChanged creates a deployment record whose status mirrors the new
// health state.
func (n *GitLabNotifier) HealthChanged(ctx context.Context, t health.Transition) error {
	status := deploymentStatus(t.To)

	opts := &gitlab.CreateProjectDeploymentOptions{
		Environment: gitlab.String(n.environment),
		Ref:         gitlab.String(n.ref),
		SHA:         gitlab.String(n.sha),
		Tag:         gitlab.Bool(false),
		Status:      &status,
	}

	deployment, _, err := n.client.Deployments.CreateProjectDeployment(n.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to record deployment status: %w", err)
	}

	slog.Info("Recorded deployment status",
		"project", n.project,
		"environment", n.environment,
		"deploymentID", deployment.ID,
		"status", status)
	return nil
}

// deploymentStatus maps a health state onto GitLab's deployment statuses.
func deploymentStatus(s health.State) gitlab.DeploymentStatusValue {
	switch s {
	case health.StateHealthy:
		return gitlab.DeploymentStatusSuccess
	case health.StateUnhealthy:
		return gitlab.DeploymentStatusFailed
	default:
		return gitlab.DeploymentStatusRunning
	}
}
