package deployer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"dockhand/internal/builder"
	"dockhand/internal/probe"
	"dockhand/pkg/recipe"
	"dockhand/pkg/runtime"
)

// Deployer creates and starts the application container described by a
// recipe, using a container runtime.
type Deployer struct {
	containerRuntime runtime.ContainerRuntime
}

// New creates a Deployer backed by the given runtime.
func New(containerRuntime runtime.ContainerRuntime) *Deployer {
	return &Deployer{
		containerRuntime: containerRuntime,
	}
}

// Deploy creates and starts the container and returns its ID. The engine
// healthcheck is registered explicitly so the run-time contract holds even
// for images built elsewhere.
func (d *Deployer) Deploy(ctx context.Context, rec *recipe.Recipe) (string, error) {
	spec := &rec.Spec

	// The publish mapping, the container env, and the health probe must all
	// agree on one port, so the PORT override is resolved once here.
	cfg := probe.Resolve(spec.Runtime.Port, spec.Health.Endpoint, spec.Health.Timeout)

	env := make(map[string]string, len(spec.Runtime.Env)+1)
	for k, v := range spec.Runtime.Env {
		env[k] = v
	}
	if os.Getenv("PORT") != "" {
		env["PORT"] = strconv.Itoa(cfg.Port)
	}

	binds := make(map[string]string, len(spec.Runtime.Volumes))
	for _, v := range spec.Runtime.Volumes {
		hostPath, err := filepath.Abs(v.Host)
		if err != nil {
			return "", fmt.Errorf("failed to resolve volume host path %s: %w", v.Host, err)
		}
		binds[hostPath] = v.Container
	}

	opts := runtime.DeployOptions{
		Image:       spec.Image.Tag,
		Name:        rec.Metadata.Name,
		Port:        cfg.Port,
		Env:         env,
		VolumeBinds: binds,
		Health: &runtime.HealthConfig{
			Test:        []string{"CMD-SHELL", builder.ProbeCommand(rec) + " || exit 1"},
			Interval:    spec.Health.Interval,
			Timeout:     spec.Health.Timeout,
			StartPeriod: spec.Health.StartPeriod,
			Retries:     spec.Health.Retries,
		},
	}

	containerID, err := d.containerRuntime.DeployContainer(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("failed to deploy container: %w", err)
	}

	if status, err := d.containerRuntime.ContainerHealth(ctx, containerID); err == nil {
		slog.Info("Container deployed", "containerID", containerID, "engineStatus", status)
	} else {
		slog.Warn("Container deployed but status could not be read", "containerID", containerID, "error", err)
	}

	return containerID, nil
}
