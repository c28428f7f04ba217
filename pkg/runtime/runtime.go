package runtime

import (
	"context"
	"time"
)

// BuildOptions defines the parameters for building an application image.
// Dockerfile holds the rendered file content; it is injected into the build
// context under DockerfileName so the context directory is never modified.
type BuildOptions struct {
	ContextDir     string
	Dockerfile     string
	DockerfileName string
	Tags           []string
}

// HealthConfig mirrors the recipe's probe parameters into the form the
// container engine registers on the created container.
type HealthConfig struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	StartPeriod time.Duration
	Retries     int
}

// DeployOptions defines the parameters for creating and starting the
// application container.
type DeployOptions struct {
	Image       string
	Name        string
	Port        int
	Env         map[string]string
	VolumeBinds map[string]string
	Health      *HealthConfig
}

// ContainerRuntime defines the contract for container engine operations.
type ContainerRuntime interface {
	PullImage(ctx context.Context, image string) error
	BuildImage(ctx context.Context, opts BuildOptions) error
	DeployContainer(ctx context.Context, opts DeployOptions) (string, error)
	ContainerHealth(ctx context.Context, containerID string) (string, error)
}
