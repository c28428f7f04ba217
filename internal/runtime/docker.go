package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"dockhand/pkg/runtime"
)

// DockerRuntime implements the ContainerRuntime interface using Docker client.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime creates a new DockerRuntime instance using client.FromEnv.
func NewDockerRuntime() (*DockerRuntime, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Check if Docker daemon is accessible
	ctx := context.Background()
	_, err = dockerClient.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerRuntime{
		client: dockerClient,
	}, nil
}

// PullImage pulls an image from its registry.
func (d *DockerRuntime) PullImage(ctx context.Context, imageName string) error {
	slog.Info("Pulling image", "image", imageName)

	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	// Drain the pull progress stream without printing it
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to stream image pull output: %w", err)
	}

	slog.Info("Successfully pulled image", "image", imageName)
	return nil
}

// buildMessage is one entry of the daemon's JSON build stream.
type buildMessage struct {
	Stream      string `json:"stream"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Error string `json:"error"`
}

// BuildImage submits the rendered Dockerfile plus the context directory as a
// tar stream to the daemon and fails on the first errored build step.
func (d *DockerRuntime) BuildImage(ctx context.Context, opts runtime.BuildOptions) error {
	slog.Info("Building image", "tags", opts.Tags, "context", opts.ContextDir)

	buildCtx := tarBuildContext(opts.ContextDir, opts.DockerfileName, opts.Dockerfile)
	defer buildCtx.Close()

	resp, err := d.client.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       opts.Tags,
		Dockerfile: opts.DockerfileName,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to start image build: %w", err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		var msg buildMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to decode build output: %w", err)
		}

		if msg.Error != "" {
			detail := msg.ErrorDetail.Message
			if detail == "" {
				detail = msg.Error
			}
			return fmt.Errorf("build step failed: %s", detail)
		}

		if line := strings.TrimSpace(msg.Stream); line != "" {
			slog.Info("Build output", "line", line)
		}
	}

	slog.Info("Successfully built image", "tags", opts.Tags)
	return nil
}

// DeployContainer creates and starts the application container with the
// recipe's port published on loopback, its environment, optional binds, and
// the engine-side healthcheck.
func (d *DockerRuntime) DeployContainer(ctx context.Context, opts runtime.DeployOptions) (string, error) {
	slog.Info("Deploying container", "image", opts.Image, "name", opts.Name, "port", opts.Port)

	var mounts []mount.Mount
	for hostPath, containerPath := range opts.VolumeBinds {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: hostPath,
			Target: containerPath,
		})
	}

	var envVars []string
	for key, value := range opts.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", key, value))
	}

	port := nat.Port(fmt.Sprintf("%d/tcp", opts.Port))

	containerConfig := &container.Config{
		Image:        opts.Image,
		Env:          envVars,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}

	if opts.Health != nil {
		containerConfig.Healthcheck = &container.HealthConfig{
			Test:        opts.Health.Test,
			Interval:    opts.Health.Interval,
			Timeout:     opts.Health.Timeout,
			StartPeriod: opts.Health.StartPeriod,
			Retries:     opts.Health.Retries,
		}
	}

	hostConfig := &container.HostConfig{
		Mounts: mounts,
		PortBindings: nat.PortMap{
			// Published on loopback only; the probe contract targets
			// localhost, nothing else needs the port.
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(opts.Port)}},
		},
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	containerID := resp.ID

	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		// Clean up on start failure
		if removeErr := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); removeErr != nil {
			slog.Error("Failed to remove container after start failure", "containerID", containerID, "error", removeErr)
		}
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	slog.Info("Container started", "containerID", containerID)
	return containerID, nil
}

// ContainerHealth reports the engine's view of the container: the healthcheck
// status when one is registered, otherwise the plain container status.
func (d *DockerRuntime) ContainerHealth(ctx context.Context, containerID string) (string, error) {
	insp, err := d.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}

	if insp.State == nil {
		return "unknown", nil
	}
	if insp.State.Health == nil {
		return string(insp.State.Status), nil
	}
	return string(insp.State.Health.Status), nil
}
