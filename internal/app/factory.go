package app

import (
	"fmt"

	"dockhand/internal/notify"
	"dockhand/internal/runtime"
	runtimePkg "dockhand/pkg/runtime"

	"dockhand/pkg/recipe"
)

// ProviderFactory creates the container runtime and notifier implementations
// behind their interfaces, decoupling the orchestrator from concrete
// providers.
type ProviderFactory struct{}

// NewProviderFactory creates a new instance of ProviderFactory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// GetContainerRuntime returns the container engine implementation.
func (f *ProviderFactory) GetContainerRuntime() (runtimePkg.ContainerRuntime, error) {
	containerRuntime, err := runtime.NewDockerRuntime()
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker runtime: %w", err)
	}
	return containerRuntime, nil
}

// GetNotifier returns the notifier implementation for the recipe's notify
// configuration.
func (f *ProviderFactory) GetNotifier(cfg *recipe.Notify, ref, sha string) (notify.Notifier, error) {
	switch cfg.Provider {
	case "gitlab":
		notifier, err := notify.NewGitLabNotifier(cfg, ref, sha)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitLab notifier: %w", err)
		}
		return notifier, nil
	default:
		return nil, fmt.Errorf("unsupported notify provider: %s", cfg.Provider)
	}
}
