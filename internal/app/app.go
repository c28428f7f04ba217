package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"dockhand/internal/builder"
	"dockhand/internal/deployer"
	"dockhand/internal/health"
	"dockhand/internal/parser"
	"dockhand/internal/probe"
	"dockhand/internal/source"
	"dockhand/internal/ui"
	"dockhand/pkg/recipe"
)

// ApplyOptions controls the apply workflow.
type ApplyOptions struct {
	DryRun      bool
	RetainState bool
	Watch       bool
}

// Apply orchestrates the complete dockhand workflow using a stateful
// execution engine: materialize source, build the image, deploy the
// container, then optionally watch its health. Interrupted runs resume from
// the last successful stage.
func Apply(ctx context.Context, recipePath string, opts ApplyOptions) error {
	console := ui.NewConsole()

	slog.Info("Starting dockhand apply workflow", "recipePath", recipePath, "dryRun", opts.DryRun)

	// Load existing state or create new state
	state, err := loadState()
	if err != nil {
		return fmt.Errorf("failed to load execution state: %w", err)
	}

	if state == nil {
		// Fresh start - create new state
		runID := uuid.New().String()
		state = newState(recipePath, runID)
		slog.Info("Starting new dockhand run", "runId", runID, "recipePath", recipePath)
	} else {
		// Resume existing run
		nextStage := state.getNextStage()
		console.PrintInfo(fmt.Sprintf("State file found. Resuming from stage: %s", nextStage))
		slog.Info("Resuming dockhand run", "runId", state.RunID, "nextStage", nextStage, "lastStage", state.LastSuccessfulStage)
	}

	if opts.DryRun {
		console.PrintWarning("DRY RUN MODE - No actual changes will be made")
	}

	// Parse recipe (needed for all stages)
	rec, err := parser.Parse(recipePath)
	if err != nil {
		return fmt.Errorf("recipe parsing failed: %w", err)
	}
	slog.Info("Recipe parsed successfully", "name", rec.Metadata.Name, "kind", rec.Kind)

	// Stage 1: Materialize application source
	if !state.shouldSkipStage(StageSource) {
		console.PrintStage(1, "Materializing application source")
		if err := executeSourceStage(ctx, rec, state, opts.DryRun, console); err != nil {
			return fmt.Errorf("source stage failed: %w", err)
		}

		state.LastSuccessfulStage = StageSource
		if !opts.DryRun {
			if err := saveState(state); err != nil {
				return fmt.Errorf("failed to save state after source stage: %w", err)
			}
		}
	} else {
		console.PrintSkipped(1, "Materializing application source")
	}

	// Stage 2: Build the application image
	if !state.shouldSkipStage(StageBuild) {
		console.PrintStage(2, "Building application image")
		if err := executeBuildStage(ctx, rec, state, opts.DryRun, console); err != nil {
			return fmt.Errorf("build stage failed: %w", err)
		}

		state.LastSuccessfulStage = StageBuild
		if !opts.DryRun {
			if err := saveState(state); err != nil {
				return fmt.Errorf("failed to save state after build stage: %w", err)
			}
		}
	} else {
		console.PrintSkipped(2, "Building application image")
	}

	// Stage 3: Deploy the container
	if !state.shouldSkipStage(StageDeploy) {
		console.PrintStage(3, "Deploying container")
		if err := executeDeployStage(ctx, rec, state, opts.DryRun, console); err != nil {
			return fmt.Errorf("deploy stage failed: %w", err)
		}

		state.LastSuccessfulStage = StageDeploy
		if !opts.DryRun {
			if err := saveState(state); err != nil {
				return fmt.Errorf("failed to save state after deploy stage: %w", err)
			}
		}
	} else {
		console.PrintSkipped(3, "Deploying container")
	}

	// Mark workflow as completed and clean up
	state.LastSuccessfulStage = StageCompleted
	if !opts.DryRun {
		cleanupClonedSource(rec, state)

		if opts.RetainState {
			if err := saveState(state); err != nil {
				slog.Warn("Failed to save final state", "error", err)
			} else {
				slog.Info("State file retained for auditing", "file", StateFileName)
			}
		} else {
			if err := removeStateFile(); err != nil {
				slog.Warn("Failed to clean up state file", "error", err)
			}
		}
	}

	if opts.DryRun {
		console.PrintSuccess("DRY RUN COMPLETED - All stages simulated successfully")
		return nil
	}

	console.PrintSuccess(fmt.Sprintf("Deployment '%s' applied successfully", rec.Metadata.Name))
	slog.Info("Apply workflow completed successfully", "recipeName", rec.Metadata.Name)

	if opts.Watch {
		console.PrintStage(4, "Watching container health")
		return Watch(ctx, rec, state.SourceRef, state.SourceSHA, false)
	}

	return nil
}

// executeSourceStage resolves the build context directory and records it in
// the run state so later stages (and resumed runs) can find it.
func executeSourceStage(ctx context.Context, rec *recipe.Recipe, state *ExecutionState, isDryRun bool, console *ui.Console) error {
	if isDryRun {
		if rec.Spec.Source.Git != nil {
			fmt.Printf("DRY RUN: Would clone %s (ref %q) into a temporary directory\n", rec.Spec.Source.Git.URL, rec.Spec.Source.Git.Ref)
			return nil
		}
		fmt.Printf("DRY RUN: Would use local source directory: %s\n", rec.Spec.Source.Path)
		m, err := source.Materialize(ctx, &rec.Spec.Source)
		if err != nil {
			return err
		}
		state.ContextDir = m.Dir
		return nil
	}

	m, err := source.Materialize(ctx, &rec.Spec.Source)
	if err != nil {
		return err
	}

	state.ContextDir = m.Dir
	state.SourceRef = m.Ref
	state.SourceSHA = m.SHA

	console.PrintSuccess(fmt.Sprintf("Source ready in: %s", m.Dir))
	slog.Info("Source stage completed", "dir", m.Dir, "sha", m.SHA)
	return nil
}

// executeBuildStage renders the build plan and runs it against the container
// engine (or prints it in dry-run mode).
func executeBuildStage(ctx context.Context, rec *recipe.Recipe, state *ExecutionState, isDryRun bool, console *ui.Console) error {
	if isDryRun && state.ContextDir == "" {
		// Git source in dry-run mode: nothing was cloned to plan against.
		fmt.Printf("DRY RUN: Would build image %s from the cloned source\n", rec.Spec.Image.Tag)
		return nil
	}

	plan, err := builder.NewPlan(rec, state.ContextDir)
	if err != nil {
		return err
	}

	if isDryRun {
		return plan.DryRun()
	}

	containerRuntime, err := NewProviderFactory().GetContainerRuntime()
	if err != nil {
		return fmt.Errorf("failed to create container runtime: %w", err)
	}

	if err := plan.Execute(ctx, containerRuntime); err != nil {
		return err
	}

	console.PrintSuccess(fmt.Sprintf("Image built: %s", rec.Spec.Image.Tag))
	return nil
}

// executeDeployStage creates and starts the application container.
func executeDeployStage(ctx context.Context, rec *recipe.Recipe, state *ExecutionState, isDryRun bool, console *ui.Console) error {
	if isDryRun {
		fmt.Printf("DRY RUN: Would deploy container %s from image %s, publishing port %d on loopback\n",
			rec.Metadata.Name, rec.Spec.Image.Tag, rec.Spec.Runtime.Port)
		return nil
	}

	containerRuntime, err := NewProviderFactory().GetContainerRuntime()
	if err != nil {
		return fmt.Errorf("failed to create container runtime: %w", err)
	}

	containerID, err := deployer.New(containerRuntime).Deploy(ctx, rec)
	if err != nil {
		return err
	}

	state.ContainerID = containerID
	console.PrintSuccess(fmt.Sprintf("Container deployed: %s", containerID))
	return nil
}

// Watch runs the out-of-process health monitor for a deployed recipe until
// ctx is cancelled (or the container goes unhealthy with untilUnhealthy
// set, in which case a non-nil error is returned for the CLI to surface).
func Watch(ctx context.Context, rec *recipe.Recipe, sourceRef, sourceSHA string, untilUnhealthy bool) error {
	// A standalone watch has no deployed commit in hand; recover it from a
	// retained state file when one exists.
	if rec.Spec.Notify != nil && sourceSHA == "" {
		if state, err := loadState(); err == nil && state != nil && state.SourceSHA != "" {
			sourceRef = state.SourceRef
			sourceSHA = state.SourceSHA
			slog.Info("Recovered deployed commit from state file", "ref", sourceRef, "sha", sourceSHA)
		}
	}

	cfg := probe.Resolve(rec.Spec.Runtime.Port, rec.Spec.Health.Endpoint, rec.Spec.Health.Timeout)
	slog.Info("Watching container health", "url", cfg.URL())

	listener, err := transitionListener(rec, sourceRef, sourceSHA)
	if err != nil {
		return err
	}

	monitor := health.NewMonitor(probe.NewHTTPProber(cfg), health.Options{
		Interval:        rec.Spec.Health.Interval,
		StartPeriod:     rec.Spec.Health.StartPeriod,
		Retries:         rec.Spec.Health.Retries,
		Listener:        listener,
		StopOnUnhealthy: untilUnhealthy,
	})

	finalState := monitor.Run(ctx)
	slog.Info("Health monitor stopped", "finalState", finalState)

	if untilUnhealthy && finalState == health.StateUnhealthy {
		return fmt.Errorf("container reported unhealthy after %d consecutive probe failures", rec.Spec.Health.Retries)
	}
	return nil
}

// transitionListener builds the monitor listener: always log, and report
// deployment status when the recipe configures a notifier.
func transitionListener(rec *recipe.Recipe, sourceRef, sourceSHA string) (health.Listener, error) {
	if rec.Spec.Notify == nil {
		return nil, nil
	}

	if sourceSHA == "" {
		slog.Warn("Notify is configured but no deployed commit SHA is known; health transitions will be logged only")
		return nil, nil
	}

	notifier, err := NewProviderFactory().GetNotifier(rec.Spec.Notify, sourceRef, sourceSHA)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	return func(t health.Transition) {
		if err := notifier.HealthChanged(context.Background(), t); err != nil {
			slog.Warn("Failed to deliver health notification", "error", err)
		}
	}, nil
}

// cleanupClonedSource removes the temporary clone directory once the
// workflow has completed. Local source directories are never touched.
func cleanupClonedSource(rec *recipe.Recipe, state *ExecutionState) {
	if rec.Spec.Source.Git == nil || state.ContextDir == "" {
		return
	}
	if err := os.RemoveAll(state.ContextDir); err != nil {
		slog.Warn("Failed to remove cloned source directory", "dir", state.ContextDir, "error", err)
	}
}
