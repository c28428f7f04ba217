package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dockhand/internal/app"
	"dockhand/internal/builder"
	"dockhand/internal/deployer"
	"dockhand/internal/errors"
	"dockhand/internal/parser"
	"dockhand/internal/probe"
	"dockhand/internal/source"
	"dockhand/pkg/recipe"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "dockhand",
	Short:   "Dockhand - recipe-driven container build, deploy, and health watch",
	Version: version,
	Long: `Dockhand takes a declarative deployment recipe for a containerized web
application and drives it through image build, container deploy, and
health monitoring against the local Docker daemon.`,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a complete deployment recipe",
	Long: `Apply executes the complete dockhand workflow: materializing the
application source, building the image, and deploying the container - all
from a single command. With --watch it keeps monitoring the container's
health endpoint afterwards.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retainState, _ := cmd.Flags().GetBool("retain-state")
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, stop := signalContext()
		defer stop()

		err := app.Apply(ctx, file, app.ApplyOptions{
			DryRun:      dryRun,
			RetainState: retainState,
			Watch:       watch,
		})
		if err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the application image from a recipe",
	Long: `Build materializes the application source, renders the image build plan
(base runtime, probe tool, dependency manifest, application payload, runtime
directories, port, healthcheck, entry command), and submits it to the Docker
daemon. With --dry-run the rendered plan is printed instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx, stop := signalContext()
		defer stop()

		if err := runBuild(ctx, file, dryRun); err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}
	},
}

// runBuild drives the build command. It returns instead of exiting so the
// deferred source cleanup runs on every path.
func runBuild(ctx context.Context, file string, dryRun bool) error {
	rec, err := parser.Parse(file)
	if err != nil {
		return err
	}

	m, err := source.Materialize(ctx, &rec.Spec.Source)
	if err != nil {
		return err
	}
	defer m.Cleanup()

	plan, err := builder.NewPlan(rec, m.Dir)
	if err != nil {
		return err
	}

	if dryRun {
		return plan.DryRun()
	}

	containerRuntime, err := app.NewProviderFactory().GetContainerRuntime()
	if err != nil {
		return err
	}

	if err := plan.Execute(ctx, containerRuntime); err != nil {
		return err
	}

	fmt.Printf("Image built: %s\n", rec.Spec.Image.Tag)
	return nil
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the container for a recipe",
	Long: `Deploy creates and starts the application container: the recipe port is
published on loopback, runtime environment and volume binds are applied, and
the health probe is registered with the container engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")

		ctx, stop := signalContext()
		defer stop()

		rec := mustParse(file)

		containerRuntime, err := app.NewProviderFactory().GetContainerRuntime()
		if err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}

		containerID, err := deployer.New(containerRuntime).Deploy(ctx, rec)
		if err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}

		fmt.Printf("Container deployed: %s\n", containerID)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a deployed container's health",
	Long: `Watch runs the periodic health monitor: no probes during the start
period, then one probe per interval against the health endpoint on
localhost. Three consecutive failures (or the recipe's configured retries)
classify the container unhealthy; a later success restores it. With
--until-unhealthy the command exits non-zero once the unhealthy state is
reached, for use under an outer supervisor.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		untilUnhealthy, _ := cmd.Flags().GetBool("until-unhealthy")

		ctx, stop := signalContext()
		defer stop()

		rec := mustParse(file)

		if err := app.Watch(ctx, rec, "", "", untilUnhealthy); err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Issue one health probe and exit 0 or 1",
	Long: `Probe issues a single GET against the health endpoint on localhost and
exits 0 on a successful response within the timeout, 1 otherwise. The PORT
environment variable overrides the target port. Suitable as a container
healthcheck command.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg := probe.Resolve(port, endpoint, timeout)
		if err := probe.NewHTTPProber(cfg).Probe(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	},
}

// mustParse parses the recipe file or exits with the parse error.
func mustParse(file string) *recipe.Recipe {
	rec, err := parser.Parse(file)
	if err != nil {
		errors.HandleError(err)
		os.Exit(1)
	}
	return rec
}

// signalContext cancels on SIGINT/SIGTERM so long-running commands stop
// cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Path to the recipe YAML file (required)")
	applyCmd.Flags().Bool("dry-run", false, "Simulate the workflow without making any changes")
	applyCmd.Flags().Bool("retain-state", false, "Keep the state file after successful completion for auditing purposes")
	applyCmd.Flags().Bool("watch", false, "Keep monitoring container health after deploying")
	if err := applyCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for apply command", "error", err)
	}
	rootCmd.AddCommand(applyCmd)

	buildCmd.Flags().StringP("file", "f", "", "Path to the recipe YAML file (required)")
	buildCmd.Flags().Bool("dry-run", false, "Print the rendered build plan without building")
	if err := buildCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for build command", "error", err)
	}
	rootCmd.AddCommand(buildCmd)

	deployCmd.Flags().StringP("file", "f", "", "Path to the recipe YAML file (required)")
	if err := deployCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for deploy command", "error", err)
	}
	rootCmd.AddCommand(deployCmd)

	watchCmd.Flags().StringP("file", "f", "", "Path to the recipe YAML file (required)")
	watchCmd.Flags().Bool("until-unhealthy", false, "Exit non-zero once the container is classified unhealthy")
	if err := watchCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for watch command", "error", err)
	}
	rootCmd.AddCommand(watchCmd)

	probeCmd.Flags().Int("port", recipe.DefaultPort, "Default target port when PORT is unset")
	probeCmd.Flags().String("endpoint", recipe.DefaultEndpoint, "Health endpoint path")
	probeCmd.Flags().Duration("timeout", recipe.DefaultTimeout, "Probe timeout")
	rootCmd.AddCommand(probeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
