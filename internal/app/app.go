// Package app wires the plan loader, registry, gate and scheduler into one
// runnable application instance.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/graph"
	"github.com/convoy-build/convoy/internal/metrics"
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/internal/result"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	plan     *config.Plan
	graph    *graph.Graph
	gate     *gate.Engine
	metrics  *metrics.Metrics

	summary *result.RunSummary
}

// NewApp is the constructor for the main application. It loads and validates
// the plan, builds the dependency graph and populates the registry, so every
// configuration fault surfaces here, before any work is scheduled. It returns
// a fully initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	plan, err := loader.Load(ctx, appConfig.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	logger.Debug("Plan loaded and translated into unified model.",
		"groups", len(plan.Groups), "artifacts", plan.TotalArtifacts())

	if appConfig.MaxGroups > 0 {
		plan.Settings.MaxConcurrentGroups = appConfig.MaxGroups
	}

	g, err := graph.FromPlan(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "node_count", g.Len())

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All collaborator modules registered.", "count", len(modules))

	if err := reg.Validate(plan); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	eng, err := gate.NewEngine(plan.Settings.FailOnSeverity)
	if err != nil {
		return nil, config.NewConfigError(err)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		plan:     plan,
		graph:    g,
		gate:     eng,
		metrics:  metrics.New(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Plan returns the loaded plan. This is primarily for testing.
func (a *App) Plan() *config.Plan {
	return a.plan
}

// Summary returns the last run's summary, or nil before any run.
func (a *App) Summary() *result.RunSummary {
	return a.summary
}
