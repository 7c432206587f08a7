// Package registry maps collaborator names from plan configuration onto the
// registered Go implementations of the Builder and Checker interfaces.
package registry

import (
	"fmt"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/runner"
)

// Registry holds all named builders and checkers available to a run.
type Registry struct {
	builders map[string]runner.Builder
	checkers map[string]gate.Checker
}

// Module is the interface a collaborator package implements to wire itself
// into the registry.
type Module interface {
	Register(r *Registry)
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		builders: make(map[string]runner.Builder),
		checkers: make(map[string]gate.Checker),
	}
}

// RegisterBuilder registers a builder under the given name, replacing any
// previous registration.
func (r *Registry) RegisterBuilder(name string, b runner.Builder) {
	r.builders[name] = b
}

// RegisterChecker registers a checker under the given name, replacing any
// previous registration.
func (r *Registry) RegisterChecker(name string, c gate.Checker) {
	r.checkers[name] = c
}

// Builder looks up a builder by name.
func (r *Registry) Builder(name string) (runner.Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Checker looks up a checker by name.
func (r *Registry) Checker(name string) (gate.Checker, bool) {
	c, ok := r.checkers[name]
	return c, ok
}

// Validate checks that every builder and checker name the plan references is
// registered. Errors are *config.ConfigError: a plan naming a missing
// collaborator must fail before any work is scheduled.
func (r *Registry) Validate(plan *config.Plan) error {
	builderName := func(g *config.Group) string {
		if g.Builder != "" {
			return g.Builder
		}
		return plan.Settings.Builder
	}
	checkerName := func(g *config.Group) string {
		if g.Checker != "" {
			return g.Checker
		}
		return plan.Settings.Checker
	}

	for _, g := range plan.Groups {
		if name := builderName(g); name != "" {
			if _, ok := r.builders[name]; !ok {
				return config.NewConfigError(fmt.Errorf("group %q uses unregistered builder %q", g.Name, name))
			}
		} else {
			return config.NewConfigError(fmt.Errorf("group %q has no builder configured", g.Name))
		}
		// A group may run gateless with an explicitly empty checker default.
		if name := checkerName(g); name != "" {
			if _, ok := r.checkers[name]; !ok {
				return config.NewConfigError(fmt.Errorf("group %q uses unregistered checker %q", g.Name, name))
			}
		}
	}
	return nil
}

// Resolve returns the builder and checker for a group, falling back to the
// settings-level defaults. Call Validate first; unknown names return nil.
func (r *Registry) Resolve(plan *config.Plan, g *config.Group) (runner.Builder, gate.Checker) {
	builderName := g.Builder
	if builderName == "" {
		builderName = plan.Settings.Builder
	}
	checkerName := g.Checker
	if checkerName == "" {
		checkerName = plan.Settings.Checker
	}

	var b runner.Builder
	if builderName != "" {
		b = r.builders[builderName]
	}
	var c gate.Checker
	if checkerName != "" {
		c = r.checkers[checkerName]
	}
	return b, c
}
