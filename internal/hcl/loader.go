// Package hcl loads build plans from HCL files and translates them into the
// format-agnostic configuration model.
package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/fsutil"
	"github.com/convoy-build/convoy/internal/graph"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from the given paths, merges their
// blocks into one plan, applies defaults and validates the result, dependency
// graph included. Every error it returns is a config.ConfigError.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findPlanFiles(paths)
	if err != nil {
		return nil, config.NewConfigError(err)
	}
	if len(files) == 0 {
		return nil, config.NewConfigError(fmt.Errorf("no .hcl plan files found under %v", paths))
	}
	logger.Debug("Discovered plan files.", "count", len(files))

	parser := hclparse.NewParser()
	var settings *settingsBlock
	var groups []*groupBlock

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, config.NewConfigError(fmt.Errorf("failed to parse plan file %s: %w", file, diags))
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, config.NewConfigError(fmt.Errorf("failed to decode plan file %s: %w", file, diags))
		}

		if root.Settings != nil {
			if settings != nil {
				return nil, config.NewConfigError(fmt.Errorf("duplicate settings block in %s; the plan allows exactly one", file))
			}
			settings = root.Settings
		}
		groups = append(groups, root.Groups...)
	}

	plan, err := translatePlan(settings, groups)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(plan); err != nil {
		return nil, err
	}
	// Cycle detection runs here so callers get a plan whose graph is known
	// buildable.
	if _, err := graph.FromPlan(plan); err != nil {
		return nil, err
	}

	logger.Debug("Plan loading complete.", "groups", len(plan.Groups), "artifacts", plan.TotalArtifacts())
	return plan, nil
}

// findPlanFiles resolves each path to either itself (an .hcl file) or the
// .hcl files under it (a directory). Paths that do not exist are errors here;
// a plan that silently loses files is worse than a loud one.
func (l *Loader) findPlanFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, ok := seen[p]; !ok {
			all = append(all, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing plan path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
			continue
		}
		if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return all, nil
}
