// This file translates the HCL schema structs into the format-agnostic plan
// model, applying defaults for every omitted attribute.

package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/convoy-build/convoy/internal/config"
)

func translatePlan(settings *settingsBlock, groups []*groupBlock) (*config.Plan, error) {
	plan := &config.Plan{
		Settings: translateSettings(settings),
	}

	for _, g := range groups {
		group, err := translateGroup(g)
		if err != nil {
			return nil, err
		}
		plan.Groups = append(plan.Groups, group)
	}
	return plan, nil
}

func translateSettings(s *settingsBlock) *config.Settings {
	out := config.DefaultSettings()
	if s == nil {
		return out
	}
	if s.FailFast != nil {
		out.FailFast = *s.FailFast
	}
	if s.ContinueOnDependencyFailure != nil {
		out.ContinueOnDependencyFailure = *s.ContinueOnDependencyFailure
	}
	if s.MaxConcurrentGroups != nil {
		out.MaxConcurrentGroups = *s.MaxConcurrentGroups
	}
	if s.FailOnSeverity != nil {
		out.FailOnSeverity = *s.FailOnSeverity
	}
	if s.OperationTimeoutMs != nil {
		out.OperationTimeout = time.Duration(*s.OperationTimeoutMs) * time.Millisecond
	}
	if s.MaxBackoffMs != nil {
		out.MaxBackoff = time.Duration(*s.MaxBackoffMs) * time.Millisecond
	}
	if s.SummaryFailureLimit != nil {
		out.SummaryFailureLimit = *s.SummaryFailureLimit
	}
	if s.Builder != nil {
		out.Builder = *s.Builder
	}
	if s.Checker != nil {
		out.Checker = *s.Checker
	}
	return out
}

func translateGroup(g *groupBlock) (*config.Group, error) {
	group := &config.Group{
		Name:      g.Name,
		Needs:     g.Needs,
		RateLimit: translateRateLimit(g.RateLimit),
	}
	if g.Builder != nil {
		group.Builder = *g.Builder
	}
	if g.Checker != nil {
		group.Checker = *g.Checker
	}

	for _, a := range g.Artifacts {
		artifact, err := translateArtifact(g.Name, a)
		if err != nil {
			return nil, err
		}
		group.Artifacts = append(group.Artifacts, artifact)
	}
	return group, nil
}

func translateRateLimit(r *rateLimitBlock) config.RateLimit {
	out := config.DefaultRateLimit()
	if r == nil {
		return out
	}
	if r.DelayMs != nil {
		out.Delay = time.Duration(*r.DelayMs) * time.Millisecond
	}
	if r.MaxParallel != nil {
		out.MaxParallel = *r.MaxParallel
	}
	if r.RetryAttempts != nil {
		out.RetryAttempts = *r.RetryAttempts
	}
	if r.BackoffBaseMs != nil {
		out.BackoffBase = time.Duration(*r.BackoffBaseMs) * time.Millisecond
	}
	return out
}

func translateArtifact(groupName string, a *artifactBlock) (*config.Artifact, error) {
	artifact := &config.Artifact{
		ID:         a.ID,
		SourceRef:  a.SourceRef,
		TargetName: a.TargetName,
		Platforms:  a.Platforms,
		Required:   true,
	}
	if a.Required != nil {
		artifact.Required = *a.Required
	}
	if a.ContextPath != nil {
		artifact.ContextPath = *a.ContextPath
	}

	inputs, err := evalInputs(a.Inputs)
	if err != nil {
		return nil, config.NewConfigError(
			fmt.Errorf("in group %q, artifact %q: %w", groupName, a.ID, err))
	}
	artifact.Inputs = inputs
	return artifact, nil
}

// evalInputs evaluates the inputs expression into a flat string map. The
// decoder populates omitted optional attributes with zero-width expression
// placeholders, so presence is checked by source range, not nil.
func evalInputs(expr hcl.Expression) (map[string]string, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid inputs expression: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("inputs must be a map of strings, got %s", val.Type().FriendlyName())
	}

	inputs := make(map[string]string, val.LengthInt())
	for k, v := range val.AsValueMap() {
		sv, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", k, err)
		}
		if sv.IsNull() {
			return nil, fmt.Errorf("input %q: null value", k)
		}
		inputs[k] = sv.AsString()
	}
	return inputs, nil
}

// isExprDefined reports whether an HCL expression was actually present in the
// source. A real attribute occupies bytes in the file, while a placeholder
// for an omitted optional attribute has a zero-width range.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
