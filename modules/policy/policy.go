// Package policy is the built-in compliance checker. It inspects an
// artifact's declared shape rather than its content: mutable tags and
// unpinned platforms are the mistakes that keep resurfacing in plans.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the checker with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterChecker("policy", &Checker{})
}

// Checker emits verdicts about plan hygiene for a published artifact.
type Checker struct{}

// Check inspects the published artifact and returns one verdict per finding.
// It performs no network I/O; the only error path is a malformed
// policy_severity input.
func (c *Checker) Check(_ context.Context, ref string, a *config.Artifact) ([]gate.Verdict, error) {
	var verdicts []gate.Verdict

	if tag := targetTag(a.TargetName); tag == "" || tag == "latest" {
		verdicts = append(verdicts, gate.Verdict{
			Severity: gate.SeverityHigh,
			Message:  fmt.Sprintf("target %q uses a mutable tag; pin an immutable version", a.TargetName),
		})
	}

	if len(a.Platforms) == 0 {
		verdicts = append(verdicts, gate.Verdict{
			Severity: gate.SeverityWarning,
			Message:  fmt.Sprintf("artifact %q declares no platforms; the sink default applies", a.ID),
		})
	}

	if sev, ok := a.Inputs["policy_severity"]; ok {
		// Plans can inject findings directly, mainly for rehearsing gate
		// behavior before wiring a real scanner.
		parsed, err := gate.ParseSeverity(sev)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: invalid policy_severity input: %w", a.ID, err)
		}
		msg := a.Inputs["policy_message"]
		if msg == "" {
			msg = fmt.Sprintf("declared finding for %s", ref)
		}
		verdicts = append(verdicts, gate.Verdict{Severity: parsed, Message: msg})
	}

	return verdicts, nil
}

// targetTag extracts the tag portion of a target name, empty when untagged.
// The colon of a registry port does not count.
func targetTag(target string) string {
	slash := strings.LastIndex(target, "/")
	colon := strings.LastIndex(target, ":")
	if colon > slash {
		return target[colon+1:]
	}
	return ""
}
