package config

import "time"

// Plan is the unified, format-agnostic representation of everything a single
// orchestration run needs: all groups plus the run-wide settings.
type Plan struct {
	Groups   []*Group
	Settings *Settings
}

// Group is the unit of scheduling and concurrency control. A group owns an
// ordered list of artifacts and may depend on zero or more other groups.
type Group struct {
	Name      string
	Needs     []string
	Artifacts []*Artifact
	RateLimit RateLimit

	// Builder and Checker select registered collaborator modules by name.
	// Empty values fall back to the settings-level defaults.
	Builder string
	Checker string
}

// Artifact identifies one buildable/publishable unit. Immutable once loaded.
type Artifact struct {
	ID         string
	SourceRef  string
	TargetName string
	Platforms  []string
	Required   bool
	Inputs     map[string]string

	// ContextPath optionally points at the build context whose content feeds
	// the artifact's cache key. The engine treats it as an opaque byte source.
	ContextPath string
}

// RateLimit is the throttling policy applied to one group's artifacts.
type RateLimit struct {
	// Delay is the minimum spacing between operation starts, independent of
	// how many operations run concurrently.
	Delay time.Duration
	// MaxParallel bounds the number of in-flight operations for the group.
	MaxParallel int
	// RetryAttempts is the number of retries after the first attempt of an
	// operation that keeps failing transiently.
	RetryAttempts int
	// BackoffBase is the wait before the first retry; subsequent retries
	// double it, capped by Settings.MaxBackoff.
	BackoffBase time.Duration
}

// Settings holds run-wide policy knobs. The fail-fast and
// continue-on-dependency-failure semantics are deliberately explicit
// configuration rather than hidden constants.
type Settings struct {
	// FailFast makes the first failed group immediately skip every group
	// whose dependency chain includes it. Independent branches still finish.
	FailFast bool
	// ContinueOnDependencyFailure lets a group become schedulable once all
	// its dependencies are merely terminal; a failed dependency then forces
	// the group to skipped instead of blocking the run.
	ContinueOnDependencyFailure bool
	// MaxConcurrentGroups bounds how many groups run at the same time.
	MaxConcurrentGroups int
	// FailOnSeverity is the gate threshold; checker verdicts at or above it
	// block propagation. Parsed by the gate engine.
	FailOnSeverity string
	// OperationTimeout applies to every dispatched build/publish operation.
	// A timeout is a transient failure eligible for retry.
	OperationTimeout time.Duration
	// MaxBackoff caps the exponential retry backoff wait.
	MaxBackoff time.Duration
	// SummaryFailureLimit is how many actionable failure details the run
	// summary carries.
	SummaryFailureLimit int

	// Builder and Checker are the default collaborator module names for
	// groups that do not choose their own.
	Builder string
	Checker string
}

// DefaultRateLimit returns the rate-limit policy applied when a group
// declares none.
func DefaultRateLimit() RateLimit {
	return RateLimit{
		Delay:         0,
		MaxParallel:   4,
		RetryAttempts: 2,
		BackoffBase:   250 * time.Millisecond,
	}
}

// DefaultSettings returns the run-wide defaults. The strict fail-fast posture
// is the default because publishing on top of a failed dependency is almost
// never what the caller wants.
func DefaultSettings() *Settings {
	return &Settings{
		FailFast:                    true,
		ContinueOnDependencyFailure: false,
		MaxConcurrentGroups:         4,
		FailOnSeverity:              "critical",
		OperationTimeout:            2 * time.Minute,
		MaxBackoff:                  30 * time.Second,
		SummaryFailureLimit:         10,
		Builder:                     "httppush",
		Checker:                     "policy",
	}
}

// GroupByName returns the named group, or nil if the plan has none.
func (p *Plan) GroupByName(name string) *Group {
	for _, g := range p.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// TotalArtifacts counts every artifact across all groups.
func (p *Plan) TotalArtifacts() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Artifacts)
	}
	return n
}
