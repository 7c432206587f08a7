package config

import "fmt"

// Validate performs the structural checks a plan must pass before any work is
// scheduled: group names are unique, every `needs` reference resolves, and
// artifact ids are non-empty and unique within their group. Cycle detection
// lives in the graph package, which operates on a validated plan.
//
// Every returned error is a *ConfigError.
func Validate(p *Plan) error {
	if p.Settings == nil {
		return NewConfigError(fmt.Errorf("plan has no settings"))
	}
	if len(p.Groups) == 0 {
		return NewConfigError(fmt.Errorf("plan declares no groups"))
	}

	names := make(map[string]struct{}, len(p.Groups))
	for _, g := range p.Groups {
		if g.Name == "" {
			return NewConfigError(fmt.Errorf("group with empty name"))
		}
		if _, dup := names[g.Name]; dup {
			return NewConfigError(fmt.Errorf("group %q declared more than once", g.Name))
		}
		names[g.Name] = struct{}{}

		if g.RateLimit.MaxParallel < 1 {
			return NewConfigError(fmt.Errorf("group %q: max_parallel must be at least 1", g.Name))
		}
		if g.RateLimit.RetryAttempts < 0 {
			return NewConfigError(fmt.Errorf("group %q: retry_attempts must not be negative", g.Name))
		}
		if g.RateLimit.Delay < 0 || g.RateLimit.BackoffBase < 0 {
			return NewConfigError(fmt.Errorf("group %q: rate limit durations must not be negative", g.Name))
		}

		ids := make(map[string]struct{}, len(g.Artifacts))
		for _, a := range g.Artifacts {
			if a.ID == "" {
				return NewConfigError(fmt.Errorf("group %q contains an artifact with an empty id", g.Name))
			}
			if _, dup := ids[a.ID]; dup {
				return NewConfigError(&DuplicateArtifactError{Group: g.Name, ID: a.ID})
			}
			ids[a.ID] = struct{}{}
		}
	}

	for _, g := range p.Groups {
		for _, need := range g.Needs {
			if _, ok := names[need]; !ok {
				return NewConfigError(&MissingNeedError{Group: g.Name, Need: need})
			}
			if need == g.Name {
				return NewConfigError(&CyclicDependencyError{Cycle: []string{g.Name, g.Name}})
			}
		}
	}

	if p.Settings.MaxConcurrentGroups < 1 {
		return NewConfigError(fmt.Errorf("max_concurrent_groups must be at least 1"))
	}
	if p.Settings.OperationTimeout <= 0 {
		return NewConfigError(fmt.Errorf("op_timeout_ms must be positive"))
	}

	return nil
}
