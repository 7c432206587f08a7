package config

import (
	"fmt"
	"strings"
)

// ConfigError marks a fatal configuration problem. No partial run happens
// when one is returned: the process exits with code 2 before any work is
// scheduled.
type ConfigError struct {
	Err error
}

// NewConfigError wraps err as a fatal configuration error.
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CyclicDependencyError reports a cycle in the group dependency graph,
// naming the groups along the cycle in order.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// MissingNeedError reports a `needs` reference to a group that does not exist.
type MissingNeedError struct {
	Group string
	Need  string
}

func (e *MissingNeedError) Error() string {
	return fmt.Sprintf("group %q needs unknown group %q", e.Group, e.Need)
}

// DuplicateArtifactError reports two artifacts sharing an id within one group.
type DuplicateArtifactError struct {
	Group string
	ID    string
}

func (e *DuplicateArtifactError) Error() string {
	return fmt.Sprintf("group %q declares artifact id %q more than once", e.Group, e.ID)
}
