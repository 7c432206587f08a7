// Package result owns the append-only record of an orchestration run:
// per-attempt, per-artifact and per-group outcomes, aggregated into one
// immutable RunSummary. Any "has this already run" question is a pure lookup
// against these records.
package result

import (
	"time"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/runner"
)

// Status is the terminal outcome of a single artifact.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// GroupStatus is the lifecycle state of a group, recorded terminally.
type GroupStatus string

const (
	GroupPending   GroupStatus = "pending"
	GroupRunning   GroupStatus = "running"
	GroupSucceeded GroupStatus = "succeeded"
	GroupFailed    GroupStatus = "failed"
	GroupSkipped   GroupStatus = "skipped"
)

// ExecutionAttempt records one invocation of the builder for an artifact.
// Immutable once recorded.
type ExecutionAttempt struct {
	ArtifactID string         `json:"artifact_id"`
	Number     int            `json:"number"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    runner.Outcome `json:"outcome"`
}

// ArtifactResult is the terminal record for one artifact. Written once when
// the artifact's pipeline completes, never mutated afterwards.
type ArtifactResult struct {
	ArtifactID string `json:"artifact_id"`
	Status     Status `json:"status"`
	// Reason explains a non-success in actionable terms; never empty for a
	// failed or skipped artifact.
	Reason   string             `json:"reason,omitempty"`
	CacheHit bool               `json:"cache_hit"`
	Gate     *gate.Decision     `json:"gate,omitempty"`
	Attempts []ExecutionAttempt `json:"attempts,omitempty"`
}

// GroupResult aggregates the artifact results of one group.
type GroupResult struct {
	Name      string           `json:"name"`
	Status    GroupStatus      `json:"status"`
	StartedAt time.Time        `json:"started_at,omitempty"`
	Duration  time.Duration    `json:"duration_ms"`
	Artifacts []ArtifactResult `json:"artifacts"`
}

// GroupOutcome derives a group's terminal status from its artifact results:
// failed when any required artifact failed, succeeded otherwise. Optional
// artifacts may fail execution without failing the group, but a gate Block is
// a policy override and fails the group regardless of the artifact being
// optional.
func GroupOutcome(g *config.Group, artifacts []ArtifactResult) GroupStatus {
	required := make(map[string]bool, len(g.Artifacts))
	for _, a := range g.Artifacts {
		required[a.ID] = a.Required
	}
	for _, ar := range artifacts {
		if ar.Status != StatusFailed {
			continue
		}
		if required[ar.ArtifactID] || (ar.Gate != nil && ar.Gate.Kind == gate.Block) {
			return GroupFailed
		}
	}
	return GroupSucceeded
}

// SkippedGroupResult builds the terminal record for a group that never ran,
// with every artifact recorded as skipped for the given reason.
func SkippedGroupResult(g *config.Group, reason string) *GroupResult {
	artifacts := make([]ArtifactResult, 0, len(g.Artifacts))
	for _, a := range g.Artifacts {
		artifacts = append(artifacts, ArtifactResult{
			ArtifactID: a.ID,
			Status:     StatusSkipped,
			Reason:     reason,
		})
	}
	return &GroupResult{
		Name:      g.Name,
		Status:    GroupSkipped,
		Artifacts: artifacts,
	}
}
