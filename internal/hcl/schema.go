package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all top-level blocks a plan file may carry. Any single
// file may hold the settings block, group blocks, or both.
type fileRoot struct {
	Settings *settingsBlock `hcl:"settings,block"`
	Groups   []*groupBlock  `hcl:"group,block"`
	Remain   hcl.Body       `hcl:",remain"`
}

// settingsBlock is the HCL shape of the run-wide policy knobs. Every field is
// optional; omitted fields fall back to the built-in defaults.
type settingsBlock struct {
	FailFast                    *bool   `hcl:"fail_fast,optional"`
	ContinueOnDependencyFailure *bool   `hcl:"continue_on_dependency_failure,optional"`
	MaxConcurrentGroups         *int    `hcl:"max_concurrent_groups,optional"`
	FailOnSeverity              *string `hcl:"fail_on_severity,optional"`
	OperationTimeoutMs          *int64  `hcl:"operation_timeout_ms,optional"`
	MaxBackoffMs                *int64  `hcl:"max_backoff_ms,optional"`
	SummaryFailureLimit         *int    `hcl:"summary_failure_limit,optional"`
	Builder                     *string `hcl:"builder,optional"`
	Checker                     *string `hcl:"checker,optional"`
}

// groupBlock is the HCL shape of one build group.
type groupBlock struct {
	Name      string           `hcl:"name,label"`
	Needs     []string         `hcl:"needs,optional"`
	Builder   *string          `hcl:"builder,optional"`
	Checker   *string          `hcl:"checker,optional"`
	RateLimit *rateLimitBlock  `hcl:"rate_limit,block"`
	Artifacts []*artifactBlock `hcl:"artifact,block"`
}

// rateLimitBlock holds the per-group sink policy. Durations are expressed in
// milliseconds in the file and translated to time.Duration in the model.
type rateLimitBlock struct {
	DelayMs       *int64 `hcl:"delay_ms,optional"`
	MaxParallel   *int   `hcl:"max_parallel,optional"`
	RetryAttempts *int   `hcl:"retry_attempts,optional"`
	BackoffBaseMs *int64 `hcl:"backoff_base_ms,optional"`
}

// artifactBlock is the HCL shape of one artifact. Inputs is kept as a raw
// expression so arbitrary key/value maps decode without a fixed schema.
type artifactBlock struct {
	ID          string         `hcl:"id,label"`
	SourceRef   string         `hcl:"source_ref"`
	TargetName  string         `hcl:"target_name"`
	Platforms   []string       `hcl:"platforms,optional"`
	Required    *bool          `hcl:"required,optional"`
	ContextPath *string        `hcl:"context_path,optional"`
	Inputs      hcl.Expression `hcl:"inputs,optional"`
}
