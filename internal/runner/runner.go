// Package runner defines the contract between the engine and the external
// Builder/Publisher collaborators that actually construct and push artifacts.
//
// Failure classification is the collaborator's responsibility: it returns a
// tagged outcome, never a raw error, and the executor retries only what the
// collaborator tagged as transient.
package runner

import (
	"context"

	"github.com/convoy-build/convoy/internal/config"
)

// OutcomeKind tags the result of one build/publish operation.
type OutcomeKind int

const (
	// OutcomeSuccess means the artifact was built/published; Ref identifies it.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTransient is a retryable failure (timeout, throttling, network).
	OutcomeTransient
	// OutcomePermanent is a non-retryable failure (invalid input, policy).
	OutcomePermanent
)

// String returns the wire/summary name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one execution attempt.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// Ref is the built-artifact reference, set on success.
	Ref string `json:"ref,omitempty"`
	// Reason explains a failure in actionable terms.
	Reason string `json:"reason,omitempty"`
}

// Success tags a completed operation with its artifact reference.
func Success(ref string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Ref: ref}
}

// Transient tags a retryable failure.
func Transient(reason string) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason}
}

// Permanent tags a non-retryable failure.
func Permanent(reason string) Outcome {
	return Outcome{Kind: OutcomePermanent, Reason: reason}
}

// Builder is the external collaborator that builds and publishes one
// artifact. Implementations must honour ctx cancellation and classify their
// own failures.
type Builder interface {
	Execute(ctx context.Context, a *config.Artifact) Outcome
}

// BuilderFunc adapts a plain function to the Builder interface.
type BuilderFunc func(ctx context.Context, a *config.Artifact) Outcome

// Execute implements Builder.
func (f BuilderFunc) Execute(ctx context.Context, a *config.Artifact) Outcome {
	return f(ctx, a)
}
