// Package gate evaluates checker verdicts against a severity threshold and
// decides whether an otherwise-successful artifact may propagate.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoy-build/convoy/internal/config"
)

// Severity orders checker verdicts from informational to critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (want info, warning, high or critical)", s)
	}
}

// Verdict is one finding reported by a checker about a built artifact.
type Verdict struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Checker is the external collaborator that inspects a built artifact and
// reports verdicts. A transport error from the checker is treated as a block
// by the engine (fail closed).
type Checker interface {
	Check(ctx context.Context, ref string, a *config.Artifact) ([]Verdict, error)
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context, ref string, a *config.Artifact) ([]Verdict, error)

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context, ref string, a *config.Artifact) ([]Verdict, error) {
	return f(ctx, ref, a)
}

// DecisionKind classifies a gate decision.
type DecisionKind int

const (
	// Pass lets the artifact propagate with no findings.
	Pass DecisionKind = iota
	// Warn records findings below the threshold without blocking.
	Warn
	// Block treats the artifact as failed despite a successful execution.
	Block
)

// String returns the lowercase decision name.
func (k DecisionKind) String() string {
	switch k {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("decision(%d)", int(k))
	}
}

// Decision is the gate's verdict-derived ruling on one artifact. Reason cites
// the triggering verdict so a blocked artifact is never reported bare.
type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Reason string       `json:"reason,omitempty"`
}

// Engine applies the configured severity threshold to checker verdicts.
type Engine struct {
	// FailOn is the lowest severity that blocks propagation.
	FailOn Severity
}

// NewEngine builds a gate engine from the settings-level threshold name.
func NewEngine(failOnSeverity string) (*Engine, error) {
	sev, err := ParseSeverity(failOnSeverity)
	if err != nil {
		return nil, err
	}
	return &Engine{FailOn: sev}, nil
}

// Evaluate decides whether the artifact may propagate. Any verdict at or
// above the threshold blocks; findings below it warn; no findings pass.
func (e *Engine) Evaluate(a *config.Artifact, verdicts []Verdict) Decision {
	var worst *Verdict
	for i := range verdicts {
		if worst == nil || verdicts[i].Severity > worst.Severity {
			worst = &verdicts[i]
		}
	}

	if worst == nil {
		return Decision{Kind: Pass}
	}
	reason := fmt.Sprintf("%s: %s", worst.Severity, worst.Message)
	if worst.Severity >= e.FailOn {
		return Decision{
			Kind:   Block,
			Reason: fmt.Sprintf("artifact %q blocked by %s verdict: %s", a.ID, worst.Severity, worst.Message),
		}
	}
	return Decision{Kind: Warn, Reason: reason}
}
