// Package executor runs one group's artifacts against the rate-limited
// downstream sink: bounded concurrency, inter-operation start spacing,
// bounded retry with exponential backoff, per-operation timeouts and
// cache-key skipping.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/convoy-build/convoy/internal/cachekey"
	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/metrics"
	"github.com/convoy-build/convoy/internal/result"
	"github.com/convoy-build/convoy/internal/runner"
)

// Executor dispatches build/publish operations for one group at a time.
// It does not classify failures itself; the Builder returns tagged outcomes.
type Executor struct {
	// Timeout applies to every dispatched operation. A timeout is coerced to
	// a transient failure, eligible for retry.
	Timeout time.Duration
	// MaxBackoff caps the exponential retry wait.
	MaxBackoff time.Duration
	// Gate decides whether a successfully executed artifact may propagate.
	Gate *gate.Engine
	// ContextSource supplies the opaque build-context bytes per artifact.
	ContextSource cachekey.Source
	// Known is the caller-supplied set of previously-successful cache keys.
	Known map[cachekey.Key]struct{}
	// Metrics is optional instrumentation; nil disables it.
	Metrics *metrics.Metrics
}

// RunGroup executes every artifact of the group through build, subject to the
// group's rate-limit policy, and returns one result per artifact in plan
// order. Artifact failures are recorded, never returned as errors.
func (e *Executor) RunGroup(ctx context.Context, g *config.Group, build runner.Builder, check gate.Checker) []result.ArtifactResult {
	logger := ctxlog.FromContext(ctx).With("group", g.Name)

	// One token per Delay keeps operation starts spaced regardless of how
	// many run concurrently. Every(0) disables the spacing.
	limiter := rate.NewLimiter(rate.Every(g.RateLimit.Delay), 1)
	sem := semaphore.NewWeighted(int64(g.RateLimit.MaxParallel))

	results := make([]result.ArtifactResult, len(g.Artifacts))
	var wg sync.WaitGroup

	for i, a := range g.Artifacts {
		contextBytes, err := e.contextBytes(ctx, a)
		if err != nil {
			results[i] = result.ArtifactResult{
				ArtifactID: a.ID,
				Status:     result.StatusFailed,
				Reason:     fmt.Sprintf("reading build context: %v", err),
			}
			continue
		}

		key := cachekey.Compute(a, contextBytes)
		if cachekey.ShouldSkip(key, e.Known) {
			logger.Info("Artifact unchanged, skipping publish.", "artifact", a.ID, "key", string(key))
			results[i] = result.ArtifactResult{
				ArtifactID: a.ID,
				Status:     result.StatusSucceeded,
				CacheHit:   true,
			}
			continue
		}

		wg.Add(1)
		go func(i int, a *config.Artifact) {
			defer wg.Done()
			results[i] = e.runArtifact(ctx, g, a, build, check, limiter, sem)
		}(i, a)
	}

	wg.Wait()

	for _, r := range results {
		e.Metrics.ArtifactOutcome(string(r.Status))
	}
	return results
}

func (e *Executor) contextBytes(ctx context.Context, a *config.Artifact) ([]byte, error) {
	if e.ContextSource == nil {
		return nil, nil
	}
	return e.ContextSource(ctx, a)
}

// runArtifact drives one artifact through its attempt loop. The semaphore
// slot is held for the artifact's whole lifecycle, retries included, so the
// in-flight bound also bounds retrying artifacts.
func (e *Executor) runArtifact(ctx context.Context, g *config.Group, a *config.Artifact, build runner.Builder, check gate.Checker, limiter *rate.Limiter, sem *semaphore.Weighted) result.ArtifactResult {
	logger := ctxlog.FromContext(ctx).With("group", g.Name, "artifact", a.ID)

	if err := sem.Acquire(ctx, 1); err != nil {
		return result.ArtifactResult{
			ArtifactID: a.ID,
			Status:     result.StatusFailed,
			Reason:     fmt.Sprintf("canceled before start: %v", err),
		}
	}
	defer sem.Release(1)

	var attempts []result.ExecutionAttempt
	maxAttempts := g.RateLimit.RetryAttempts + 1
	lastReason := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			e.Metrics.Retry()
			wait := e.backoffFor(g, attempt-1)
			logger.Debug("Backing off before retry.", "attempt", attempt, "wait", wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return failedResult(a, attempts, fmt.Sprintf("canceled during backoff: %v", err))
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			return failedResult(a, attempts, fmt.Sprintf("canceled waiting for rate limit: %v", err))
		}

		e.Metrics.OperationStarted()
		opCtx, cancel := context.WithTimeout(ctx, e.Timeout)
		started := time.Now()
		out := build.Execute(opCtx, a)
		finished := time.Now()
		timedOut := errors.Is(opCtx.Err(), context.DeadlineExceeded)
		cancel()
		e.Metrics.OperationFinished()

		// An operation that ran into its deadline is transient even if the
		// builder classified it otherwise.
		if timedOut && out.Kind != runner.OutcomeSuccess {
			reason := out.Reason
			if reason == "" {
				reason = fmt.Sprintf("operation timed out after %s", e.Timeout)
			}
			out = runner.Transient(reason)
		}

		attempts = append(attempts, result.ExecutionAttempt{
			ArtifactID: a.ID,
			Number:     attempt,
			StartedAt:  started,
			FinishedAt: finished,
			Outcome:    out,
		})

		switch out.Kind {
		case runner.OutcomeSuccess:
			logger.Info("✅ Artifact published.", "ref", out.Ref, "attempt", attempt)
			return e.applyGate(ctx, a, out.Ref, check, attempts)

		case runner.OutcomePermanent:
			logger.Error("Artifact failed permanently.", "reason", out.Reason, "attempt", attempt)
			return failedResult(a, attempts, out.Reason)

		case runner.OutcomeTransient:
			logger.Warn("Transient failure.", "reason", out.Reason, "attempt", attempt)
			lastReason = out.Reason
		}
	}

	return failedResult(a, attempts,
		fmt.Sprintf("retries exhausted after %d attempts: %s", maxAttempts, lastReason))
}

// applyGate runs the checker over a successfully executed artifact. A Block
// overrides the successful execution; a checker transport error fails closed.
func (e *Executor) applyGate(ctx context.Context, a *config.Artifact, ref string, check gate.Checker, attempts []result.ExecutionAttempt) result.ArtifactResult {
	logger := ctxlog.FromContext(ctx).With("artifact", a.ID)

	if check == nil || e.Gate == nil {
		return result.ArtifactResult{ArtifactID: a.ID, Status: result.StatusSucceeded, Attempts: attempts}
	}

	verdicts, err := check.Check(ctx, ref, a)
	if err != nil {
		decision := gate.Decision{
			Kind:   gate.Block,
			Reason: fmt.Sprintf("checker failed for artifact %q: %v", a.ID, err),
		}
		logger.Error("Checker error, blocking propagation.", "error", err)
		return result.ArtifactResult{
			ArtifactID: a.ID,
			Status:     result.StatusFailed,
			Reason:     decision.Reason,
			Gate:       &decision,
			Attempts:   attempts,
		}
	}

	decision := e.Gate.Evaluate(a, verdicts)
	switch decision.Kind {
	case gate.Block:
		logger.Warn("Gate blocked artifact.", "reason", decision.Reason)
		return result.ArtifactResult{
			ArtifactID: a.ID,
			Status:     result.StatusFailed,
			Reason:     decision.Reason,
			Gate:       &decision,
			Attempts:   attempts,
		}
	case gate.Warn:
		logger.Warn("Gate warning.", "reason", decision.Reason)
		return result.ArtifactResult{
			ArtifactID: a.ID,
			Status:     result.StatusSucceeded,
			Gate:       &decision,
			Attempts:   attempts,
		}
	default:
		return result.ArtifactResult{ArtifactID: a.ID, Status: result.StatusSucceeded, Attempts: attempts}
	}
}

// backoffFor returns the capped exponential wait before retry number retry
// (1-based): backoff_base * 2^(retry-1).
func (e *Executor) backoffFor(g *config.Group, retry int) time.Duration {
	wait := g.RateLimit.BackoffBase
	for i := 1; i < retry; i++ {
		wait *= 2
		if e.MaxBackoff > 0 && wait >= e.MaxBackoff {
			return e.MaxBackoff
		}
	}
	if e.MaxBackoff > 0 && wait > e.MaxBackoff {
		return e.MaxBackoff
	}
	return wait
}

func failedResult(a *config.Artifact, attempts []result.ExecutionAttempt, reason string) result.ArtifactResult {
	return result.ArtifactResult{
		ArtifactID: a.ID,
		Status:     result.StatusFailed,
		Reason:     reason,
		Attempts:   attempts,
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
