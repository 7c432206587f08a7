// Package scheduler topologically drives the group dependency graph: it
// dispatches ready groups to the rate-limited executor under a global
// concurrency budget, applies the fail-fast and continue-on-dependency-failure
// policies, and streams terminal group results to the aggregator.
//
// The control loop itself is single-goroutine; only the dispatched group
// workers run concurrently.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/ctxlog"
	"github.com/convoy-build/convoy/internal/executor"
	"github.com/convoy-build/convoy/internal/graph"
	"github.com/convoy-build/convoy/internal/metrics"
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/internal/result"
)

// Scheduler owns one run over a validated plan and its dependency graph.
type Scheduler struct {
	Plan     *config.Plan
	Graph    *graph.Graph
	Executor *executor.Executor
	Registry *registry.Registry
	Agg      *result.Aggregator
	Metrics  *metrics.Metrics
}

// groupRun is the scheduler's mutable bookkeeping for one group. It is only
// touched from the control loop.
type groupRun struct {
	group       *config.Group
	state       State
	pendingDeps int
	depFailed   bool
	failedDep   string
	startedAt   time.Time
	cancel      context.CancelFunc
}

// completion is delivered by a group worker when the executor finishes.
type completion struct {
	name      string
	results   []result.ArtifactResult
	startedAt time.Time
	duration  time.Duration
}

// Run drives every group to a terminal state and records each with the
// aggregator. Artifact and group failures are recorded, not returned; the
// returned error reports only scheduler-level faults (stall, aggregator
// misuse) or context cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	runs := make(map[string]*groupRun, len(s.Plan.Groups))
	names := make([]string, 0, len(s.Plan.Groups))
	for _, g := range s.Plan.Groups {
		runs[g.Name] = &groupRun{group: g, pendingDeps: len(g.Needs)}
		names = append(names, g.Name)
	}
	sort.Strings(names)

	ready := &nameHeap{}
	heap.Init(ready)
	for _, name := range names {
		if runs[name].pendingDeps == 0 {
			runs[name].state = StateReady
			heap.Push(ready, name)
		}
	}

	done := make(chan completion)
	running := 0
	terminal := 0
	total := len(runs)
	ctxDone := ctx.Done()

	var fatal error

	markTerminal := func(gr *groupRun, record *result.GroupResult) {
		gr.state = stateFor(record.Status)
		terminal++
		s.Metrics.GroupOutcome(string(record.Status))
		if err := s.Agg.Record(record); err != nil && fatal == nil {
			fatal = fmt.Errorf("recording result for group %q: %w", record.Name, err)
		}
	}

	// markSkipped records a terminal skip and cascades to dependents. The
	// cascade carries the originally failed group, so a skip reason deep in a
	// chain still names the group that actually failed rather than the skipped
	// neighbor next to it.
	var onDepTerminal func(depName string, dependent *groupRun, success bool)
	markSkipped := func(gr *groupRun, reason string) {
		logger.Warn("Skipping group.", "group", gr.group.Name, "reason", reason)
		markTerminal(gr, result.SkippedGroupResult(gr.group, reason))
		origin := gr.failedDep
		if origin == "" {
			origin = gr.group.Name
		}
		dependents, err := s.Graph.Dependents(gr.group.Name)
		if err != nil {
			return
		}
		for _, name := range dependents {
			onDepTerminal(origin, runs[name], false)
		}
	}

	onDepTerminal = func(depName string, dependent *groupRun, success bool) {
		if dependent.state.Terminal() || dependent.state == StateRunning {
			return
		}
		dependent.pendingDeps--
		if !success && !dependent.depFailed {
			dependent.depFailed = true
			dependent.failedDep = depName
		}

		if s.Plan.Settings.FailFast && !success {
			// First failure cascades immediately; independent branches are
			// untouched because they are not dependents.
			markSkipped(dependent, fmt.Sprintf("skipped due to upstream failure of %q", depName))
			return
		}
		if !success && !s.Plan.Settings.ContinueOnDependencyFailure {
			// Without continue-on-dependency-failure a dependent does not wait
			// for its remaining dependencies once one has failed.
			markSkipped(dependent, fmt.Sprintf("upstream group %q did not succeed", depName))
			return
		}
		if dependent.pendingDeps > 0 {
			return
		}
		if dependent.depFailed {
			markSkipped(dependent, fmt.Sprintf("upstream group %q did not succeed", dependent.failedDep))
			return
		}
		dependent.state = StateReady
		heap.Push(ready, dependent.group.Name)
	}

	dispatch := func(name string) {
		gr := runs[name]
		gr.state = StateRunning
		gr.startedAt = time.Now()
		runCtx, cancel := context.WithCancel(ctx)
		gr.cancel = cancel

		build, check := s.Registry.Resolve(s.Plan, gr.group)
		logger.Info("▶️ Starting group.", "group", name, "artifacts", len(gr.group.Artifacts))

		go func(g *config.Group, startedAt time.Time) {
			results := s.Executor.RunGroup(runCtx, g, build, check)
			done <- completion{
				name:      g.Name,
				results:   results,
				startedAt: startedAt,
				duration:  time.Since(startedAt),
			}
		}(gr.group, gr.startedAt)
	}

	for terminal < total {
		for running < s.Plan.Settings.MaxConcurrentGroups && ready.Len() > 0 {
			name := heap.Pop(ready).(string)
			// A heap entry may have been skip-cascaded after it became ready.
			if runs[name].state != StateReady {
				continue
			}
			dispatch(name)
			running++
		}

		if running == 0 {
			if terminal < total {
				return fmt.Errorf("scheduler stalled with %d groups unresolved", total-terminal)
			}
			break
		}

		select {
		case c := <-done:
			running--
			gr := runs[c.name]
			if gr.cancel != nil {
				gr.cancel()
			}

			status := result.GroupOutcome(gr.group, c.results)
			record := &result.GroupResult{
				Name:      c.name,
				Status:    status,
				StartedAt: c.startedAt,
				Duration:  c.duration,
				Artifacts: c.results,
			}
			markTerminal(gr, record)
			if status == result.GroupFailed {
				logger.Error("Group failed.", "group", c.name)
			} else {
				logger.Info("✅ Group finished.", "group", c.name, "duration", c.duration)
			}

			dependents, err := s.Graph.Dependents(c.name)
			if err == nil {
				for _, name := range dependents {
					onDepTerminal(c.name, runs[name], status == result.GroupSucceeded)
				}
			}

		case <-ctxDone:
			logger.Warn("Run canceled, waiting for in-flight groups.", "error", ctx.Err())
			// Running groups observe their child contexts; everything not yet
			// dispatched is skipped terminally.
			// No cascade here: the loop itself settles every pending group, and
			// the shared reason is more accurate than an upstream-failure one.
			reason := fmt.Sprintf("run canceled: %v", ctx.Err())
			for _, name := range names {
				gr := runs[name]
				if !gr.state.Terminal() && gr.state != StateRunning {
					logger.Warn("Skipping group.", "group", name, "reason", reason)
					markTerminal(gr, result.SkippedGroupResult(gr.group, reason))
				}
			}
			ctxDone = nil
		}
	}

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

func stateFor(status result.GroupStatus) State {
	switch status {
	case result.GroupSucceeded:
		return StateSucceeded
	case result.GroupFailed:
		return StateFailed
	default:
		return StateSkipped
	}
}
