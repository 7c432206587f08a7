// Package testutil provides shared test fixtures: scripted collaborator
// fakes, a thread-safe log buffer, and an end-to-end plan harness.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/gate"
	"github.com/convoy-build/convoy/internal/registry"
	"github.com/convoy-build/convoy/internal/runner"
)

// ScriptedBuilder is a Builder fake that replays a per-artifact script of
// outcomes and records call timing and concurrency for assertions.
type ScriptedBuilder struct {
	mu sync.Mutex

	// Script maps artifact id to the sequence of outcomes to return. Once a
	// script is exhausted its last outcome repeats. Artifacts without a
	// script succeed.
	Script map[string][]runner.Outcome
	// Delay is how long each Execute call takes.
	Delay time.Duration

	calls     map[string]int
	starts    []time.Time
	order     []string
	active    int
	maxActive int
}

// Execute implements runner.Builder.
func (b *ScriptedBuilder) Execute(ctx context.Context, a *config.Artifact) runner.Outcome {
	b.mu.Lock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	n := b.calls[a.ID]
	b.calls[a.ID] = n + 1
	b.starts = append(b.starts, time.Now())
	b.order = append(b.order, a.ID)
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}()

	if b.Delay > 0 {
		select {
		case <-ctx.Done():
			return runner.Transient(ctx.Err().Error())
		case <-time.After(b.Delay):
		}
	}

	script, ok := b.Script[a.ID]
	if !ok || len(script) == 0 {
		return runner.Success("ref://" + a.TargetName)
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n]
}

// Calls returns how many times the artifact was executed.
func (b *ScriptedBuilder) Calls(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[id]
}

// TotalCalls returns the number of Execute invocations across all artifacts.
func (b *ScriptedBuilder) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// MaxActive returns the highest observed number of concurrent Execute calls.
func (b *ScriptedBuilder) MaxActive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive
}

// Order returns the artifact ids in the order their operations started.
func (b *ScriptedBuilder) Order() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

// Starts returns the recorded operation start times in order.
func (b *ScriptedBuilder) Starts() []time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Time(nil), b.starts...)
}

// StaticChecker is a Checker fake returning fixed verdicts per artifact id.
type StaticChecker struct {
	Verdicts map[string][]gate.Verdict
	Err      error
}

// Check implements gate.Checker.
func (c *StaticChecker) Check(_ context.Context, _ string, a *config.Artifact) ([]gate.Verdict, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Verdicts[a.ID], nil
}

// Module registers a scripted builder and static checker under fixed names so
// harness plans can select them like real modules.
type Module struct {
	Builder *ScriptedBuilder
	Checker *StaticChecker
}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	if m.Builder != nil {
		r.RegisterBuilder("scripted", m.Builder)
	}
	if m.Checker != nil {
		r.RegisterChecker("static", m.Checker)
	}
}
