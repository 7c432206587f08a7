package result

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convoy-build/convoy/internal/config"
)

// IncompleteRunError reports a Finalize call before every group reached a
// terminal state. This is a programmer error: correct scheduler usage never
// triggers it.
type IncompleteRunError struct {
	Missing []string
}

func (e *IncompleteRunError) Error() string {
	return fmt.Sprintf("run not complete: no terminal result for groups: %s", strings.Join(e.Missing, ", "))
}

// Aggregator collects group results as they become terminal and produces the
// run's single immutable summary. Record is safe under concurrent writers.
type Aggregator struct {
	mu sync.Mutex

	runID     string
	startedAt time.Time
	// expected maps every loaded group name to its artifact count so
	// Finalize can prove aggregation completeness.
	expected     map[string]int
	failureLimit int

	recorded map[string]*GroupResult
	order    []string
}

// NewAggregator prepares an aggregator for one run over the given plan.
func NewAggregator(plan *config.Plan) *Aggregator {
	expected := make(map[string]int, len(plan.Groups))
	for _, g := range plan.Groups {
		expected[g.Name] = len(g.Artifacts)
	}
	return &Aggregator{
		runID:        uuid.NewString(),
		startedAt:    time.Now(),
		expected:     expected,
		failureLimit: plan.Settings.SummaryFailureLimit,
		recorded:     make(map[string]*GroupResult, len(plan.Groups)),
	}
}

// RunID returns the identifier assigned to this run.
func (ag *Aggregator) RunID() string {
	return ag.runID
}

// Record appends one terminal group result. It is called exactly once per
// group; a duplicate or unknown group, or a non-terminal status, indicates a
// scheduler bug.
func (ag *Aggregator) Record(gr *GroupResult) error {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	count, known := ag.expected[gr.Name]
	if !known {
		return fmt.Errorf("result recorded for unknown group %q", gr.Name)
	}
	if _, dup := ag.recorded[gr.Name]; dup {
		return fmt.Errorf("result recorded twice for group %q", gr.Name)
	}
	switch gr.Status {
	case GroupSucceeded, GroupFailed, GroupSkipped:
	default:
		return fmt.Errorf("non-terminal status %q recorded for group %q", gr.Status, gr.Name)
	}
	if len(gr.Artifacts) != count {
		return fmt.Errorf("group %q recorded %d artifact results, plan has %d", gr.Name, len(gr.Artifacts), count)
	}

	ag.recorded[gr.Name] = gr
	ag.order = append(ag.order, gr.Name)
	return nil
}

// Finalize computes the terminal RunSummary. Valid only after every group has
// been recorded; otherwise it returns an *IncompleteRunError.
func (ag *Aggregator) Finalize() (*RunSummary, error) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	var missing []string
	for name := range ag.expected {
		if _, ok := ag.recorded[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &IncompleteRunError{Missing: missing}
	}

	summary := &RunSummary{
		RunID:     ag.runID,
		StartedAt: ag.startedAt,
		Duration:  time.Since(ag.startedAt),
	}

	// Groups appear in recording order so the summary mirrors the run.
	for _, name := range ag.order {
		gr := ag.recorded[name]
		summary.Groups = append(summary.Groups, *gr)

		switch gr.Status {
		case GroupSucceeded:
			summary.Counts.GroupsSucceeded++
		case GroupFailed:
			summary.Counts.GroupsFailed++
		case GroupSkipped:
			summary.Counts.GroupsSkipped++
		}

		for _, ar := range gr.Artifacts {
			summary.Counts.Artifacts++
			switch ar.Status {
			case StatusSucceeded:
				summary.Counts.Succeeded++
				if ar.CacheHit {
					summary.Counts.CacheHits++
				}
			case StatusFailed:
				summary.Counts.Failed++
				if len(summary.Failures) < ag.failureLimit {
					summary.Failures = append(summary.Failures, Failure{
						Group:      gr.Name,
						ArtifactID: ar.ArtifactID,
						Reason:     ar.Reason,
					})
				}
			case StatusSkipped:
				summary.Counts.Skipped++
			}
		}
	}

	return summary, nil
}
