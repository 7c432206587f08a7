package result

import (
	"encoding/json"
	"io"
	"time"
)

// Counts holds the per-outcome totals of one run.
type Counts struct {
	Artifacts int `json:"artifacts"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	CacheHits int `json:"cache_hits"`

	GroupsSucceeded int `json:"groups_succeeded"`
	GroupsFailed    int `json:"groups_failed"`
	GroupsSkipped   int `json:"groups_skipped"`
}

// Failure is one actionable failure detail surfaced at the top of a summary.
type Failure struct {
	Group      string `json:"group"`
	ArtifactID string `json:"artifact_id"`
	Reason     string `json:"reason"`
}

// RunSummary is the terminal, read-only output of one orchestration run.
// Every artifact of the loaded plan appears in exactly one group's result.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ms"`
	Counts    Counts        `json:"counts"`
	Failures  []Failure     `json:"failures,omitempty"`
	Groups    []GroupResult `json:"groups"`
}

// Failed reports whether at least one group failed, which maps to process
// exit code 1.
func (s *RunSummary) Failed() bool {
	return s.Counts.GroupsFailed > 0
}

// WriteJSON renders the summary as an indented JSON document.
func (s *RunSummary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
