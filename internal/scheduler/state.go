package scheduler

import "fmt"

// State is the lifecycle state of one group inside the scheduler.
//
//	Pending → Ready → Running → {Succeeded, Failed, Skipped}
//
// Terminal states never transition further.
type State int

const (
	StatePending State = iota
	StateReady
	StateRunning
	StateSucceeded
	StateFailed
	StateSkipped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// Successful reports whether the state satisfies a dependent's `needs` edge.
func (s State) Successful() bool {
	return s == StateSucceeded
}

// nameHeap is a min-heap of group names, ascending lexicographically, so the
// dispatch order among simultaneously ready groups is deterministic.
type nameHeap []string

func (h nameHeap) Len() int            { return len(h) }
func (h nameHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h nameHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nameHeap) Push(x interface{}) { *h = append(*h, x.(string)) }
func (h *nameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
