package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/convoy-build/convoy/internal/config"
)

// Graph is a collection of nodes and their dependencies, representing a DAG
// of groups. All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by group name.
	nodes map[string]*node
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// FromPlan builds a validated graph from a plan: one node per group, one edge
// per `needs` entry, with cycle detection applied. Errors are *ConfigError.
func FromPlan(plan *config.Plan) (*Graph, error) {
	g := New()
	for _, group := range plan.Groups {
		g.AddNode(group.Name)
	}
	for _, group := range plan.Groups {
		for _, need := range group.Needs {
			if err := g.AddEdge(need, group.Name); err != nil {
				return nil, config.NewConfigError(err)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, config.NewConfigError(err)
	}
	return g, nil
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &config.CyclicDependencyError{Cycle: []string{fromID, fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Dependencies returns a sorted slice of node IDs that the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	sort.Strings(deps)
	return deps, nil
}

// Dependents returns a sorted slice of node IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	dependents := make([]string, 0, len(n.dependents))
	for depID := range n.dependents {
		dependents = append(dependents, depID)
	}
	sort.Strings(dependents)
	return dependents, nil
}

// TransitiveDependents returns every node reachable downstream of id,
// in sorted order. Used by the fail-fast skip cascade.
func (g *Graph) TransitiveDependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	seen := make(map[string]bool)
	var walk func(n *node)
	walk = func(n *node) {
		for _, dep := range n.dependents {
			if !seen[dep.id] {
				seen[dep.id] = true
				walk(dep)
			}
		}
	}
	walk(start)

	out := make([]string, 0, len(seen))
	for depID := range seen {
		out = append(out, depID)
	}
	sort.Strings(out)
	return out, nil
}

// DetectCycles checks the graph for any cycles. It returns a
// *config.CyclicDependencyError naming the groups along the first cycle
// found, or nil if the graph is acyclic.
func (g *Graph) DetectCycles() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and known not to be part of a cycle.
	// temporary: currently in the recursion stack for this traversal.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// The node is already in the recursion stack: name the cycle from
			// its first occurrence on the stack back to itself.
			cycle := []string{n.id}
			for i := len(stack) - 1; i >= 0 && stack[i] != n.id; i-- {
				cycle = append([]string{stack[i]}, cycle...)
			}
			cycle = append([]string{n.id}, cycle...)
			return &config.CyclicDependencyError{Cycle: cycle}
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		// Iterate dependents in sorted order so the named cycle is stable.
		ids := make([]string, 0, len(n.dependents))
		for id := range n.dependents {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}

	return nil
}
