// Package accumulator merges streamed chunks into one growing snapshot.
package accumulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/matsen/cloudscope/internal/topology"
)

// Merge errors. A rejected chunk leaves the accumulator unchanged.
var (
	ErrOutOfOrder   = errors.New("chunk out of order")
	ErrComplete     = errors.New("accumulator already received the final chunk")
	ErrDanglingEdge = errors.New("edge references a node not yet merged")
)

// Accumulator owns the canonical snapshot for one load operation.
//
// Nodes and edges are append-only between resets, so Snapshot can hand out
// capacity-clipped views of the backing arrays without copying: later merges
// never write inside a view that was already returned.
type Accumulator struct {
	mu    sync.RWMutex
	nodes []topology.Node
	edges []topology.Edge
	ids   map[string]struct{}
	done  bool
}

// New creates an empty accumulator.
func New() *Accumulator {
	a := &Accumulator{}
	a.Reset()
	return a
}

// Reset discards the current snapshot.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nodes = []topology.Node{}
	a.edges = []topology.Edge{}
	a.ids = make(map[string]struct{})
	a.done = false
}

// Merge appends a chunk's nodes and edges in arrival order.
// The chunk must start exactly where the previous one ended.
func (a *Accumulator) Merge(c topology.Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return ErrComplete
	}
	if c.Start != len(a.nodes) {
		return fmt.Errorf("%w: chunk starts at %d, expected %d", ErrOutOfOrder, c.Start, len(a.nodes))
	}

	incoming := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if _, ok := a.ids[n.ID]; ok {
			return fmt.Errorf("%w: node %s already merged", ErrOutOfOrder, n.ID)
		}
		incoming[n.ID] = struct{}{}
	}
	for _, e := range c.Edges {
		if !a.knownLocked(e.Source, incoming) || !a.knownLocked(e.Target, incoming) {
			return fmt.Errorf("%w: %s->%s", ErrDanglingEdge, e.Source, e.Target)
		}
	}

	a.nodes = append(a.nodes, c.Nodes...)
	a.edges = append(a.edges, c.Edges...)
	for id := range incoming {
		a.ids[id] = struct{}{}
	}
	a.done = c.Done
	return nil
}

func (a *Accumulator) knownLocked(id string, incoming map[string]struct{}) bool {
	if _, ok := a.ids[id]; ok {
		return true
	}
	_, ok := incoming[id]
	return ok
}

// Snapshot returns the current accumulated graph. The returned slices must
// not be modified; they stay valid after later merges and resets.
func (a *Accumulator) Snapshot() topology.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return topology.Snapshot{
		Nodes: a.nodes[:len(a.nodes):len(a.nodes)],
		Edges: a.edges[:len(a.edges):len(a.edges)],
	}
}

// Len returns the number of merged nodes and edges.
func (a *Accumulator) Len() (nodes, edges int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes), len(a.edges)
}

// Done reports whether the final chunk has been merged.
func (a *Accumulator) Done() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}
