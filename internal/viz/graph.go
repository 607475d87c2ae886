package viz

import (
	"github.com/matsen/cloudscope/internal/topology"
)

// FromSnapshot builds the visualization graph for a snapshot.
func FromSnapshot(snap topology.Snapshot) *GraphData {
	return &GraphData{
		Nodes: newNodes(snap.Nodes),
		Edges: newEdges(snap.Edges),
	}
}

func newNodes(nodes []topology.Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, newNode(n))
	}
	return out
}

func newEdges(edges []topology.Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{
			Source:   e.Source,
			Target:   e.Target,
			Protocol: string(e.Protocol),
		})
	}
	return out
}

// newNode creates a visualization node from a resource record.
func newNode(n topology.Node) Node {
	return Node{
		ID:     n.ID,
		Kind:   string(n.Kind),
		Region: n.Region,
		Label:  n.ID,
		Cost:   n.Cost,
		CPU:    n.Metrics.CPU,
		Mem:    n.Metrics.Mem,
	}
}

// ToTopologyNode converts a rendered node back to the resource record, as
// needed when the rendering engine reports a selection.
func (n Node) ToTopologyNode() topology.Node {
	return topology.Node{
		ID:      n.ID,
		Kind:    topology.Kind(n.Kind),
		Region:  n.Region,
		Cost:    n.Cost,
		Metrics: topology.Metrics{CPU: n.CPU, Mem: n.Mem},
	}
}
