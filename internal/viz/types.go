// Package viz renders topologies with Cytoscape.js and translates viewer
// calls into events for a browser-side rendering engine.
package viz

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a cloud resource as the rendering engine sees it.
type Node struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Region string `json:"region"`

	// Display
	Label string `json:"label"`

	// Details panel
	Cost int     `json:"cost"`
	CPU  float64 `json:"cpu"`
	Mem  float64 `json:"mem"`
}

// Edge is a connection between two resources.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Protocol string `json:"protocol,omitempty"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
