// Package topology defines the infrastructure graph model and the random
// generators that produce it.
package topology

import (
	"strconv"
	"strings"
)

// Kind is the resource type of a node.
type Kind string

// Node kinds.
const (
	KindVM           Kind = "vm"
	KindContainer    Kind = "container"
	KindDatabase     Kind = "db"
	KindLoadBalancer Kind = "load-balancer"
	KindStorage      Kind = "storage"
)

// Kinds lists every node kind in sampling order.
var Kinds = []Kind{KindVM, KindContainer, KindDatabase, KindLoadBalancer, KindStorage}

// Regions lists every deployment region in sampling order.
var Regions = []string{"eu-west-1", "us-east-1", "ap-south-1"}

// Protocol is the relation type carried by an edge.
type Protocol string

// Edge protocols.
const (
	ProtocolHTTP     Protocol = "HTTP"
	ProtocolHTTPS    Protocol = "HTTPS"
	ProtocolDB       Protocol = "DB"
	ProtocolInternal Protocol = "Internal"
)

// Protocols lists every edge protocol in sampling order.
var Protocols = []Protocol{ProtocolHTTP, ProtocolHTTPS, ProtocolDB, ProtocolInternal}

// MaxCost is the upper bound of a node's sampled cost.
const MaxCost = 1000

// Metrics holds utilization percentages in [0, 100].
type Metrics struct {
	CPU float64 `json:"cpu"`
	Mem float64 `json:"mem"`
}

// Node is a single infrastructure resource.
type Node struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Region  string  `json:"region"`
	Cost    int     `json:"cost"`
	Metrics Metrics `json:"metrics"`
}

// Edge is a relation between two nodes. Source is always generated before Target.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Protocol Protocol `json:"protocol,omitempty"`
}

// Snapshot is the node/edge collection at a point in time.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// IsEmpty returns true if the snapshot has no nodes.
func (s Snapshot) IsEmpty() bool {
	return len(s.Nodes) == 0
}

// Chunk is a partial snapshot emitted during streaming generation.
// Start is the index of the first node in Nodes.
type Chunk struct {
	Start int    `json:"start"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Done  bool   `json:"done"`
}

// End returns the index one past the last node in the chunk.
func (c Chunk) End() int {
	return c.Start + len(c.Nodes)
}

const nodeIDPrefix = "node-"

// NodeID returns the id of the node created at the given index.
func NodeID(index int) string {
	return nodeIDPrefix + strconv.Itoa(index)
}

// ParseNodeID returns the creation index encoded in a node id.
func ParseNodeID(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, nodeIDPrefix)
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 || NodeID(index) != id {
		return 0, false
	}
	return index, true
}
