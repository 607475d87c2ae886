package topology

import (
	"math"
	"runtime"
)

const (
	// OneShotNodeLimit is the largest node count the O(n²) one-shot mode is
	// meant for. Larger requests should use GenerateStreaming.
	OneShotNodeLimit = 500

	// LocalityWindow is how many forward neighbors each node is tested
	// against in streaming mode.
	LocalityWindow = 8

	// DefaultChunkSize is the node range size used by streaming loads.
	DefaultChunkSize = 250

	// DefaultMaxNodes caps the node count a host accepts per request.
	DefaultMaxNodes = 100_000

	// Default size and density of the initial one-shot graph.
	DefaultNodeCount       = 200
	DefaultEdgeProbability = 0.02
)

// DefaultStreamingEdgeProbability returns the edge density used for large
// streaming loads when none is given. Very large graphs get a sparser density.
func DefaultStreamingEdgeProbability(nodeCount int) float64 {
	if nodeCount >= 2000 {
		return 0.0008
	}
	return 0.001
}

// YieldFunc suspends the generator between chunks so other work can run.
type YieldFunc func()

// Generator produces random topologies. A Generator is not safe for
// concurrent use because its Source usually is not.
type Generator struct {
	src   Source
	yield YieldFunc
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource sets the random source. The default is unseeded.
func WithSource(src Source) Option {
	return func(g *Generator) {
		g.src = src
	}
}

// WithYield sets the function called at every chunk boundary.
func WithYield(fn YieldFunc) Option {
	return func(g *Generator) {
		g.yield = fn
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		src:   NewRandomSource(),
		yield: runtime.Gosched,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.yield == nil {
		g.yield = func() {}
	}
	return g
}

// Generate produces a snapshot with nodeCount nodes where every pair (i, j),
// i < j, is connected with probability edgeProbability.
//
// The pair loop is quadratic; see OneShotNodeLimit.
func Generate(nodeCount int, edgeProbability float64) (Snapshot, error) {
	return NewGenerator().Generate(nodeCount, edgeProbability)
}

// Generate produces a one-shot snapshot using the generator's source.
func (g *Generator) Generate(nodeCount int, edgeProbability float64) (Snapshot, error) {
	if err := validateGraphInput(nodeCount, edgeProbability); err != nil {
		return Snapshot{}, err
	}

	s := sampler{src: g.src}
	nodes := make([]Node, nodeCount)
	for i := range nodes {
		nodes[i] = s.node(i)
	}

	var edges []Edge
	for i := 0; i < nodeCount; i++ {
		for j := i + 1; j < nodeCount; j++ {
			if s.bernoulli(edgeProbability) {
				edges = append(edges, Edge{
					Source:   nodes[i].ID,
					Target:   nodes[j].ID,
					Protocol: s.protocol(),
				})
			}
		}
	}

	return Snapshot{Nodes: nodes, Edges: nonNilEdges(edges)}, nil
}

// ValidateStreamingInput checks streaming parameters without generating anything.
func ValidateStreamingInput(nodeCount int, edgeProbability float64, chunkSize int) error {
	if err := validateGraphInput(nodeCount, edgeProbability); err != nil {
		return err
	}
	if chunkSize < 1 {
		return inputError(ErrChunkSize, "got %d", chunkSize)
	}
	return nil
}

func validateGraphInput(nodeCount int, edgeProbability float64) error {
	if nodeCount < 0 {
		return inputError(ErrNegativeNodeCount, "got %d", nodeCount)
	}
	if math.IsNaN(edgeProbability) || edgeProbability < 0 || edgeProbability > 1 {
		return inputError(ErrEdgeProbability, "got %v", edgeProbability)
	}
	return nil
}

// ChunkCount returns how many chunks a streaming generation will emit.
func ChunkCount(nodeCount, chunkSize int) int {
	if nodeCount <= 0 || chunkSize < 1 {
		return 1
	}
	return (nodeCount + chunkSize - 1) / chunkSize
}

func nonNilEdges(edges []Edge) []Edge {
	if edges == nil {
		return []Edge{}
	}
	return edges
}
