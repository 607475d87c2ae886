package topology

import (
	"math"
	"math/rand/v2"
)

// Source supplies uniformly distributed values in [0, 1).
//
// *rand.Rand from math/rand/v2 satisfies Source. A Source is not required to
// be safe for concurrent use.
type Source interface {
	Float64() float64
}

// pcgStream is the second PCG word; the seed supplies the first.
const pcgStream = 0x9e3779b97f4a7c15

// NewSource returns a deterministic Source. Equal seeds yield equal sequences.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// NewRandomSource returns an unseeded Source.
func NewRandomSource() Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// sampler draws the per-node and per-edge attributes from a Source.
type sampler struct {
	src Source
}

func (s sampler) index(n int) int {
	i := int(s.src.Float64() * float64(n))
	// Guard against a Source that returns exactly 1.
	if i >= n {
		i = n - 1
	}
	return i
}

func (s sampler) bernoulli(p float64) bool {
	return s.src.Float64() < p
}

func (s sampler) node(index int) Node {
	return Node{
		ID:     NodeID(index),
		Kind:   Kinds[s.index(len(Kinds))],
		Region: Regions[s.index(len(Regions))],
		Cost:   int(math.Round(s.src.Float64() * MaxCost)),
		Metrics: Metrics{
			CPU: s.src.Float64() * 100,
			Mem: s.src.Float64() * 100,
		},
	}
}

func (s sampler) protocol() Protocol {
	return Protocols[s.index(len(Protocols))]
}
