package topology

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// constSource always returns the same value.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func TestGenerate_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		nodes     int
		prob      float64
		wantNodes int
		wantEdges int
	}{
		{name: "no edges at probability 0", nodes: 5, prob: 0, wantNodes: 5, wantEdges: 0},
		{name: "all pairs at probability 1", nodes: 5, prob: 1, wantNodes: 5, wantEdges: 10},
		{name: "empty graph", nodes: 0, prob: 0.5, wantNodes: 0, wantEdges: 0},
		{name: "single node", nodes: 1, prob: 1, wantNodes: 1, wantEdges: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Generate(tt.nodes, tt.prob)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(snap.Nodes) != tt.wantNodes {
				t.Errorf("got %d nodes, want %d", len(snap.Nodes), tt.wantNodes)
			}
			if len(snap.Edges) != tt.wantEdges {
				t.Errorf("got %d edges, want %d", len(snap.Edges), tt.wantEdges)
			}
			if err := snap.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestGenerate_AllPairsInOrder(t *testing.T) {
	snap, err := NewGenerator(WithSource(NewSource(1))).Generate(4, 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := [][2]string{
		{"node-0", "node-1"}, {"node-0", "node-2"}, {"node-0", "node-3"},
		{"node-1", "node-2"}, {"node-1", "node-3"},
		{"node-2", "node-3"},
	}
	var got [][2]string
	for _, e := range snap.Edges {
		got = append(got, [2]string{e.Source, e.Target})
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edge pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_NodeAttributes(t *testing.T) {
	snap, err := NewGenerator(WithSource(NewSource(42))).Generate(300, 0.01)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	validKinds := make(map[Kind]bool)
	for _, k := range Kinds {
		validKinds[k] = true
	}
	validRegions := make(map[string]bool)
	for _, r := range Regions {
		validRegions[r] = true
	}
	validProtocols := make(map[Protocol]bool)
	for _, p := range Protocols {
		validProtocols[p] = true
	}

	for i, n := range snap.Nodes {
		if n.ID != NodeID(i) {
			t.Errorf("node %d has id %q, want %q", i, n.ID, NodeID(i))
		}
		if !validKinds[n.Kind] {
			t.Errorf("node %s has unknown kind %q", n.ID, n.Kind)
		}
		if !validRegions[n.Region] {
			t.Errorf("node %s has unknown region %q", n.ID, n.Region)
		}
		if n.Cost < 0 || n.Cost > MaxCost {
			t.Errorf("node %s cost %d out of range", n.ID, n.Cost)
		}
		if n.Metrics.CPU < 0 || n.Metrics.CPU >= 100 {
			t.Errorf("node %s cpu %v out of range", n.ID, n.Metrics.CPU)
		}
		if n.Metrics.Mem < 0 || n.Metrics.Mem >= 100 {
			t.Errorf("node %s mem %v out of range", n.ID, n.Metrics.Mem)
		}
	}
	for _, e := range snap.Edges {
		if !validProtocols[e.Protocol] {
			t.Errorf("edge %s->%s has unknown protocol %q", e.Source, e.Target, e.Protocol)
		}
	}
}

func TestGenerate_SeededIsReproducible(t *testing.T) {
	a, err := NewGenerator(WithSource(NewSource(7))).Generate(50, 0.1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := NewGenerator(WithSource(NewSource(7))).Generate(50, 0.1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different snapshots (-a +b):\n%s", diff)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		nodes   int
		prob    float64
		wantErr error
	}{
		{name: "negative node count", nodes: -1, prob: 0.5, wantErr: ErrNegativeNodeCount},
		{name: "negative probability", nodes: 5, prob: -0.1, wantErr: ErrEdgeProbability},
		{name: "probability above one", nodes: 5, prob: 1.5, wantErr: ErrEdgeProbability},
		{name: "NaN probability", nodes: 5, prob: math.NaN(), wantErr: ErrEdgeProbability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Generate(tt.nodes, tt.prob)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if !IsInvalidInput(err) {
				t.Errorf("IsInvalidInput(%v) = false, want true", err)
			}
			if len(snap.Nodes) != 0 || len(snap.Edges) != 0 {
				t.Errorf("expected no partial output, got %d nodes %d edges", len(snap.Nodes), len(snap.Edges))
			}
		})
	}
}

func TestSampler_SourceAtUpperBound(t *testing.T) {
	s := sampler{src: constSource(1)}
	n := s.node(3)
	if n.Kind != Kinds[len(Kinds)-1] {
		t.Errorf("Kind = %q, want %q", n.Kind, Kinds[len(Kinds)-1])
	}
	if n.Region != Regions[len(Regions)-1] {
		t.Errorf("Region = %q, want %q", n.Region, Regions[len(Regions)-1])
	}
	if n.Cost != MaxCost {
		t.Errorf("Cost = %d, want %d", n.Cost, MaxCost)
	}
}

func TestSampler_Zero(t *testing.T) {
	s := sampler{src: constSource(0)}
	n := s.node(0)
	want := Node{ID: "node-0", Kind: KindVM, Region: "eu-west-1", Cost: 0}
	if diff := cmp.Diff(want, n); diff != "" {
		t.Errorf("node mismatch (-want +got):\n%s", diff)
	}
	if !s.bernoulli(0.5) {
		t.Error("bernoulli(0.5) with draw 0 = false, want true")
	}
	if s.bernoulli(0) {
		t.Error("bernoulli(0) = true, want false")
	}
}

func TestParseNodeID(t *testing.T) {
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"node-0", 0, true},
		{"node-4999", 4999, true},
		{"node-", 0, false},
		{"node-07", 0, false},
		{"node--1", 0, false},
		{"vm-3", 0, false},
		{"node-3x", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := ParseNodeID(tt.id)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseNodeID(%q) = %d, %v; want %d, %v", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDefaultStreamingEdgeProbability(t *testing.T) {
	if got := DefaultStreamingEdgeProbability(1000); got != 0.001 {
		t.Errorf("DefaultStreamingEdgeProbability(1000) = %v, want 0.001", got)
	}
	if got := DefaultStreamingEdgeProbability(5000); got != 0.0008 {
		t.Errorf("DefaultStreamingEdgeProbability(5000) = %v, want 0.0008", got)
	}
}
