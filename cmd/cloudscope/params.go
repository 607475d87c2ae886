package main

import (
	"github.com/matsen/cloudscope/internal/config"
	"github.com/matsen/cloudscope/internal/loader"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/spf13/cobra"
)

// genFlags are the generation flags shared by generate, stream, viz and
// stats. Flags the user did not set fall back to the loaded config.
type genFlags struct {
	nodes     int
	edgeProb  float64
	chunkSize int
	seed      uint64
}

func (f *genFlags) register(cmd *cobra.Command, withChunkSize bool) {
	cmd.Flags().IntVarP(&f.nodes, "nodes", "n", topology.DefaultNodeCount, "Number of nodes to generate")
	cmd.Flags().Float64VarP(&f.edgeProb, "edge-prob", "p", topology.DefaultEdgeProbability, "Probability that a candidate pair is connected")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed for reproducible output (default: random)")
	if withChunkSize {
		cmd.Flags().IntVar(&f.chunkSize, "chunk-size", topology.DefaultChunkSize, "Nodes per streamed chunk")
	}
}

// genParams is the resolved generation request.
type genParams struct {
	Nodes           int
	EdgeProbability float64
	ChunkSize       int
	Seed            *uint64
}

func (f *genFlags) resolve(cmd *cobra.Command, c *config.Config) genParams {
	p := genParams{
		Nodes:           c.Generation.Nodes,
		EdgeProbability: c.Generation.EdgeProbability,
		ChunkSize:       c.Generation.ChunkSize,
		Seed:            c.Generation.Seed,
	}
	flags := cmd.Flags()
	if flags.Changed("nodes") {
		p.Nodes = f.nodes
	}
	if flags.Changed("edge-prob") {
		p.EdgeProbability = f.edgeProb
	}
	if flags.Changed("chunk-size") {
		p.ChunkSize = f.chunkSize
	}
	if flags.Changed("seed") {
		seed := f.seed
		p.Seed = &seed
	}
	return p
}

func (p genParams) generator() *topology.Generator {
	if p.Seed == nil {
		return topology.NewGenerator()
	}
	return topology.NewGenerator(topology.WithSource(topology.NewSource(*p.Seed)))
}

func (p genParams) request() loader.Request {
	return loader.Request{
		NodeCount:       p.Nodes,
		EdgeProbability: p.EdgeProbability,
		ChunkSize:       p.ChunkSize,
	}
}
