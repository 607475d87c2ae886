package topology

import (
	"context"
	"fmt"
	"slices"
)

// ChunkFunc receives each chunk as soon as its node range is complete.
// Returning an error stops the generation.
type ChunkFunc func(Chunk) error

// GenerateStreaming produces nodeCount nodes in ranges of chunkSize,
// delivering each range to onChunk before moving on, and returns the full
// snapshot once the last range is delivered.
//
// Edges are limited to a forward locality window: the pair (i, j) is tested
// only when 0 < j-i <= LocalityWindow. Each edge is emitted in the chunk that
// contains its target, so its source has always been delivered already.
//
// The generator yields between ranges and checks ctx there. A canceled ctx
// ends the run with an error wrapping ErrCanceled and ctx.Err().
func (g *Generator) GenerateStreaming(ctx context.Context, nodeCount int, edgeProbability float64, chunkSize int, onChunk ChunkFunc) (Snapshot, error) {
	if err := ValidateStreamingInput(nodeCount, edgeProbability, chunkSize); err != nil {
		return Snapshot{}, err
	}
	if onChunk == nil {
		onChunk = func(Chunk) error { return nil }
	}

	s := sampler{src: g.src}
	all := Snapshot{
		Nodes: []Node{},
		Edges: []Edge{},
	}

	if nodeCount == 0 {
		if err := checkCanceled(ctx); err != nil {
			return Snapshot{}, err
		}
		if err := onChunk(Chunk{Start: 0, Nodes: []Node{}, Edges: []Edge{}, Done: true}); err != nil {
			return Snapshot{}, fmt.Errorf("delivering chunk 0: %w", err)
		}
		return all, nil
	}

	for start := 0; start < nodeCount; start += chunkSize {
		if err := checkCanceled(ctx); err != nil {
			return Snapshot{}, err
		}

		end := min(start+chunkSize, nodeCount)
		all.Nodes = slices.Grow(all.Nodes, end-start)
		for i := start; i < end; i++ {
			all.Nodes = append(all.Nodes, s.node(i))
		}

		edgeStart := len(all.Edges)
		for i := max(0, start-LocalityWindow); i < end-1; i++ {
			for j := max(i+1, start); j <= min(i+LocalityWindow, end-1); j++ {
				if s.bernoulli(edgeProbability) {
					all.Edges = append(all.Edges, Edge{
						Source:   all.Nodes[i].ID,
						Target:   all.Nodes[j].ID,
						Protocol: s.protocol(),
					})
				}
			}
		}

		chunk := Chunk{
			Start: start,
			Nodes: all.Nodes[start:end:end],
			Edges: all.Edges[edgeStart:len(all.Edges):len(all.Edges)],
			Done:  end == nodeCount,
		}
		if err := onChunk(chunk); err != nil {
			return Snapshot{}, fmt.Errorf("delivering chunk at %d: %w", start, err)
		}

		if !chunk.Done {
			g.yield()
		}
	}

	return all, nil
}

func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}
