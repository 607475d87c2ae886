package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matsen/cloudscope/internal/accumulator"
	"github.com/matsen/cloudscope/internal/topology"
)

// openInput opens path for reading; "-" means stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// chunkStream is a chunk file merged into one snapshot.
type chunkStream struct {
	Snapshot topology.Snapshot
	Chunks   int
	Complete bool // the final chunk was seen
}

// mergeChunkStream reads NDJSON chunks from r and merges them in order.
// A malformed line or a chunk that does not extend the graph is invalid input.
func mergeChunkStream(r io.Reader) (chunkStream, error) {
	dec := topology.NewChunkDecoder(r)
	acc := accumulator.New()

	var cs chunkStream
	for {
		c, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return chunkStream{}, fmt.Errorf("%w: %w", errInvalidInput, err)
		}
		if err := acc.Merge(c); err != nil {
			return chunkStream{}, fmt.Errorf("%w: chunk %d: %w", errInvalidInput, cs.Chunks+1, err)
		}
		cs.Chunks++
	}

	cs.Snapshot = acc.Snapshot()
	cs.Complete = acc.Done()
	return cs, nil
}
