package server

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/matsen/cloudscope/internal/topology"
)

// errBadParam marks query parameter errors, which map to 400.
var errBadParam = errors.New("bad parameter")

// loadParams are the generation parameters shared by the graph, stream and
// stats endpoints.
type loadParams struct {
	Nodes           int
	EdgeProbability float64
	ChunkSize       int
	Seed            *uint64
}

// parseLoadParams reads nodes, edgeProbability, chunkSize and seed. A
// missing edgeProbability defaults by size: the dense one-shot density up to
// the one-shot ceiling, the sparse streaming density above it.
func (s *Server) parseLoadParams(q url.Values) (loadParams, error) {
	p := loadParams{
		Nodes:     s.opts.Nodes,
		ChunkSize: s.opts.ChunkSize,
		Seed:      s.opts.Seed,
	}

	var err error
	if p.Nodes, err = intParam(q, "nodes", p.Nodes); err != nil {
		return loadParams{}, err
	}
	if p.Nodes > s.opts.MaxNodes {
		return loadParams{}, fmt.Errorf("%w: nodes=%d exceeds the limit of %d", errBadParam, p.Nodes, s.opts.MaxNodes)
	}
	if p.ChunkSize, err = intParam(q, "chunkSize", p.ChunkSize); err != nil {
		return loadParams{}, err
	}

	defaultP := topology.DefaultEdgeProbability
	if p.Nodes > topology.OneShotNodeLimit {
		defaultP = topology.DefaultStreamingEdgeProbability(p.Nodes)
	}
	if p.EdgeProbability, err = floatParam(q, "edgeProbability", defaultP); err != nil {
		return loadParams{}, err
	}

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return loadParams{}, fmt.Errorf("%w: seed=%q", errBadParam, v)
		}
		p.Seed = &seed
	}
	return p, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, v)
	}
	return n, nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, v)
	}
	return f, nil
}

func (p loadParams) generator() *topology.Generator {
	if p.Seed == nil {
		return topology.NewGenerator()
	}
	return topology.NewGenerator(topology.WithSource(topology.NewSource(*p.Seed)))
}
