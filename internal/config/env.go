package config

import (
	"fmt"
	"strconv"
)

// Environment variables that override file settings.
const (
	EnvNodes              = "CLOUDSCOPE_NODES"
	EnvEdgeProbability    = "CLOUDSCOPE_EDGE_PROBABILITY"
	EnvChunkSize          = "CLOUDSCOPE_CHUNK_SIZE"
	EnvSeed               = "CLOUDSCOPE_SEED"
	EnvAddr               = "CLOUDSCOPE_ADDR"
	EnvMaxNodes           = "CLOUDSCOPE_MAX_NODES"
	EnvLogLevel           = "CLOUDSCOPE_LOG_LEVEL"
	EnvLogFormat          = "CLOUDSCOPE_LOG_FORMAT"
	EnvMaxChunksPerSecond = "CLOUDSCOPE_MAX_CHUNKS_PER_SECOND"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvNodes); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvNodes, v, err)
		}
		c.Generation.Nodes = n
	}
	if v, ok := get(EnvEdgeProbability); ok {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvEdgeProbability, v, err)
		}
		c.Generation.EdgeProbability = p
	}
	if v, ok := get(EnvChunkSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvChunkSize, v, err)
		}
		c.Generation.ChunkSize = n
	}
	if v, ok := get(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return envError(EnvSeed, v, err)
		}
		c.Generation.Seed = &seed
	}
	if v, ok := get(EnvMaxChunksPerSecond); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvMaxChunksPerSecond, v, err)
		}
		c.Stream.MaxChunksPerSecond = r
	}
	if v, ok := get(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := get(EnvMaxNodes); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvMaxNodes, v, err)
		}
		c.Server.MaxNodes = n
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.Log.Format = v
	}
	return nil
}

func envError(key, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, value, err)
}
