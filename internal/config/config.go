// Package config handles cloudscope configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/cloudscope/internal/topology"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/cloudscope/config.yml.
type Config struct {
	Generation Generation `yaml:"generation"`
	Stream     Stream     `yaml:"stream"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

// Generation holds topology generation defaults.
type Generation struct {
	Nodes           int     `yaml:"nodes"`
	EdgeProbability float64 `yaml:"edge_probability"`
	ChunkSize       int     `yaml:"chunk_size"`
	Seed            *uint64 `yaml:"seed,omitempty"` // nil means unseeded
}

// Stream holds streaming load settings.
type Stream struct {
	MaxChunksPerSecond float64 `yaml:"max_chunks_per_second"` // 0 = unlimited
}

// Server holds HTTP host settings.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxNodes        int           `yaml:"max_nodes"` // per request
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "cloudscope"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Generation: Generation{
			Nodes:           topology.DefaultNodeCount,
			EdgeProbability: topology.DefaultEdgeProbability,
			ChunkSize:       topology.DefaultChunkSize,
		},
		Server: Server{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 5 * time.Second,
			MaxNodes:        topology.DefaultMaxNodes,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cloudscope/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads the config file at path over the defaults, then applies
// CLOUDSCOPE_* environment overrides. An empty path means Path().
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if path != "" {
		if err := cfg.readFile(ExpandPath(path)); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Validate checks that every setting is within range.
func (c *Config) Validate() error {
	g := c.Generation
	if g.Nodes < 0 {
		return fmt.Errorf("%w: generation.nodes must be >= 0, got %d", ErrInvalidConfig, g.Nodes)
	}
	if g.EdgeProbability < 0 || g.EdgeProbability > 1 {
		return fmt.Errorf("%w: generation.edge_probability must be within [0, 1], got %v", ErrInvalidConfig, g.EdgeProbability)
	}
	if g.ChunkSize < 1 {
		return fmt.Errorf("%w: generation.chunk_size must be >= 1, got %d", ErrInvalidConfig, g.ChunkSize)
	}
	if c.Stream.MaxChunksPerSecond < 0 {
		return fmt.Errorf("%w: stream.max_chunks_per_second must be >= 0, got %v", ErrInvalidConfig, c.Stream.MaxChunksPerSecond)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}
	if c.Server.MaxNodes < 1 {
		return fmt.Errorf("%w: server.max_nodes must be >= 1, got %d", ErrInvalidConfig, c.Server.MaxNodes)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive, got %s", ErrInvalidConfig, c.Server.ShutdownTimeout)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level must be debug, info, warn or error, got %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
