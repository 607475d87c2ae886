package main

import (
	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/matsen/cloudscope/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live topology viewer",
	Long: `Serve the live viewer and its JSON API until interrupted.

Endpoints:
  GET  /                 live viewer page
  GET  /health           liveness check
  GET  /api/graph        one-shot graph (up to 500 nodes)
  GET  /api/stream       streamed load as NDJSON events
  POST /api/select       select a node and get the camera moves
  GET  /api/selection    currently selected node
  GET  /api/stats        summary of a generated graph

Examples:
  cloudscope serve
  cloudscope serve --addr :9000 --log-format json`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts := serverOptions()
	opts.Logger = ctxlog.FromContext(cmd.Context())
	return server.New(opts).Run(cmd.Context())
}

// serverOptions builds server options from the loaded config and flags.
func serverOptions() server.Options {
	opts := server.DefaultOptions()
	opts.Addr = cfg.Server.Addr
	opts.ShutdownTimeout = cfg.Server.ShutdownTimeout
	opts.MaxNodes = cfg.Server.MaxNodes
	opts.Nodes = cfg.Generation.Nodes
	opts.ChunkSize = cfg.Generation.ChunkSize
	opts.Seed = cfg.Generation.Seed
	opts.MaxChunksPerSecond = cfg.Stream.MaxChunksPerSecond
	opts.Live.InitialNodes = cfg.Generation.Nodes
	opts.Live.InitialEdgeProbability = cfg.Generation.EdgeProbability
	opts.Live.ChunkSize = cfg.Generation.ChunkSize
	if serveAddr != "" {
		opts.Addr = serveAddr
	}
	return opts
}
