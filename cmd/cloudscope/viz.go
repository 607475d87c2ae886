package main

import (
	"fmt"
	"os"

	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/matsen/cloudscope/internal/loader"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viz"
	"github.com/spf13/cobra"
)

var (
	vizFlags  genFlags
	vizOutput string
	vizLayout string
	vizTitle  string
	vizFrom   string
)

func init() {
	vizFlags.register(vizCmd, true)
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "Output file path (default: stdout)")
	vizCmd.Flags().StringVar(&vizLayout, "layout", "force", "Layout algorithm: force, circle, or grid")
	vizCmd.Flags().StringVar(&vizTitle, "title", "", "Page title")
	vizCmd.Flags().StringVar(&vizFrom, "from", "", "Render an NDJSON chunk file instead of generating (- for stdin)")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Generate topology visualization",
	Long: `Generate an interactive HTML visualization of a topology.

Nodes are colored by kind (vm, container, db, lb, storage) and edges by
protocol. Tapping a node shows its details and moves the camera to it.

Examples:
  # Generate a graph and write HTML to stdout
  cloudscope viz > graph.html

  # Render a larger streamed graph with a circular layout
  cloudscope viz --nodes 2000 --edge-prob 0.001 --layout circle --output graph.html

  # Render a chunk file written by 'cloudscope stream'
  cloudscope viz --from topology.ndjson --output graph.html`,
	RunE: runViz,
}

func runViz(cmd *cobra.Command, _ []string) error {
	// Validate the layout before spending time on generation.
	if err := viz.ValidateLayout(vizLayout); err != nil {
		return err
	}

	var snap topology.Snapshot
	if vizFrom != "" {
		in, err := openInput(vizFrom)
		if err != nil {
			return err
		}
		defer in.Close()

		cs, err := mergeChunkStream(in)
		if err != nil {
			return err
		}
		if !cs.Complete {
			ctxlog.FromContext(cmd.Context()).Warn("chunk stream ended before the final chunk",
				"chunks", cs.Chunks, "nodes", len(cs.Snapshot.Nodes))
		}
		snap = cs.Snapshot
	} else {
		p := vizFlags.resolve(cmd, cfg)
		l := loader.New(
			loader.WithGenerator(p.generator()),
			loader.WithLogger(ctxlog.FromContext(cmd.Context())),
		)
		res, err := l.Load(cmd.Context(), p.request())
		if err != nil {
			return err
		}
		snap = res.Snapshot
	}

	html, err := viz.GenerateHTML(viz.FromSnapshot(snap), viz.HTMLOptions{
		Layout: vizLayout,
		Title:  vizTitle,
	})
	if err != nil {
		return fmt.Errorf("generating HTML: %w", err)
	}

	if vizOutput == "" {
		fmt.Print(html)
		return nil
	}
	if err := os.WriteFile(vizOutput, []byte(html), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if humanOutput {
		outputHuman("Visualization written to %s\n", vizOutput)
		return nil
	}
	return outputJSON(OutputResponse{Output: vizOutput})
}
