package main

import (
	"fmt"
	"sort"

	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/matsen/cloudscope/internal/index"
	"github.com/matsen/cloudscope/internal/loader"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/spf13/cobra"
)

var (
	statsFlags genFlags
	statsTop   int
	statsNode  string
)

func init() {
	statsFlags.register(statsCmd, true)
	statsCmd.Flags().IntVar(&statsTop, "top", 5, "Number of most expensive nodes to list")
	statsCmd.Flags().StringVar(&statsNode, "node", "", "Also show one node with its connection counts")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a generated topology",
	Long: `Generate a topology, index it in an in-memory SQLite database and print
counts by kind, region and protocol, average utilization and the most
expensive nodes.

Examples:
  cloudscope stats --nodes 1000 --seed 7
  cloudscope stats --top 10 --node node-3 --human`,
	RunE: runStats,
}

// StatsResult is the response for the stats command.
type StatsResult struct {
	Summary index.Summary     `json:"summary"`
	Top     []topology.Node   `json:"top"`
	Node    *index.NodeDetail `json:"node,omitempty"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsTop < 0 {
		return fmt.Errorf("--top must be >= 0, got %d", statsTop)
	}

	p := statsFlags.resolve(cmd, cfg)
	l := loader.New(
		loader.WithGenerator(p.generator()),
		loader.WithLogger(ctxlog.FromContext(cmd.Context())),
	)
	res, err := l.Load(cmd.Context(), p.request())
	if err != nil {
		return err
	}

	result, err := buildStats(res.Snapshot, statsTop, statsNode)
	if err != nil {
		return err
	}

	if humanOutput {
		printStatsHuman(result)
		return nil
	}
	return outputJSON(result)
}

// buildStats indexes snap and runs the summary queries.
func buildStats(snap topology.Snapshot, top int, nodeID string) (StatsResult, error) {
	db, err := index.Open()
	if err != nil {
		return StatsResult{}, err
	}
	defer db.Close()

	if err := db.Rebuild(snap); err != nil {
		return StatsResult{}, err
	}

	var result StatsResult
	if result.Summary, err = db.Summary(); err != nil {
		return StatsResult{}, err
	}
	if result.Top, err = db.TopByCost(top); err != nil {
		return StatsResult{}, err
	}
	if nodeID != "" {
		detail, err := db.Node(nodeID)
		if err != nil {
			return StatsResult{}, err
		}
		if detail == nil {
			return StatsResult{}, fmt.Errorf("node %s not found", nodeID)
		}
		result.Node = detail
	}
	return result, nil
}

func printStatsHuman(r StatsResult) {
	s := r.Summary
	outputHuman("Nodes: %d  Edges: %d  Total cost: %d\n", s.Nodes, s.Edges, s.TotalCost)
	outputHuman("Avg CPU: %.1f%%  Avg mem: %.1f%%\n", s.AvgCPU, s.AvgMem)

	printCounts("By kind", s.ByKind)
	printCounts("By region", s.ByRegion)
	printCounts("By protocol", s.ByProtocol)

	if len(r.Top) > 0 {
		outputHuman("\nMost expensive:\n")
		for i, n := range r.Top {
			outputHuman("%2d. %-12s %-10s %-11s %d\n", i+1, n.ID, n.Kind, n.Region, n.Cost)
		}
	}
	if n := r.Node; n != nil {
		outputHuman("\n%s (%s, %s)\n", n.ID, n.Kind, n.Region)
		outputHuman("  Cost: %d  CPU: %.1f%%  Mem: %.1f%%\n", n.Cost, n.Metrics.CPU, n.Metrics.Mem)
		outputHuman("  In: %d  Out: %d\n", n.InDegree, n.OutDegree)
	}
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outputHuman("\n%s:\n", title)
	for _, k := range keys {
		outputHuman("  %-14s %d\n", k, counts[k])
	}
}
