package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/matsen/cloudscope/internal/topology"
	"github.com/spf13/cobra"
)

var checkFrom string

func init() {
	checkCmd.Flags().StringVar(&checkFrom, "from", "-", "NDJSON chunk file to check (- for stdin)")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a streamed chunk file",
	Long: `Verify the integrity of an NDJSON chunk file written by 'cloudscope stream'.

Reports chunks that do not start where the previous one ended, duplicate
node ids, self loops, edges whose endpoints are missing, and edges outside
the locality window. Exits with code 3 if any issue is found.

Examples:
  cloudscope stream --nodes 2000 | cloudscope check
  cloudscope check --from topology.ndjson --human`,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status string       `json:"status"`
	Chunks int          `json:"chunks"`
	Nodes  int          `json:"nodes"`
	Edges  int          `json:"edges"`
	Issues []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

var errCheckFailed = errors.New("check found issues")

func runCheck(cmd *cobra.Command, _ []string) error {
	in, err := openInput(checkFrom)
	if err != nil {
		return err
	}
	defer in.Close()

	result, err := checkChunks(in)
	if err != nil {
		return err
	}

	if humanOutput {
		outputHuman("%d chunks, %d nodes, %d edges\n", result.Chunks, result.Nodes, result.Edges)
		for _, issue := range result.Issues {
			switch {
			case issue.ID != "":
				outputHuman("  %s: %s\n", issue.Type, issue.ID)
			case issue.SourceID != "":
				outputHuman("  %s: %s -> %s\n", issue.Type, issue.SourceID, issue.TargetID)
			default:
				outputHuman("  %s: %s\n", issue.Type, issue.Reason)
			}
		}
		if len(result.Issues) == 0 {
			outputHuman("OK\n")
		}
	} else if err := outputJSON(result); err != nil {
		return err
	}

	if len(result.Issues) > 0 {
		return fmt.Errorf("%w: %w (%d)", errInvalidInput, errCheckFailed, len(result.Issues))
	}
	return nil
}

// checkChunks reads every chunk without rejecting any, so that all defects
// of a damaged file are reported at once.
func checkChunks(r io.Reader) (CheckResult, error) {
	dec := topology.NewChunkDecoder(r)
	result := CheckResult{Issues: []CheckIssue{}}

	var all topology.Snapshot
	complete := false
	for {
		c, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return CheckResult{}, fmt.Errorf("%w: %w", errInvalidInput, err)
		}
		result.Chunks++

		if complete {
			result.Issues = append(result.Issues, CheckIssue{
				Type:   "chunk_after_done",
				Reason: fmt.Sprintf("chunk %d follows the final chunk", result.Chunks),
			})
		}
		if c.Start != len(all.Nodes) {
			result.Issues = append(result.Issues, CheckIssue{
				Type:   "chunk_out_of_order",
				Reason: fmt.Sprintf("chunk %d starts at %d, expected %d", result.Chunks, c.Start, len(all.Nodes)),
			})
		}
		all.Nodes = append(all.Nodes, c.Nodes...)
		all.Edges = append(all.Edges, c.Edges...)
		complete = complete || c.Done
	}

	result.Nodes = len(all.Nodes)
	result.Edges = len(all.Edges)

	if result.Chunks > 0 && !complete {
		result.Issues = append(result.Issues, CheckIssue{Type: "incomplete", Reason: "no chunk is marked done"})
	}

	var verr *topology.ValidationError
	if err := all.Validate(); errors.As(err, &verr) {
		for _, p := range verr.Problems {
			result.Issues = append(result.Issues, CheckIssue{
				Type:     p.Kind,
				ID:       p.NodeID,
				SourceID: p.Source,
				TargetID: p.Target,
			})
		}
	}
	for _, e := range topology.CheckLocality(all.Edges, topology.LocalityWindow) {
		result.Issues = append(result.Issues, CheckIssue{
			Type:     "outside_locality_window",
			SourceID: e.Source,
			TargetID: e.Target,
		})
	}

	result.Status = "ok"
	if len(result.Issues) > 0 {
		result.Status = "issues_found"
	}
	return result, nil
}
