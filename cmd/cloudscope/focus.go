package main

import (
	"github.com/matsen/cloudscope/internal/viewer"
	"github.com/spf13/cobra"
)

var (
	focusX        float64
	focusY        float64
	focusDistance float64
)

func init() {
	focusCmd.Flags().Float64Var(&focusX, "x", 0, "Rendered x position of the node")
	focusCmd.Flags().Float64Var(&focusY, "y", 0, "Rendered y position of the node")
	focusCmd.Flags().Float64Var(&focusDistance, "distance", viewer.FocusDistance, "Extra distance along the ray from the origin")
	rootCmd.AddCommand(focusCmd)
}

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Compute the camera target for a selected node",
	Long: `Compute where the camera moves when a node at (x, y) is selected: the
point pushed further out along the ray from the origin through the node.
A node at the origin is focused on directly.

Examples:
  cloudscope focus --x 3 --y 4
  cloudscope focus --x 100 --y 0 --distance 10 --human`,
	RunE: runFocus,
}

// FocusResult is the response for the focus command.
type FocusResult struct {
	Position viewer.Point `json:"position"`
	Target   viewer.Point `json:"target"`
	Zoom     float64      `json:"zoom"`
}

func runFocus(_ *cobra.Command, _ []string) error {
	pos := viewer.Point{X: focusX, Y: focusY}
	result := FocusResult{
		Position: pos,
		Target:   viewer.FocusTarget(pos, focusDistance),
		Zoom:     viewer.FocusZoom,
	}

	if humanOutput {
		outputHuman("(%g, %g) -> (%g, %g), zoom x%g\n", pos.X, pos.Y, result.Target.X, result.Target.Y, result.Zoom)
		return nil
	}
	return outputJSON(result)
}
