// Package render draws solved routes for terminals and logs.
package render

import (
	"fmt"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
)

// Overlay returns the grid rows with every entered cell replaced by the
// arrow of the move that entered it. A nil path draws the bare grid.
func Overlay(g *grid.CostGrid, path *engine.Path) []string {
	rows := g.Rows()
	if path == nil {
		return rows
	}

	canvas := make([][]byte, len(rows))
	for y, row := range rows {
		canvas[y] = []byte(row)
	}
	for _, step := range path.Steps {
		if g.Contains(step.Cell) {
			canvas[step.Cell.Y][step.Cell.X] = step.Heading.Glyph()
		}
	}

	for y := range canvas {
		rows[y] = string(canvas[y])
	}
	return rows
}

// Summary is a one-line description of a solve
func Summary(regime string, path *engine.Path) string {
	if path == nil {
		return fmt.Sprintf("%s: unreachable", regime)
	}
	return fmt.Sprintf("%s: cost %d, %d moves, %d states expanded", regime, path.Cost, len(path.Steps), path.Expanded)
}
