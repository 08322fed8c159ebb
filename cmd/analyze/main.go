// Command analyze prints quick, human-readable statistics about the puzzle
// files in a directory: dimensions, the spread of cell costs, and the optimal
// cost and search effort under each movement regime.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print statistics for every puzzle in a directory",
		ArgsUsage: "[FILE|DIR ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "puzzles",
				Usage:   "puzzle directory used when no arguments are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			targets := cmd.Args().Slice()
			if len(targets) == 0 {
				targets = []string{cmd.String("dir")}
			}

			files, err := collect(targets)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no puzzle files found")
			}

			for _, file := range files {
				fmt.Fprintf(cmd.Root().Writer, "\n=== Analyzing %s ===\n", filepath.Base(file))
				if err := analyzeFile(ctx, cmd.Root().Writer, file); err != nil {
					fmt.Fprintf(cmd.Root().Writer, "Error: %v\n", err)
				}
			}
			return nil
		},
	}
}

// collect expands directories into the puzzle files they contain
func collect(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}

		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && slices.Contains(puzzle.Extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
				files = append(files, filepath.Join(target, entry.Name()))
			}
		}
	}
	return files, nil
}

func analyzeFile(ctx context.Context, w io.Writer, path string) error {
	p, err := puzzle.Load(path)
	if err != nil {
		return err
	}
	g, err := p.Grid()
	if err != nil {
		return err
	}
	start, end := p.Endpoints(g)

	fmt.Fprintf(w, "Name: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(w, "Grid Size: %d x %d (%d cells)\n", g.Width(), g.Height(), g.Width()*g.Height())
	fmt.Fprintf(w, "Cell Costs: %d-%d\n", g.MinCost(), g.MaxCost())
	fmt.Fprintf(w, "Cost Histogram: %s\n", histogram(g))
	fmt.Fprintf(w, "Start: %s  End: %s  Manhattan: %d\n", start, end, manhattan(start, end))

	for _, regime := range engine.Regimes() {
		began := time.Now()
		path, err := engine.Search(ctx, g, start, end, regime.Policy)
		switch {
		case errors.Is(err, engine.ErrUnreachable):
			fmt.Fprintf(w, "  %-15s unreachable\n", regime.Name+":")
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "  %-15s cost %d, %d moves, %d states expanded (%s)\n",
				regime.Name+":", path.Cost, len(path.Steps), path.Expanded, time.Since(began).Round(time.Microsecond))
		}
	}
	return nil
}

// histogram counts cells per cost digit, skipping absent digits
func histogram(g *grid.CostGrid) string {
	var counts [10]int
	for _, row := range g.Rows() {
		for _, ch := range row {
			counts[ch-'0']++
		}
	}

	var parts []string
	for cost, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d:%d", cost, n))
		}
	}
	return strings.Join(parts, " ")
}

func manhattan(a, b grid.Cell) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
