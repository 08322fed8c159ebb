// Package validate checks puzzle files before they are served. It checks:
//   - file structure (JSON, YAML or a raw digit grid) and required fields
//   - grid shape and that every cell is a digit
//   - that the start and end cells lie inside the grid
//   - reachability of the end under every movement regime
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
)

// Result captures the outcome of validating a single file. Errors make the
// file invalid; Notes are informational.
type Result struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *Result) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// File loads and validates one puzzle file
func File(ctx context.Context, path string) Result {
	result := Result{
		File:  filepath.Base(path),
		Valid: true,
	}

	p, err := puzzle.Load(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	g, err := p.Grid()
	if err != nil {
		result.fail("%v", err)
		return result
	}
	start, end := p.Endpoints(g)

	result.note("✓ Grid: %dx%d, cell costs %d-%d", g.Width(), g.Height(), g.MinCost(), g.MaxCost())
	if start == end {
		result.note("Start and end are the same cell %s", start)
	}

	reached := 0
	for _, regime := range engine.Regimes() {
		path, err := engine.Search(ctx, g, start, end, regime.Policy)
		switch {
		case errors.Is(err, engine.ErrUnreachable):
			result.note("%s: end %s unreachable from %s", regime.Name, end, start)
		case err != nil:
			result.fail("%s: search failed: %v", regime.Name, err)
			return result
		default:
			reached++
			result.note("✓ %s: cost %d in %d moves", regime.Name, path.Cost, len(path.Steps))
		}
	}

	if reached == 0 {
		result.fail("Reachability failure: end %s is unreachable under every regime", end)
	}

	return result
}

// Dir validates every puzzle file in dir, sorted by file name
func Dir(ctx context.Context, dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(puzzle.Extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, File(ctx, filepath.Join(dir, entry.Name())))
	}

	return results, nil
}

// Report prints a concise report and returns true when every file is valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, n := range result.Notes {
				fmt.Fprintln(w, "  "+n)
			}
			continue
		}

		fmt.Fprintln(w, "❌ INVALID")
		allValid = false
		for _, e := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+e)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No puzzle files found")
	case allValid:
		fmt.Fprintln(w, "✅ All puzzles are valid!")
	default:
		fmt.Fprintln(w, "❌ Some puzzles have errors")
	}
	return allValid
}
