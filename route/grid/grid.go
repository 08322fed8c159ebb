package grid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedGrid is wrapped by every construction failure
var ErrMalformedGrid = errors.New("malformed grid")

// Cell is a coordinate pair used as a lookup key
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// String renders the cell as (x,y)
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// CostGrid is an immutable rectangular array of entry costs
type CostGrid struct {
	costs  [][]int
	width  int
	height int
}

// New builds a grid from rows of costs. The input is copied.
func New(rows [][]int) (*CostGrid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: grid has no rows", ErrMalformedGrid)
	}

	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: row 1 is empty", ErrMalformedGrid)
	}

	costs := make([][]int, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformedGrid, y+1, len(row), width)
		}
		for x, cost := range row {
			if cost < 0 {
				return nil, fmt.Errorf("%w: negative cost %d at row %d, col %d", ErrMalformedGrid, cost, y+1, x+1)
			}
		}
		costs[y] = append([]int(nil), row...)
	}

	return &CostGrid{costs: costs, width: width, height: len(rows)}, nil
}

// Parse reads one row per line, one decimal digit per cell.
// CRLF line endings and trailing blank lines are accepted.
func Parse(text string) (*CostGrid, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return ParseLines(strings.Split(strings.TrimRight(text, "\n"), "\n"))
}

// ParseLines is Parse for input that is already split into rows
func ParseLines(lines []string) (*CostGrid, error) {
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return nil, fmt.Errorf("%w: grid has no rows", ErrMalformedGrid)
	}

	rows := make([][]int, len(lines))
	for y, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			return nil, fmt.Errorf("%w: row %d is empty", ErrMalformedGrid, y+1)
		}
		row := make([]int, 0, len(line))
		for x, char := range line {
			if char < '0' || char > '9' {
				return nil, fmt.Errorf("%w: invalid character %q at row %d, col %d", ErrMalformedGrid, char, y+1, x+1)
			}
			row = append(row, int(char-'0'))
		}
		rows[y] = row
	}

	return New(rows)
}

// CostAt returns the cost of entering c, or false when c is outside the grid
func (g *CostGrid) CostAt(c Cell) (int, bool) {
	if !g.Contains(c) {
		return 0, false
	}
	return g.costs[c.Y][c.X], true
}

// Contains reports whether c lies inside the grid
func (g *CostGrid) Contains(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// Width returns the number of columns
func (g *CostGrid) Width() int {
	return g.width
}

// Height returns the number of rows
func (g *CostGrid) Height() int {
	return g.height
}

// BottomRight returns the last cell of the last row
func (g *CostGrid) BottomRight() Cell {
	return Cell{X: g.width - 1, Y: g.height - 1}
}

// MinCost returns the cheapest entry cost in the grid
func (g *CostGrid) MinCost() int {
	minCost := g.costs[0][0]
	for _, row := range g.costs {
		for _, cost := range row {
			if cost < minCost {
				minCost = cost
			}
		}
	}
	return minCost
}

// MaxCost returns the most expensive entry cost in the grid
func (g *CostGrid) MaxCost() int {
	maxCost := g.costs[0][0]
	for _, row := range g.costs {
		for _, cost := range row {
			if cost > maxCost {
				maxCost = cost
			}
		}
	}
	return maxCost
}

// Rows renders the grid back into layout lines. Costs above 9 are clamped
// to the digit 9 since the text format only carries single digits.
func (g *CostGrid) Rows() []string {
	lines := make([]string, g.height)
	var b strings.Builder
	for y, row := range g.costs {
		b.Reset()
		for _, cost := range row {
			if cost > 9 {
				cost = 9
			}
			b.WriteByte(byte('0' + cost))
		}
		lines[y] = b.String()
	}
	return lines
}

// WithCost returns a copy of the grid with the cost of c replaced
func (g *CostGrid) WithCost(c Cell, cost int) (*CostGrid, error) {
	if !g.Contains(c) {
		return nil, fmt.Errorf("%w: cell %s is outside the %dx%d grid", ErrMalformedGrid, c, g.width, g.height)
	}
	rows := make([][]int, g.height)
	for y, row := range g.costs {
		rows[y] = append([]int(nil), row...)
	}
	rows[c.Y][c.X] = cost
	return New(rows)
}
