package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

const exampleLayout = `2413432311323
3215453535623
3255245654254
3446585845452
4546657867536
1438598798454
4457876987766
3637877979653
4654967986887
4564679986453
1224686865563
2546548887735
4322674655533`

const lopsidedLayout = `111111111111
999999999991
999999999991
999999999991
999999999991`

func mustParse(t *testing.T, text string) *grid.CostGrid {
	t.Helper()
	g, err := grid.Parse(text)
	require.NoError(t, err)
	return g
}

func TestFindBestPath_KnownCosts(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		policy   Policy
		expected int
	}{
		{"capped 2x2 ones", "11\n11", CappedPolicy, 2},
		{"capped single row", "9111", CappedPolicy, 3},
		{"capped example", exampleLayout, CappedPolicy, 102},
		{"minimum commit single row", "11111", MinimumCommitPolicy, 4},
		{"single cell", "7", CappedPolicy, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := mustParse(t, test.layout)
			start := grid.Cell{X: 0, Y: 0}

			path, err := FindBestPath(g, start, g.BottomRight(), test.policy)
			require.NoError(t, err)
			assert.Equal(t, test.expected, path.Cost)
			assert.Equal(t, g.BottomRight(), path.End(start))
			assert.NoError(t, path.Validate(g, start, test.policy))
		})
	}
}

func TestFindBestPath_MinimumCommitExamples(t *testing.T) {
	// the goal is accepted on first pop whatever the run length
	tests := []struct {
		name     string
		layout   string
		expected int
	}{
		{"example", exampleLayout, 94},
		{"lopsided", lopsidedLayout, 47},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := mustParse(t, test.layout)
			start := grid.Cell{X: 0, Y: 0}

			path, err := FindBestPath(g, start, g.BottomRight(), MinimumCommitPolicy)
			require.NoError(t, err)
			assert.Equal(t, test.expected, path.Cost)
			assert.NoError(t, path.Validate(g, start, MinimumCommitPolicy))
		})
	}
}

func TestFindBestPath_Unreachable(t *testing.T) {
	tests := []struct {
		name   string
		layout string
		end    grid.Cell
		policy Policy
	}{
		{"capped run too long", "11111", grid.Cell{X: 4, Y: 0}, CappedPolicy},
		{"minimum commit no room", "11\n11", grid.Cell{X: 1, Y: 1}, MinimumCommitPolicy},
		{"end outside grid", "11\n11", grid.Cell{X: 5, Y: 5}, CappedPolicy},
		{"end negative", "11\n11", grid.Cell{X: -1, Y: 0}, CappedPolicy},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := mustParse(t, test.layout)

			path, err := FindBestPath(g, grid.Cell{}, test.end, test.policy)
			require.ErrorIs(t, err, ErrUnreachable)
			assert.Nil(t, path)

			_, err = MinCost(g, grid.Cell{}, test.end, test.policy)
			assert.ErrorIs(t, err, ErrUnreachable)
		})
	}
}

func TestFindBestPath_StartOutsideGrid(t *testing.T) {
	g := mustParse(t, "11\n11")
	_, err := FindBestPath(g, grid.Cell{X: 3, Y: 0}, grid.Cell{X: 1, Y: 1}, CappedPolicy)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFindBestPath_ArbitraryEndpoints(t *testing.T) {
	g := mustParse(t, "19999\n11111\n99991")
	start := grid.Cell{X: 0, Y: 0}
	end := grid.Cell{X: 4, Y: 2}

	path, err := FindBestPath(g, start, end, CappedPolicy)
	require.NoError(t, err)
	assert.NoError(t, path.Validate(g, start, CappedPolicy))
	assert.Equal(t, end, path.End(start))

	reverse, err := FindBestPath(g, end, start, CappedPolicy)
	require.NoError(t, err)
	assert.NoError(t, reverse.Validate(g, end, CappedPolicy))
}

func TestFindBestPath_NoReversal(t *testing.T) {
	g := mustParse(t, exampleLayout)
	for _, r := range Regimes() {
		t.Run(r.Name, func(t *testing.T) {
			path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), r.Policy)
			require.NoError(t, err)

			for i := 1; i < len(path.Steps); i++ {
				assert.NotEqual(t, path.Steps[i-1].Heading.Opposite(), path.Steps[i].Heading, "reversal at step %d", i+1)
			}
		})
	}
}

// runs splits a path into the lengths of its straight segments
func runs(steps []Step) []int {
	var out []int
	for i, step := range steps {
		if i == 0 || step.Heading != steps[i-1].Heading {
			out = append(out, 0)
		}
		out[len(out)-1]++
	}
	return out
}

func TestFindBestPath_CappedRuns(t *testing.T) {
	g := mustParse(t, exampleLayout)
	path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), CappedPolicy)
	require.NoError(t, err)

	for _, run := range runs(path.Steps) {
		assert.LessOrEqual(t, run, 3)
	}
}

func TestFindBestPath_CappedTwoByTwoTurnsOnce(t *testing.T) {
	g := mustParse(t, "11\n11")
	path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), CappedPolicy)
	require.NoError(t, err)

	assert.Equal(t, 2, path.Cost)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, []int{1, 1}, runs(path.Steps))
}

func TestFindBestPath_MinimumCommitRuns(t *testing.T) {
	for _, layout := range []string{exampleLayout, lopsidedLayout} {
		g := mustParse(t, layout)
		path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), MinimumCommitPolicy)
		require.NoError(t, err)

		segments := runs(path.Steps)
		require.NotEmpty(t, segments)
		for i, run := range segments {
			assert.LessOrEqual(t, run, 10)
			if i < len(segments)-1 {
				assert.GreaterOrEqual(t, run, 4, "turned after %d moves", run)
			}
		}
	}
}

func TestFindBestPath_Monotonicity(t *testing.T) {
	g := mustParse(t, exampleLayout)
	for _, r := range Regimes() {
		t.Run(r.Name, func(t *testing.T) {
			base, err := MinCost(g, grid.Cell{}, g.BottomRight(), r.Policy)
			require.NoError(t, err)

			for _, c := range []grid.Cell{{X: 1, Y: 0}, {X: 6, Y: 6}, {X: 12, Y: 11}, {X: 0, Y: 12}} {
				cost, _ := g.CostAt(c)
				cheaper, err := g.WithCost(c, cost-1)
				require.NoError(t, err)

				got, err := MinCost(cheaper, grid.Cell{}, g.BottomRight(), r.Policy)
				require.NoError(t, err)
				assert.LessOrEqual(t, got, base, "lowering %s raised the cost", c)
			}
		})
	}
}

func TestFindBestPath_ZeroCostCells(t *testing.T) {
	g := mustParse(t, "1000\n9990\n9990")
	path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), CappedPolicy)
	require.NoError(t, err)
	assert.Equal(t, 0, path.Cost)
	assert.NoError(t, path.Validate(g, grid.Cell{}, CappedPolicy))
}

func TestFindBestPath_ZeroCostStart(t *testing.T) {
	zeroStart := "0" + exampleLayout[1:]
	tests := []struct {
		name     string
		layout   string
		policy   Policy
		expected int
	}{
		{"capped example", zeroStart, CappedPolicy, 102},
		{"minimum commit example", zeroStart, MinimumCommitPolicy, 94},
		{"capped detour", "0999\n1999\n1111", CappedPolicy, 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := mustParse(t, test.layout)
			require.Equal(t, 0, g.MinCost())

			path, err := FindBestPath(g, grid.Cell{}, g.BottomRight(), test.policy)
			require.NoError(t, err)
			assert.Equal(t, test.expected, path.Cost)
			assert.NoError(t, path.Validate(g, grid.Cell{}, test.policy))
		})
	}
}

func TestHeuristic_ZeroCostStartKeepsEstimate(t *testing.T) {
	g := mustParse(t, "0999\n1999\n1111")
	estimate := heuristic(g, grid.Cell{}, g.BottomRight())
	assert.Equal(t, 4, estimate(grid.Cell{}))
	assert.Equal(t, 0, estimate(g.BottomRight()))

	g = mustParse(t, "1999\n1909\n1111")
	estimate = heuristic(g, grid.Cell{}, g.BottomRight())
	assert.Equal(t, 0, estimate(grid.Cell{}))
}

func TestFindBestPath_StartIsEnd(t *testing.T) {
	g := mustParse(t, "55\n55")
	path, err := FindBestPath(g, grid.Cell{X: 1, Y: 1}, grid.Cell{X: 1, Y: 1}, MinimumCommitPolicy)
	require.NoError(t, err)
	assert.Equal(t, 0, path.Cost)
	assert.Empty(t, path.Steps)
}

func TestSearch_Cancelled(t *testing.T) {
	// a zero-cost cell disables the distance estimate, so the search
	// settles far more than one check interval before reaching the end
	row := strings.Repeat("1", 60)
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = row
	}
	lines[30] = "0" + row[1:]
	g, err := grid.ParseLines(lines)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Search(ctx, g, grid.Cell{}, g.BottomRight(), CappedPolicy)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPathValidate_RejectsTampering(t *testing.T) {
	g := mustParse(t, "123\n456\n789")
	start := grid.Cell{}

	path, err := FindBestPath(g, start, g.BottomRight(), CappedPolicy)
	require.NoError(t, err)
	require.NoError(t, path.Validate(g, start, CappedPolicy))

	t.Run("wrong cost", func(t *testing.T) {
		bad := *path
		bad.Cost++
		assert.ErrorIs(t, bad.Validate(g, start, CappedPolicy), ErrInvalidPath)
	})

	t.Run("reversal", func(t *testing.T) {
		bad := Path{
			Cost: 2 + 1,
			Steps: []Step{
				{Cell: grid.Cell{X: 1, Y: 0}, Heading: Right},
				{Cell: grid.Cell{X: 0, Y: 0}, Heading: Left},
			},
		}
		assert.ErrorIs(t, bad.Validate(g, start, CappedPolicy), ErrInvalidPath)
	})

	t.Run("jump", func(t *testing.T) {
		bad := Path{
			Cost:  3,
			Steps: []Step{{Cell: grid.Cell{X: 2, Y: 0}, Heading: Right}},
		}
		assert.ErrorIs(t, bad.Validate(g, start, CappedPolicy), ErrInvalidPath)
	})

	t.Run("leaves grid", func(t *testing.T) {
		bad := Path{
			Steps: []Step{{Cell: grid.Cell{X: 0, Y: -1}, Heading: Up}},
		}
		assert.ErrorIs(t, bad.Validate(g, start, CappedPolicy), ErrInvalidPath)
	})

	t.Run("commit too short", func(t *testing.T) {
		bad := Path{
			Cost: 2 + 5,
			Steps: []Step{
				{Cell: grid.Cell{X: 1, Y: 0}, Heading: Right},
				{Cell: grid.Cell{X: 1, Y: 1}, Heading: Down},
			},
		}
		assert.NoError(t, bad.Validate(g, start, CappedPolicy))
		assert.ErrorIs(t, bad.Validate(g, start, MinimumCommitPolicy), ErrInvalidPath)
	})
}
