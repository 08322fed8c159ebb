package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
)

func TestOverlay(t *testing.T) {
	g, err := grid.Parse("123\n456\n789")
	require.NoError(t, err)

	path := &engine.Path{
		Cost: 2 + 3 + 6 + 9,
		Steps: []engine.Step{
			{Cell: grid.Cell{X: 1, Y: 0}, Heading: engine.Right},
			{Cell: grid.Cell{X: 2, Y: 0}, Heading: engine.Right},
			{Cell: grid.Cell{X: 2, Y: 1}, Heading: engine.Down},
			{Cell: grid.Cell{X: 2, Y: 2}, Heading: engine.Down},
		},
	}

	assert.Equal(t, []string{"1>>", "45v", "78v"}, Overlay(g, path))
	assert.Equal(t, []string{"123", "456", "789"}, Overlay(g, nil))
}

func TestOverlay_SolvedPath(t *testing.T) {
	g, err := grid.Parse("9111\n1111")
	require.NoError(t, err)

	path, err := engine.FindBestPath(g, grid.Cell{}, grid.Cell{X: 3, Y: 0}, engine.CappedPolicy)
	require.NoError(t, err)

	assert.Equal(t, []string{"9>>>", "1111"}, Overlay(g, path))
}

func TestSummary(t *testing.T) {
	path := &engine.Path{Cost: 102, Steps: make([]engine.Step, 26), Expanded: 400}
	assert.Equal(t, "capped: cost 102, 26 moves, 400 states expanded", Summary("capped", path))
	assert.Equal(t, "minimum-commit: unreachable", Summary("minimum-commit", nil))
}
