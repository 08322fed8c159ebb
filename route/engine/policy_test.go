package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

func TestCappedPolicy(t *testing.T) {
	tests := []struct {
		name     string
		heading  Heading
		run      int
		expected []Heading
	}{
		{"start takes anything", Down, 0, []Heading{Up, Down, Left, Right}},
		{"run 1 straight or turn", Right, 1, []Heading{Right, Up, Down}},
		{"run 2 straight or turn", Up, 2, []Heading{Up, Left, Right}},
		{"run 3 must turn", Left, 3, []Heading{Up, Down}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ElementsMatch(t, test.expected, CappedPolicy(test.heading, test.run))
		})
	}
}

func TestMinimumCommitPolicy(t *testing.T) {
	tests := []struct {
		name     string
		heading  Heading
		run      int
		expected []Heading
	}{
		{"start takes anything", Down, 0, []Heading{Up, Down, Left, Right}},
		{"run 1 straight only", Right, 1, []Heading{Right}},
		{"run 3 straight only", Down, 3, []Heading{Down}},
		{"run 4 may turn", Down, 4, []Heading{Down, Left, Right}},
		{"run 9 may continue", Left, 9, []Heading{Left, Up, Down}},
		{"run 10 must turn", Left, 10, []Heading{Up, Down}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ElementsMatch(t, test.expected, MinimumCommitPolicy(test.heading, test.run))
		})
	}
}

func TestPolicies_NeverReverse(t *testing.T) {
	for _, r := range Regimes() {
		for _, h := range Headings {
			for run := 1; run <= 12; run++ {
				assert.NotContains(t, r.Policy(h, run), h.Opposite(), "%s allows reversing %s at run %d", r.Name, h, run)
			}
		}
	}
}

func TestCapped_CustomLimit(t *testing.T) {
	g, err := grid.Parse("11111")
	require.NoError(t, err)

	_, err = FindBestPath(g, grid.Cell{}, g.BottomRight(), Capped(3))
	assert.ErrorIs(t, err, ErrUnreachable)

	cost, err := MinCost(g, grid.Cell{}, g.BottomRight(), Capped(4))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestHeading(t *testing.T) {
	origin := grid.Cell{X: 5, Y: 5}
	tests := []struct {
		heading  Heading
		opposite Heading
		step     grid.Cell
		glyph    byte
		name     string
	}{
		{Up, Down, grid.Cell{X: 5, Y: 4}, '^', "up"},
		{Down, Up, grid.Cell{X: 5, Y: 6}, 'v', "down"},
		{Left, Right, grid.Cell{X: 4, Y: 5}, '<', "left"},
		{Right, Left, grid.Cell{X: 6, Y: 5}, '>', "right"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.opposite, test.heading.Opposite())
			assert.Equal(t, test.step, test.heading.Step(origin))
			assert.Equal(t, test.glyph, test.heading.Glyph())
			assert.Equal(t, test.name, test.heading.String())

			parsed, err := ParseHeading(string(test.glyph))
			require.NoError(t, err)
			assert.Equal(t, test.heading, parsed)

			text, err := test.heading.MarshalText()
			require.NoError(t, err)
			var back Heading
			require.NoError(t, back.UnmarshalText(text))
			assert.Equal(t, test.heading, back)
		})
	}

	_, err := ParseHeading("sideways")
	assert.Error(t, err)
}

func TestLookupRegime(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"capped", RegimeCapped},
		{"CAPPED", RegimeCapped},
		{"part1", RegimeCapped},
		{"minimum-commit", RegimeMinimumCommit},
		{" part2 ", RegimeMinimumCommit},
		{"ultra", RegimeMinimumCommit},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			r, err := LookupRegime(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, r.Name)
			assert.NotNil(t, r.Policy)
		})
	}

	_, err := LookupRegime("hovercraft")
	assert.ErrorIs(t, err, ErrUnknownRegime)
}

func TestRegimes_ReturnsCopy(t *testing.T) {
	list := Regimes()
	require.Len(t, list, 2)
	list[0].Name = "changed"
	assert.Equal(t, RegimeCapped, Regimes()[0].Name)
}
