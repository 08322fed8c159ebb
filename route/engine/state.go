package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

// State is a node of the search graph. Run counts consecutive moves along
// Heading; a run of 0 only occurs at the start, where any heading is allowed.
type State struct {
	Cell    grid.Cell `json:"cell"`
	Heading Heading   `json:"heading"`
	Run     int       `json:"run"`
}

func (s State) String() string {
	return fmt.Sprintf("%s %s x%d", s.Cell, s.Heading, s.Run)
}

// next returns the state reached by moving along h
func (s State) next(h Heading) State {
	run := 1
	if h == s.Heading {
		run = s.Run + 1
	}
	return State{Cell: h.Step(s.Cell), Heading: h, Run: run}
}

// seed is the state every search starts from
func seed(start grid.Cell) State {
	return State{Cell: start, Heading: Down, Run: 0}
}
