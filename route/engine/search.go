package engine

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

var (
	// ErrUnreachable means no policy-compliant path joins start and end
	ErrUnreachable = errors.New("end is unreachable")

	// ErrInvalidPath is returned by Path.Validate
	ErrInvalidPath = errors.New("invalid path")
)

// cancelCheckInterval is how many settled states pass between context checks
const cancelCheckInterval = 1024

// Step is one move of a path: the cell entered and the heading used to enter it
type Step struct {
	Cell    grid.Cell `json:"cell"`
	Heading Heading   `json:"heading"`
}

// Path is the result of a search. Steps excludes the start cell.
type Path struct {
	Cost     int    `json:"cost"`
	Steps    []Step `json:"steps"`
	Expanded int    `json:"expanded"`
}

// End returns the last cell of the path, or start when the path is empty
func (p *Path) End(start grid.Cell) grid.Cell {
	if len(p.Steps) == 0 {
		return start
	}
	return p.Steps[len(p.Steps)-1].Cell
}

// Validate replays the path from start and checks that every move is
// adjacent, inside g, permitted by policy, and that Cost equals the sum of
// the entered cells.
func (p *Path) Validate(g *grid.CostGrid, start grid.Cell, policy Policy) error {
	if !g.Contains(start) {
		return fmt.Errorf("%w: start %s is outside the grid", ErrInvalidPath, start)
	}

	cur := seed(start)
	total := 0
	for i, step := range p.Steps {
		if !allows(policy, cur, step.Heading) {
			return fmt.Errorf("%w: step %d moves %s from %s", ErrInvalidPath, i+1, step.Heading, cur)
		}
		next := cur.next(step.Heading)
		if next.Cell != step.Cell {
			return fmt.Errorf("%w: step %d enters %s, expected %s", ErrInvalidPath, i+1, step.Cell, next.Cell)
		}
		cost, ok := g.CostAt(step.Cell)
		if !ok {
			return fmt.Errorf("%w: step %d leaves the grid at %s", ErrInvalidPath, i+1, step.Cell)
		}
		total += cost
		cur = next
	}

	if total != p.Cost {
		return fmt.Errorf("%w: cost %d does not match walk sum %d", ErrInvalidPath, p.Cost, total)
	}
	return nil
}

// FindBestPath returns a minimum-cost path from start to end under policy
func FindBestPath(g *grid.CostGrid, start, end grid.Cell, policy Policy) (*Path, error) {
	return Search(context.Background(), g, start, end, policy)
}

// MinCost returns only the cost of the best path
func MinCost(g *grid.CostGrid, start, end grid.Cell, policy Policy) (int, error) {
	p, err := FindBestPath(g, start, end, policy)
	if err != nil {
		return 0, err
	}
	return p.Cost, nil
}

// record is the best known way into a state
type record struct {
	cost int
	from State
	root bool
}

// Search is FindBestPath with cancellation. The search is best-first on
// cost so far plus Manhattan distance to end. Stale frontier entries are
// skipped when popped rather than removed.
func Search(ctx context.Context, g *grid.CostGrid, start, end grid.Cell, policy Policy) (*Path, error) {
	if !g.Contains(start) {
		return nil, fmt.Errorf("%w: start %s is outside the %dx%d grid", ErrUnreachable, start, g.Width(), g.Height())
	}
	if !g.Contains(end) {
		return nil, fmt.Errorf("%w: end %s is outside the %dx%d grid", ErrUnreachable, end, g.Width(), g.Height())
	}

	estimate := heuristic(g, start, end)

	first := seed(start)
	best := map[State]record{first: {root: true}}
	open := &frontier{}
	heap.Push(open, &entry{state: first, cost: 0, priority: estimate(start)})

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*entry)
		if rec := best[current.state]; current.cost > rec.cost {
			continue
		}

		expanded++
		if expanded%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if current.state.Cell == end {
			return &Path{
				Cost:     current.cost,
				Steps:    reconstruct(best, current.state),
				Expanded: expanded,
			}, nil
		}

		for _, h := range policy(current.state.Heading, current.state.Run) {
			next := current.state.next(h)
			cost, ok := g.CostAt(next.Cell)
			if !ok {
				continue
			}
			tentative := current.cost + cost
			if rec, seen := best[next]; seen && tentative >= rec.cost {
				continue
			}
			best[next] = record{cost: tentative, from: current.state}
			heap.Push(open, &entry{state: next, cost: tentative, priority: tentative + estimate(next.Cell)})
		}
	}

	return nil, fmt.Errorf("%w: no path from %s to %s", ErrUnreachable, start, end)
}

// heuristic returns a lower bound on the cost still to pay from a cell.
// Manhattan distance is a lower bound when every cell costs at least 1. A
// zero-cost start is tolerated by giving up one step: any walk that
// re-enters start more than once pays for the loop in between.
// Other zero-cost cells disable the estimate.
func heuristic(g *grid.CostGrid, start, end grid.Cell) func(grid.Cell) int {
	weight, slack := 1, 0
	for y := 0; y < g.Height() && weight == 1; y++ {
		for x := 0; x < g.Width(); x++ {
			c := grid.Cell{X: x, Y: y}
			cost, _ := g.CostAt(c)
			if cost >= 1 {
				continue
			}
			if c != start {
				weight = 0
				break
			}
			slack = 1
		}
	}

	return func(c grid.Cell) int {
		d := weight*(abs(end.X-c.X)+abs(end.Y-c.Y)) - slack
		if d < 0 {
			return 0
		}
		return d
	}
}

// reconstruct follows back-pointers from goal to the seed state
func reconstruct(best map[State]record, goal State) []Step {
	var steps []Step
	for s := goal; !best[s].root; s = best[s].from {
		steps = append(steps, Step{Cell: s.Cell, Heading: s.Heading})
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type entry struct {
	state    State
	cost     int
	priority int
}

// frontier is a min-heap on priority; ties prefer the entry with more
// cost already paid, which is the one closer to end.
type frontier []*entry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].cost > f[j].cost
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*entry)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}
