// Package engine finds the cheapest route for a crucible across a cost grid.
//
// The crucible cannot stop or reverse, and how long it may travel in a
// straight line is limited by a Policy. The search graph node is therefore
// not just a cell but a State: cell, heading and the number of consecutive
// moves made along that heading. Two policies are built in:
//
//   - CappedPolicy: at most 3 moves in a straight line
//   - MinimumCommitPolicy: at least 4 moves before turning, at most 10
//
// Entering a cell costs that cell's value; the start cell is free.
//
// Usage:
//
//	g, _ := grid.Parse(input)
//	path, err := engine.FindBestPath(g, grid.Cell{}, g.BottomRight(), engine.CappedPolicy)
//	if errors.Is(err, engine.ErrUnreachable) {
//		// no legal route
//	}
//	fmt.Println(path.Cost)
//
// The end cell is accepted the first time it is reached, whatever the run
// length at that point.
package engine
