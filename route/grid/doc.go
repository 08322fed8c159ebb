// Package grid provides the immutable cost grid the crucible solver searches.
//
// A grid is a rectangle of non-negative integer entry costs addressed by
// (column, row). Grids are usually parsed from text where each line is a row
// and each character is a single decimal digit:
//
//	2413432311323
//	3215453535623
//	3255245654254
//
// Usage:
//
//	g, err := grid.Parse(input)
//	if err != nil {
//		log.Fatal(err) // wraps grid.ErrMalformedGrid
//	}
//
//	cost, ok := g.CostAt(grid.Cell{X: 3, Y: 1})
//	if !ok {
//		// out of bounds
//	}
//
// A CostGrid is never mutated after construction, so a single instance can be
// shared by concurrent searches.
package grid
