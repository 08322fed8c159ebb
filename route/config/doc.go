// Package config manages the puzzle catalogue: a directory of puzzle files
// loaded on demand and cached in memory.
//
// Puzzles are addressed by ID, the file name without its extension. Files may
// be JSON or YAML puzzle definitions or raw digit grids (.txt):
//
//	puzzles/
//	  example.json
//	  harbor.yaml
//	  input.txt
//
// Usage:
//
//	mgr, err := config.NewManager("puzzles")
//	if err != nil {
//		return err
//	}
//	p, err := mgr.LoadPuzzle("harbor")
//
// Watch keeps the cache in step with edits made while the server runs.
package config
