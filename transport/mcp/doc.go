// Package mcp exposes the route solver to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so an agent sees the same sessions and cached results as any
// other API consumer.
//
// Tools:
//   - create_session: load a catalogue puzzle or an inline layout
//   - list_sessions, get_session: inspect sessions and cached results
//   - solve: solve one regime, or all of them
//   - describe_cell: cost of a cell and the routes through it
//   - list_puzzles, list_regimes: the catalogue
//   - solver_instructions: puzzle rules
//
// An unreachable end is reported as an ordinary tool result, not a tool
// error.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	mux.Handle("/mcp", client.Handler())
package mcp
