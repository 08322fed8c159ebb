// Package api provides the HTTP REST API for the crucible route solver.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session from a catalogue puzzle or an inline layout
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get one session with its cached results
//   - DELETE /api/sessions/{id} - Delete a session
//
// Solving:
//   - POST /api/sessions/{id}/solve - Solve one regime, or every regime when none is given
//   - GET /api/sessions/{id}/cells/{x}/{y} - Describe a cell and the routes through it
//
// Catalogue:
//   - GET /api/puzzles - List puzzles in the puzzle directory
//   - POST /api/puzzles - Save a puzzle
//   - GET /api/puzzles/{name} - Get one puzzle
//   - GET /api/regimes - List movement regimes
//
// Infrastructure:
//   - GET /metrics - Prometheus metrics
//   - GET /health - Liveness probe
//   - GET /ws?session={id} - WebSocket stream of solve events
//
// Creating a session:
//
//	{"puzzle_id": "example"}
//	{"name": "mine", "layout": ["2413", "3215"], "end": {"x": 3, "y": 1}}
//
// Solving:
//
//	{"regime": "capped"}
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status chosen by StatusFor:
//
//	{
//	  "error": "session zz99: session not found",
//	  "code": 404
//	}
//
// An unreachable end returns 422 and also carries the cached result under
// "result".
package api
