// Package websocket pushes solver events to browser and agent clients.
//
// A central Hub owns every connection. Clients attach to one session with
// the ?session= query parameter and receive only that session's events.
// Incoming client messages are ignored; the connection is push-only.
//
// Outgoing messages are JSON envelopes:
//
//	{"session_id":"ab12","event":"solve_complete","data":{...},"sent_at":"..."}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastToSession("ab12", websocket.EventSolveComplete, results)
//
// BroadcastToSession never blocks the caller. Clients whose send buffer is
// full are disconnected.
package websocket
