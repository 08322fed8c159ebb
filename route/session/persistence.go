package session

import (
	"time"

	"github.com/wricardo/mcp-training/crucible/route/puzzle"
	"github.com/wricardo/mcp-training/crucible/route/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the JSON form of a session. The puzzle is stored
// inline so a session survives edits to the catalogue.
type PersistedSessionData struct {
	ID             string                 `json:"id"`
	PuzzleID       string                 `json:"puzzle_id"`
	Puzzle         *puzzle.Puzzle         `json:"puzzle"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	Results        []*service.SolveResult `json:"results,omitempty"`
}
