package service

import (
	"context"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
)

// SolverService defines all solver-related operations
type SolverService interface {
	// Session Management
	CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error)
	CreateSessionFromPuzzle(ctx context.Context, p *puzzle.Puzzle) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Solving
	Solve(ctx context.Context, sessionID, regime string) (*SolveResult, error)
	SolveAll(ctx context.Context, sessionID string) ([]*SolveResult, error)
	DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error)

	// Catalogue
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	LoadPuzzle(ctx context.Context, name string) (*puzzle.Puzzle, error)
	SavePuzzle(ctx context.Context, name string, p *puzzle.Puzzle) error
	ListRegimes(ctx context.Context) []engine.Regime
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, puzzleID string, p *puzzle.Puzzle) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// PuzzleManager handles puzzle loading
type PuzzleManager interface {
	LoadPuzzle(name string) (*puzzle.Puzzle, error)
	ListPuzzles() ([]*PuzzleInfo, error)
	GetDefault() *puzzle.Puzzle
	SavePuzzle(name string, p *puzzle.Puzzle) error
}
