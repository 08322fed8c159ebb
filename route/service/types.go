package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
)

// SessionInfo provides information about a solver session
type SessionInfo struct {
	ID             string         `json:"id"`
	PuzzleID       string         `json:"puzzle_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Start          grid.Cell      `json:"start"`
	End            grid.Cell      `json:"end"`
	MinCellCost    int            `json:"min_cell_cost"`
	MaxCellCost    int            `json:"max_cell_cost"`
	Layout         []string       `json:"layout"`
	Results        []*SolveResult `json:"results,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
}

// SolveResult is the outcome of one regime on one session
type SolveResult struct {
	Regime    string        `json:"regime"`
	Reachable bool          `json:"reachable"`
	Cost      int           `json:"cost"`
	Moves     int           `json:"moves"`
	Expanded  int           `json:"expanded"`
	Steps     []engine.Step `json:"steps,omitempty"`
	Overlay   []string      `json:"overlay,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	SolvedAt  time.Time     `json:"solved_at"`
	Cached    bool          `json:"cached"`
}

// CellInfo describes one grid cell and the cached routes through it
type CellInfo struct {
	Cell    grid.Cell   `json:"cell"`
	Cost    int         `json:"cost"`
	IsStart bool        `json:"is_start"`
	IsEnd   bool        `json:"is_end"`
	Visits  []CellVisit `json:"visits,omitempty"`
}

// CellVisit records that a solved route enters a cell
type CellVisit struct {
	Regime  string         `json:"regime"`
	Step    int            `json:"step"` // 1-based
	Heading engine.Heading `json:"heading"`
}

// PuzzleInfo provides information about a puzzle file
type PuzzleInfo struct {
	Filename    string `json:"filename"`
	PuzzleID    string `json:"puzzle_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Session is a loaded puzzle plus the results solved for it so far
type Session struct {
	ID        string
	PuzzleID  string
	Puzzle    *puzzle.Puzzle
	Grid      *grid.CostGrid
	Start     grid.Cell
	End       grid.Cell
	CreatedAt time.Time

	// mu guards lastAccessedAt and results
	mu             sync.RWMutex
	lastAccessedAt time.Time
	results        map[string]*SolveResult
}

// NewSession parses the puzzle layout and resolves its endpoints
func NewSession(id, puzzleID string, p *puzzle.Puzzle) (*Session, error) {
	if err := puzzle.Validate(p); err != nil {
		return nil, err
	}
	g, err := p.Grid()
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	start, end := p.Endpoints(g)

	now := time.Now()
	return &Session{
		ID:             id,
		PuzzleID:       puzzleID,
		Puzzle:         p,
		Grid:           g,
		Start:          start,
		End:            end,
		CreatedAt:      now,
		lastAccessedAt: now,
		results:        make(map[string]*SolveResult),
	}, nil
}

// LastAccessed returns when the session was last touched
func (s *Session) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessedAt
}

// Touch marks the session as accessed now
func (s *Session) Touch() {
	s.SetLastAccessed(time.Now())
}

// SetLastAccessed overrides the access time, e.g. when restoring from disk
func (s *Session) SetLastAccessed(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = t
}

// Result returns the cached result for a regime
func (s *Session) Result(regime string) (*SolveResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[regime]
	return r, ok
}

// SetResult caches a result under its regime
func (s *Session) SetResult(r *SolveResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results == nil {
		s.results = make(map[string]*SolveResult)
	}
	s.results[r.Regime] = r
}

// Results returns the cached results in regime presentation order
func (s *Session) Results() []*SolveResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*SolveResult
	for _, r := range engine.Regimes() {
		if res, ok := s.results[r.Name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Info builds the API view of the session
func (s *Session) Info() *SessionInfo {
	return &SessionInfo{
		ID:             s.ID,
		PuzzleID:       s.PuzzleID,
		Name:           s.Puzzle.Name,
		Description:    s.Puzzle.Description,
		Width:          s.Grid.Width(),
		Height:         s.Grid.Height(),
		Start:          s.Start,
		End:            s.End,
		MinCellCost:    s.Grid.MinCost(),
		MaxCellCost:    s.Grid.MaxCost(),
		Layout:         s.Grid.Rows(),
		Results:        s.Results(),
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.LastAccessed(),
	}
}
