package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
	"github.com/wricardo/mcp-training/crucible/route/render"
)

var ErrCellOutOfBounds = errors.New("cell is outside the grid")

// InlinePuzzleID marks sessions created from a puzzle body rather than a file
const InlinePuzzleID = "inline"

// solverServiceImpl implements the SolverService interface
type solverServiceImpl struct {
	sessions SessionManager
	puzzles  PuzzleManager
	logger   *slog.Logger
}

// NewSolverService creates a new solver service instance
func NewSolverService(sessions SessionManager, puzzles PuzzleManager) SolverService {
	return &solverServiceImpl{
		sessions: sessions,
		puzzles:  puzzles,
		logger:   slog.Default().With("component", "solver"),
	}
}

// CreateSession creates a session from a catalogue puzzle, or the default
// puzzle when puzzleID is empty
func (s *solverServiceImpl) CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error) {
	var p *puzzle.Puzzle
	if puzzleID != "" {
		var err error
		p, err = s.puzzles.LoadPuzzle(puzzleID)
		if err != nil {
			return nil, s.describeLoadError(puzzleID, err)
		}
	} else {
		p = s.puzzles.GetDefault()
		puzzleID = p.Name
	}

	return s.createSession(puzzleID, p)
}

// CreateSessionFromPuzzle creates a session from a puzzle body
func (s *solverServiceImpl) CreateSessionFromPuzzle(ctx context.Context, p *puzzle.Puzzle) (*SessionInfo, error) {
	if err := puzzle.Validate(p); err != nil {
		return nil, err
	}
	return s.createSession(InlinePuzzleID, p)
}

func (s *solverServiceImpl) createSession(puzzleID string, p *puzzle.Puzzle) (*SessionInfo, error) {
	// Let session manager generate a 4-character ID
	sess, err := s.sessions.Create("", puzzleID, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sessionsCreated.Inc()
	s.logger.Info("session created", "session", sess.ID, "puzzle", puzzleID,
		"width", sess.Grid.Width(), "height", sess.Grid.Height())

	return sess.Info(), nil
}

// describeLoadError lists the available puzzles when the requested one is missing
func (s *solverServiceImpl) describeLoadError(puzzleID string, err error) error {
	available, listErr := s.puzzles.ListPuzzles()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("puzzle '%s': %w", puzzleID, err)
	}

	ids := make([]string, 0, len(available))
	for _, info := range available {
		ids = append(ids, info.PuzzleID)
	}
	return fmt.Errorf("puzzle '%s' (available: %v): %w", puzzleID, ids, err)
}

// GetSession retrieves session information
func (s *solverServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Info(), nil
}

// ListSessions returns all active sessions
func (s *solverServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sess.Info())
	}
	return result, nil
}

// DeleteSession removes a session
func (s *solverServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Solve runs one regime on a session. Results, unreachable ones included,
// are cached on the session; an unreachable end is reported as an error
// wrapping engine.ErrUnreachable alongside the cached result.
func (s *solverServiceImpl) Solve(ctx context.Context, sessionID, regimeName string) (*SolveResult, error) {
	regime, err := engine.LookupRegime(regimeName)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result, err := s.solve(ctx, sess, regime)
	if err != nil {
		return nil, err
	}
	s.persist(sessionID)

	if !result.Reachable {
		return result, fmt.Errorf("%s from %s to %s: %w", regime.Name, sess.Start, sess.End, engine.ErrUnreachable)
	}
	return result, nil
}

// SolveAll runs every regime on a session concurrently. Unreachable regimes
// are returned as results with Reachable unset rather than as errors.
func (s *solverServiceImpl) SolveAll(ctx context.Context, sessionID string) ([]*SolveResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	regimes := engine.Regimes()
	results := make([]*SolveResult, len(regimes))

	g, gctx := errgroup.WithContext(ctx)
	for i, regime := range regimes {
		g.Go(func() error {
			result, err := s.solve(gctx, sess, regime)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.persist(sessionID)
	return results, nil
}

// solve returns the cached result for regime or runs the search
func (s *solverServiceImpl) solve(ctx context.Context, sess *Session, regime engine.Regime) (*SolveResult, error) {
	if cached, ok := sess.Result(regime.Name); ok {
		solveCacheHits.WithLabelValues(regime.Name).Inc()
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}

	started := time.Now()
	path, err := engine.Search(ctx, sess.Grid, sess.Start, sess.End, regime.Policy)
	elapsed := time.Since(started)

	result := &SolveResult{
		Regime:   regime.Name,
		Duration: elapsed,
		SolvedAt: time.Now(),
	}

	switch {
	case err == nil:
		result.Reachable = true
		result.Cost = path.Cost
		result.Moves = len(path.Steps)
		result.Expanded = path.Expanded
		result.Steps = path.Steps
		result.Overlay = render.Overlay(sess.Grid, path)
		solveTotal.WithLabelValues(regime.Name, "solved").Inc()
		solveExpanded.WithLabelValues(regime.Name).Observe(float64(path.Expanded))
	case errors.Is(err, engine.ErrUnreachable):
		result.Error = err.Error()
		solveTotal.WithLabelValues(regime.Name, "unreachable").Inc()
	default:
		solveTotal.WithLabelValues(regime.Name, "error").Inc()
		s.logger.Warn("solve aborted", "session", sess.ID, "regime", regime.Name, "error", err)
		return nil, fmt.Errorf("solve %s: %w", regime.Name, err)
	}

	solveDuration.WithLabelValues(regime.Name).Observe(elapsed.Seconds())
	sess.SetResult(result)

	s.logger.Info("solve complete", "session", sess.ID, "regime", regime.Name,
		"reachable", result.Reachable, "cost", result.Cost, "expanded", result.Expanded, "duration", elapsed)
	return result, nil
}

func (s *solverServiceImpl) persist(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session", "session", sessionID, "error", err)
	}
}

// DescribeCell reports the cost of a cell and which cached routes enter it
func (s *solverServiceImpl) DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	cell := grid.Cell{X: x, Y: y}
	cost, ok := sess.Grid.CostAt(cell)
	if !ok {
		return nil, fmt.Errorf("%w: %s in a %dx%d grid", ErrCellOutOfBounds, cell, sess.Grid.Width(), sess.Grid.Height())
	}

	info := &CellInfo{
		Cell:    cell,
		Cost:    cost,
		IsStart: cell == sess.Start,
		IsEnd:   cell == sess.End,
	}
	for _, result := range sess.Results() {
		for i, step := range result.Steps {
			if step.Cell == cell {
				info.Visits = append(info.Visits, CellVisit{Regime: result.Regime, Step: i + 1, Heading: step.Heading})
			}
		}
	}
	return info, nil
}

// ListPuzzles returns all available puzzles
func (s *solverServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	return s.puzzles.ListPuzzles()
}

// LoadPuzzle loads a puzzle by ID
func (s *solverServiceImpl) LoadPuzzle(ctx context.Context, name string) (*puzzle.Puzzle, error) {
	return s.puzzles.LoadPuzzle(name)
}

// SavePuzzle saves a puzzle to the catalogue
func (s *solverServiceImpl) SavePuzzle(ctx context.Context, name string, p *puzzle.Puzzle) error {
	if err := s.puzzles.SavePuzzle(name, p); err != nil {
		return err
	}
	s.logger.Info("puzzle saved", "puzzle", name)
	return nil
}

// ListRegimes returns the built-in movement regimes
func (s *solverServiceImpl) ListRegimes(ctx context.Context) []engine.Regime {
	return engine.Regimes()
}
