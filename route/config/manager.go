package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/wricardo/mcp-training/crucible/route/puzzle"
	"github.com/wricardo/mcp-training/crucible/route/service"
)

var (
	ErrPuzzleNotFound = errors.New("puzzle not found")
	ErrInvalidPuzzle  = puzzle.ErrInvalidPuzzle
)

// DefaultPuzzleName is preferred as the default when present in the directory
const DefaultPuzzleName = "example"

// Manager handles puzzle loading and caching
type Manager struct {
	puzzleDir     string
	defaultPuzzle *puzzle.Puzzle
	defaultID     string // empty when the built-in example is the default
	puzzles       map[string]*puzzle.Puzzle
	mu            sync.RWMutex
}

// NewManager creates a new puzzle manager over an existing directory
func NewManager(puzzleDir string) (*Manager, error) {
	// Ensure puzzle directory exists
	if _, err := os.Stat(puzzleDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("puzzle directory does not exist: %s", puzzleDir)
	}

	m := &Manager{
		puzzleDir: puzzleDir,
		puzzles:   make(map[string]*puzzle.Puzzle),
	}

	m.loadDefaultPuzzle()
	return m, nil
}

// Dir returns the directory the manager reads from
func (m *Manager) Dir() string {
	return m.puzzleDir
}

// LoadPuzzle loads a puzzle by ID, the file name without extension
func (m *Manager) LoadPuzzle(name string) (*puzzle.Puzzle, error) {
	name = puzzleID(name)
	if err := checkName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	// Check cache first
	if p, exists := m.puzzles[name]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.puzzles[name]; exists {
		return p, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	p, err := puzzle.Load(path)
	if err != nil {
		if errors.Is(err, puzzle.ErrInvalidPuzzle) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load puzzle %s: %w", name, err)
	}

	m.puzzles[name] = p
	return p, nil
}

// findFile resolves a puzzle ID to the first existing file with a known extension
func (m *Manager) findFile(name string) (string, error) {
	for _, ext := range puzzle.Extensions {
		path := filepath.Join(m.puzzleDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPuzzleNotFound, name)
}

// ListPuzzles returns information about all loadable puzzles, sorted by ID
func (m *Manager) ListPuzzles() ([]*service.PuzzleInfo, error) {
	entries, err := os.ReadDir(m.puzzleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	var infos []*service.PuzzleInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isPuzzleFile(entry.Name()) {
			continue
		}

		name := puzzleID(entry.Name())
		if seen[name] {
			continue
		}

		// Try to load the puzzle to get details
		p, err := m.LoadPuzzle(name)
		if err != nil {
			// Skip invalid puzzles
			slog.Debug("skipping puzzle", "file", entry.Name(), "error", err)
			continue
		}
		g, err := p.Grid()
		if err != nil {
			continue
		}
		seen[name] = true

		infos = append(infos, &service.PuzzleInfo{
			Filename:    entry.Name(),
			PuzzleID:    name,
			Name:        p.Name,
			Description: p.Description,
			Width:       g.Width(),
			Height:      g.Height(),
		})
	}

	slices.SortFunc(infos, func(a, b *service.PuzzleInfo) int {
		return strings.Compare(a.PuzzleID, b.PuzzleID)
	})
	return infos, nil
}

// GetDefault returns the default puzzle
func (m *Manager) GetDefault() *puzzle.Puzzle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPuzzle
}

// SetDefault sets the default puzzle by ID
func (m *Manager) SetDefault(name string) error {
	p, err := m.LoadPuzzle(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPuzzle = p
	m.defaultID = puzzleID(name)
	return nil
}

// DefaultID returns the ID of the default puzzle, or "" for the built-in example
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// RefreshCache drops every cached puzzle and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.puzzles = make(map[string]*puzzle.Puzzle)
	m.mu.Unlock()

	m.loadDefaultPuzzle()
}

// Invalidate drops one puzzle from the cache
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.puzzles, puzzleID(name))
}

// loadDefaultPuzzle picks example, then the first valid puzzle, then the
// built-in example
func (m *Manager) loadDefaultPuzzle() {
	id := DefaultPuzzleName
	p, err := m.LoadPuzzle(id)
	if err != nil {
		infos, listErr := m.ListPuzzles()
		if listErr == nil && len(infos) > 0 {
			id = infos[0].PuzzleID
			p, err = m.LoadPuzzle(id)
		}
	}
	if err != nil || p == nil {
		p, id = puzzle.Example(), ""
	}

	m.mu.Lock()
	m.defaultPuzzle = p
	m.defaultID = id
	m.mu.Unlock()
}

// reloadDefault re-reads the current default from disk, falling back to
// a fresh pick when its file is gone or no longer valid
func (m *Manager) reloadDefault() {
	id := m.DefaultID()
	if id != "" {
		if err := m.SetDefault(id); err == nil {
			return
		}
	}
	m.loadDefaultPuzzle()
}

// SavePuzzle writes a puzzle to disk as JSON and caches it
func (m *Manager) SavePuzzle(name string, p *puzzle.Puzzle) error {
	name = puzzleID(name)
	if err := checkName(name); err != nil {
		return err
	}

	// Validate puzzle before saving
	if err := puzzle.Validate(p); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	path := filepath.Join(m.puzzleDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	m.mu.Lock()
	m.puzzles[name] = p
	m.mu.Unlock()

	return nil
}

// Watch invalidates cached puzzles when their files change on disk. It
// returns once the watcher is running; the watcher stops with ctx.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(m.puzzleDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.puzzleDir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				m.handleEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("puzzle watcher error", "dir", m.puzzleDir, "error", err)
			}
		}
	}()

	return nil
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if !isPuzzleFile(base) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := puzzleID(base)
	m.Invalidate(name)
	slog.Info("puzzle changed", "puzzle", name, "op", event.Op.String())

	m.mu.RLock()
	defID := m.defaultID
	m.mu.RUnlock()
	switch {
	case defID == name:
		m.reloadDefault()
	case defID == "" || (name == DefaultPuzzleName && event.Has(fsnotify.Create)):
		m.loadDefaultPuzzle()
	}
}

// puzzleID strips a known extension from a file or puzzle name
func puzzleID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if slices.Contains(puzzle.Extensions, ext) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func isPuzzleFile(name string) bool {
	return slices.Contains(puzzle.Extensions, strings.ToLower(filepath.Ext(name)))
}

// checkName rejects IDs that would escape the puzzle directory
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad puzzle name %q", ErrInvalidPuzzle, name)
	}
	return nil
}
