package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/grid"
	"github.com/wricardo/mcp-training/crucible/route/service"
)

func TestFilePersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir)
	require.NoError(t, err)

	session, err := service.NewSession("ab12", "test", createTestPuzzle())
	require.NoError(t, err)
	session.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	session.SetResult(&service.SolveResult{
		Regime:    engine.RegimeCapped,
		Reachable: true,
		Cost:      9,
		Steps:     []engine.Step{{Cell: grid.Cell{X: 1, Y: 0}, Heading: engine.Right}},
	})

	require.NoError(t, fp.Save(session))
	assert.True(t, fp.Exists("ab12"))
	assert.True(t, fp.Exists("AB12"))

	loaded, err := fp.Load("ab12")
	require.NoError(t, err)
	assert.Equal(t, "ab12", loaded.ID)
	assert.Equal(t, "test", loaded.PuzzleID)
	assert.Equal(t, session.Puzzle.Layout, loaded.Puzzle.Layout)
	assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, session.End, loaded.End)

	result, ok := loaded.Result(engine.RegimeCapped)
	require.True(t, ok)
	assert.Equal(t, 9, result.Cost)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, engine.Right, result.Steps[0].Heading)
}

func TestFilePersistence_ListAndDelete(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir)
	require.NoError(t, err)

	for _, id := range []string{"aaaa", "bbbb"} {
		session, err := service.NewSession(id, "test", createTestPuzzle())
		require.NoError(t, err)
		require.NoError(t, fp.Save(session))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	ids, err := fp.ListAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"aaaa", "bbbb"}, ids)

	require.NoError(t, fp.Delete("aaaa"))
	assert.False(t, fp.Exists("aaaa"))
	assert.ErrorIs(t, fp.Delete("aaaa"), ErrSessionNotFound)

	_, err = fp.Load("aaaa")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad1.json"), []byte("{"), 0644))
	_, err = fp.Load("bad1")
	assert.Error(t, err)
}

func TestManager_Persistence(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir)
	require.NoError(t, err)

	manager := NewManagerWithPersistence(fp)
	session, err := manager.Create("", "test", createTestPuzzle())
	require.NoError(t, err)
	assert.True(t, fp.Exists(session.ID))

	session.SetResult(&service.SolveResult{Regime: engine.RegimeMinimumCommit, Cost: 33, Reachable: true})
	require.NoError(t, manager.Save(session.ID))

	// A fresh manager finds it lazily
	restarted := NewManagerWithPersistence(fp)
	got, err := restarted.Get(session.ID)
	require.NoError(t, err)
	result, ok := got.Result(engine.RegimeMinimumCommit)
	require.True(t, ok)
	assert.Equal(t, 33, result.Cost)

	// And eagerly
	eager := NewManagerWithPersistence(fp)
	require.NoError(t, eager.LoadPersistedSessions())
	assert.Equal(t, 1, eager.Count())

	// Cleanup keeps the file, Delete removes it
	assert.Equal(t, 1, eager.CleanupExpiredSessions(0))
	_, err = eager.Get(session.ID)
	require.NoError(t, err)

	require.NoError(t, eager.Delete(session.ID))
	assert.False(t, fp.Exists(session.ID))
	_, err = eager.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SaveAllSessions(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir)
	require.NoError(t, err)

	manager := NewManagerWithPersistence(fp)
	for i := 0; i < 3; i++ {
		_, err := manager.Create("", "test", createTestPuzzle())
		require.NoError(t, err)
	}
	for _, id := range mustList(t, fp) {
		require.NoError(t, os.Remove(filepath.Join(dir, id+".json")))
	}

	require.NoError(t, manager.SaveAllSessions())
	assert.Len(t, mustList(t, fp), 3)
}

func mustList(t *testing.T, fp *FilePersistence) []string {
	t.Helper()
	ids, err := fp.ListAll()
	require.NoError(t, err)
	return ids
}
