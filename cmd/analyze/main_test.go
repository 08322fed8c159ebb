package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

func writePuzzle(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	path := writePuzzle(t, t.TempDir(), "hook.json", `{"name":"hook","description":"turn once","layout":["111","991","991"]}`)

	var buf bytes.Buffer
	require.NoError(t, analyzeFile(context.Background(), &buf, path))

	out := buf.String()
	assert.Contains(t, out, "Name: hook")
	assert.Contains(t, out, "Description: turn once")
	assert.Contains(t, out, "Grid Size: 3 x 3 (9 cells)")
	assert.Contains(t, out, "Cell Costs: 1-9")
	assert.Contains(t, out, "Cost Histogram: 1:5 9:4")
	assert.Contains(t, out, "Start: (0,0)  End: (2,2)  Manhattan: 4")
	assert.Contains(t, out, "capped:         cost 4, 4 moves")
	assert.Contains(t, out, "minimum-commit: unreachable")
}

func TestAnalyzeFile_Invalid(t *testing.T) {
	path := writePuzzle(t, t.TempDir(), "bad.txt", "12\n3\n")

	var buf bytes.Buffer
	err := analyzeFile(context.Background(), &buf, path)
	assert.ErrorIs(t, err, grid.ErrMalformedGrid)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writePuzzle(t, dir, "a.txt", "12\n34\n")
	writePuzzle(t, dir, "b.yaml", "name: b\nlayout: [\"1\"]\n")
	writePuzzle(t, dir, "README.md", "skip")
	single := writePuzzle(t, t.TempDir(), "c.json", `{"name":"c","layout":["1"]}`)

	files, err := collect([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.yaml"), single}, files)

	_, err = collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writePuzzle(t, dir, "strip.txt", "11111\n")
	writePuzzle(t, dir, "broken.txt", "1x\n")

	var buf bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &buf

	require.NoError(t, cmd.Run(context.Background(), []string{"analyze", "--dir", dir}))
	out := buf.String()
	assert.Contains(t, out, "=== Analyzing strip.txt ===")
	assert.Contains(t, out, "capped:         unreachable")
	assert.Contains(t, out, "minimum-commit: cost 4, 4 moves")
	assert.Contains(t, out, "=== Analyzing broken.txt ===")
	assert.Contains(t, out, "Error: ")
}

func TestCommand_NoPuzzles(t *testing.T) {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	err := cmd.Run(context.Background(), []string{"analyze", t.TempDir()})
	assert.EqualError(t, err, "no puzzle files found")
}

func TestManhattan(t *testing.T) {
	assert.Equal(t, 24, manhattan(grid.Cell{X: 0, Y: 0}, grid.Cell{X: 12, Y: 12}))
	assert.Equal(t, 3, manhattan(grid.Cell{X: 2, Y: 1}, grid.Cell{X: 0, Y: 2}))
}
