// Package puzzle defines the on-disk description of a routing problem: a
// digit layout plus optional start and end cells.
package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

var ErrInvalidPuzzle = errors.New("invalid puzzle")

// Extensions lists the file types Load understands, in lookup order
var Extensions = []string{".json", ".yaml", ".yml", ".txt"}

var validate = validator.New()

// Puzzle is a named cost layout. Start defaults to the top-left cell and End
// to the bottom-right cell.
type Puzzle struct {
	Name        string     `json:"name" yaml:"name" validate:"required,max=64"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" validate:"max=512"`
	Layout      []string   `json:"layout" yaml:"layout" validate:"required,min=1,dive,required"`
	Start       *grid.Cell `json:"start,omitempty" yaml:"start,omitempty"`
	End         *grid.Cell `json:"end,omitempty" yaml:"end,omitempty"`
}

// Validate checks required fields, the layout and that both endpoints lie
// inside the grid.
func Validate(p *Puzzle) error {
	if p == nil {
		return fmt.Errorf("%w: puzzle is nil", ErrInvalidPuzzle)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	g, err := p.Grid()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	if p.Start != nil && !g.Contains(*p.Start) {
		return fmt.Errorf("%w: start %s is outside the %dx%d grid", ErrInvalidPuzzle, *p.Start, g.Width(), g.Height())
	}
	if p.End != nil && !g.Contains(*p.End) {
		return fmt.Errorf("%w: end %s is outside the %dx%d grid", ErrInvalidPuzzle, *p.End, g.Width(), g.Height())
	}
	return nil
}

// Grid parses the layout
func (p *Puzzle) Grid() (*grid.CostGrid, error) {
	return grid.ParseLines(p.Layout)
}

// Endpoints resolves the start and end cells against g
func (p *Puzzle) Endpoints(g *grid.CostGrid) (start, end grid.Cell) {
	end = g.BottomRight()
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	return start, end
}

// Load reads a puzzle file. JSON and YAML files carry a full Puzzle; any
// other supported extension is a raw digit grid named after the file.
func Load(path string) (*Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var p Puzzle
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidPuzzle, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidPuzzle, err)
		}
	case ".txt", "":
		return FromText(name, string(data))
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidPuzzle, ext)
	}

	if p.Name == "" {
		p.Name = name
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FromText builds a puzzle from a raw digit grid
func FromText(name, text string) (*Puzzle, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")

	p := &Puzzle{Name: name}
	if text != "" {
		p.Layout = strings.Split(text, "\n")
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Example is the built-in sample puzzle
func Example() *Puzzle {
	return &Puzzle{
		Name:        "example",
		Description: "Sample 13x13 city block map",
		Layout: []string{
			"2413432311323",
			"3215453535623",
			"3255245654254",
			"3446585845452",
			"4546657867536",
			"1438598798454",
			"4457876987766",
			"3637877979653",
			"4654967986887",
			"4564679986453",
			"1224686865563",
			"2546548887735",
			"4322674655533",
		},
	}
}
