package engine

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/crucible/route/grid"
)

// Heading is the direction of travel of the last move
type Heading uint8

const (
	Up Heading = iota
	Down
	Left
	Right
)

// Headings lists every heading in a stable order
var Headings = [...]Heading{Up, Down, Left, Right}

// Opposite returns the reversed heading
func (h Heading) Opposite() Heading {
	switch h {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Step returns the neighbour of c one cell along h.
// The result may lie outside any grid.
func (h Heading) Step(c grid.Cell) grid.Cell {
	switch h {
	case Up:
		c.Y--
	case Down:
		c.Y++
	case Left:
		c.X--
	case Right:
		c.X++
	}
	return c
}

// Glyph is the arrow used by path overlays
func (h Heading) Glyph() byte {
	switch h {
	case Up:
		return '^'
	case Down:
		return 'v'
	case Left:
		return '<'
	default:
		return '>'
	}
}

func (h Heading) String() string {
	switch h {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("heading(%d)", uint8(h))
	}
}

// MarshalText encodes the heading by name
func (h Heading) MarshalText() ([]byte, error) {
	if h > Right {
		return nil, fmt.Errorf("invalid heading %d", uint8(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText accepts anything ParseHeading does
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHeading accepts a heading name or its glyph
func ParseHeading(s string) (Heading, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "^", "north", "n":
		return Up, nil
	case "down", "v", "south", "s":
		return Down, nil
	case "left", "<", "west", "w":
		return Left, nil
	case "right", ">", "east", "e":
		return Right, nil
	default:
		return 0, fmt.Errorf("invalid heading %q", s)
	}
}

// perpendicular returns the two headings at right angles to h
func (h Heading) perpendicular() [2]Heading {
	if h == Up || h == Down {
		return [2]Heading{Left, Right}
	}
	return [2]Heading{Up, Down}
}
