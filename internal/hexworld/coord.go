// Package hexworld is the pure data model: hex grid, player characters,
// coordinate math, and action application. No I/O, no locks — every
// exported function is a value-in, value-out transform so the round
// resolver built on top of it stays deterministic and easy to test.
package hexworld

import "fmt"

// Coord is an axial hex coordinate. Comparable by value, usable directly
// as a map key.
type Coord struct {
	Q int
	R int
}

// Vector is a displacement in the same axial basis as Coord.
type Vector struct {
	Q int
	R int
}

// ApplyVector returns the coordinate reached by displacing c by v.
func ApplyVector(c Coord, v Vector) Coord {
	return Coord{Q: c.Q + v.Q, R: c.R + v.R}
}

// String renders the canonical "q,r" wire form used whenever Coord is
// serialized, including as a JSON map key (spec.md §6: structured map
// keys must be reversibly stringified).
func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.Q, c.R)
}

// ParseCoord reverses Coord.String.
func ParseCoord(s string) (Coord, error) {
	var c Coord
	if _, err := fmt.Sscanf(s, "%d,%d", &c.Q, &c.R); err != nil {
		return Coord{}, fmt.Errorf("parse coord %q: %w", s, err)
	}
	return c, nil
}

// MarshalText and UnmarshalText make Coord canonicalize to "q,r"
// whenever encoding/json serializes it — both as a plain value and,
// because encoding/json prefers TextMarshaler for map keys, whenever a
// future map is keyed by Coord.
func (c Coord) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Coord) UnmarshalText(text []byte) error {
	parsed, err := ParseCoord(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
