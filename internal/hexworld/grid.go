package hexworld

import "encoding/json"

// Hex is grid-cell metadata. Kept minimal and extensible: current rules
// only need an identity to exist at a Coord, but terrain/elevation/etc.
// can be added here without touching the resolver.
type Hex struct {
	Coord Coord `json:"coord"`
}

// Grid is a finite, immutable-after-creation mapping of Coord to Hex.
type Grid struct {
	cells map[Coord]Hex
}

// NewGrid builds a Grid from a slice of cells.
func NewGrid(cells []Hex) Grid {
	m := make(map[Coord]Hex, len(cells))
	for _, h := range cells {
		m[h.Coord] = h
	}
	return Grid{cells: m}
}

// Contains reports whether c is part of the grid.
func (g Grid) Contains(c Coord) bool {
	_, ok := g.cells[c]
	return ok
}

// Len reports the number of cells in the grid.
func (g Grid) Len() int { return len(g.cells) }

// Cells returns every Hex in the grid, in no particular order. Used by
// internal/durable to serialize the grid as a flat list.
func (g Grid) Cells() []Hex {
	out := make([]Hex, 0, len(g.cells))
	for _, h := range g.cells {
		out = append(out, h)
	}
	return out
}

// MarshalJSON encodes the grid as a flat list of cells — the map itself
// is keyed by Coord, which is not a JSON object key shape worth
// preserving when the value is fully recoverable from the list.
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Cells())
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var cells []Hex
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	*g = NewGrid(cells)
	return nil
}

// HexDisc builds a Grid covering every Coord within radius hexes of the
// origin. Exact grid shape/generation is out of core scope (spec.md §9);
// this is the only grid builder provided. session.New always takes an
// explicit grid, so callers pass HexDisc's result (or any other Grid)
// themselves.
func HexDisc(radius int) Grid {
	var cells []Hex
	for q := -radius; q <= radius; q++ {
		r1 := max(-radius, -q-radius)
		r2 := min(radius, -q+radius)
		for r := r1; r <= r2; r++ {
			cells = append(cells, Hex{Coord: Coord{Q: q, R: r}})
		}
	}
	return NewGrid(cells)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
