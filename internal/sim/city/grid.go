package city

import (
	"fmt"

	"micropolis.dev/internal/sim/tiles"
)

const (
	DefaultWidth  = 120
	DefaultHeight = 100
)

// ChangeFunc observes a single cell rewrite made through Grid.Set.
type ChangeFunc func(x, y int, from, to tiles.Tile)

// Grid is a row-major rectangle of tiles.
type Grid struct {
	w, h  int
	cells []tiles.Tile

	onChange ChangeFunc
}

func NewGrid(w, h int) *Grid {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return &Grid{w: w, h: h, cells: make([]tiles.Tile, w*h)}
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.w && y < g.h
}

func (g *Grid) index(x, y int) int { return y*g.w + x }

// At returns the tile at (x, y); out of bounds reads as Dirt.
func (g *Grid) At(x, y int) tiles.Tile {
	if !g.InBounds(x, y) {
		return tiles.Dirt
	}
	return g.cells[g.index(x, y)]
}

// Set writes (x, y). It reports false when the cell is out of bounds.
func (g *Grid) Set(x, y int, t tiles.Tile) bool {
	if !g.InBounds(x, y) {
		return false
	}
	i := g.index(x, y)
	old := g.cells[i]
	if old == t {
		return true
	}
	g.cells[i] = t
	if g.onChange != nil {
		g.onChange(x, y, old, t)
	}
	return true
}

// OnChange installs fn as the change observer (nil removes it).
// Power flag updates made by a scan bypass the observer.
func (g *Grid) OnChange(fn ChangeFunc) { g.onChange = fn }

// Cells returns a copy of the raw tiles in row-major order.
func (g *Grid) Cells() []tiles.Tile {
	out := make([]tiles.Tile, len(g.cells))
	copy(out, g.cells)
	return out
}

// Load replaces every cell. len(cells) must equal Width*Height.
func (g *Grid) Load(cells []tiles.Tile) error {
	if len(cells) != len(g.cells) {
		return fmt.Errorf("grid load: got %d cells, want %d", len(cells), len(g.cells))
	}
	copy(g.cells, cells)
	return nil
}
