package city

import (
	"github.com/boljen/go-bitmap"

	"micropolis.dev/internal/sim/tiles"
)

const (
	CoalCapacity    = 700
	NuclearCapacity = 2000

	// PowerStackSize bounds pending branch points. Pushes beyond PowerStackSize-2 are dropped.
	PowerStackSize = 1000
)

// PowerMap is the per-cell powered bit set, rebuilt by every scan.
type PowerMap struct {
	w, h int
	bits bitmap.Bitmap
}

func newPowerMap(w, h int) *PowerMap {
	return &PowerMap{w: w, h: h, bits: bitmap.New(w * h)}
}

func (m *PowerMap) Powered(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.bits.Get(y*m.w + x)
}

// Count returns the number of powered cells.
func (m *PowerMap) Count() int {
	n := 0
	for i := 0; i < m.w*m.h; i++ {
		if m.bits.Get(i) {
			n++
		}
	}
	return n
}

func (m *PowerMap) mark(x, y int) { m.bits.Set(y*m.w+x, true) }

func (m *PowerMap) reset() {
	for i := range m.bits {
		m.bits[i] = 0
	}
}

type point struct{ x, y int }

// Probe order: north, east, south, west.
var probeDirs = [4]point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

type powerStack struct {
	items   []point
	dropped int
}

func (s *powerStack) reset() {
	s.items = s.items[:0]
	s.dropped = 0
}

func (s *powerStack) push(p point) {
	if len(s.items) >= PowerStackSize-2 {
		s.dropped++
		return
	}
	s.items = append(s.items, p)
}

func (s *powerStack) pop() (point, bool) {
	n := len(s.items)
	if n == 0 {
		return point{}, false
	}
	p := s.items[n-1]
	s.items = s.items[:n-1]
	return p, true
}

// ScanResult summarizes one power scan.
type ScanResult struct {
	Coal    int `json:"coal"`
	Nuclear int `json:"nuclear"`

	MaxPower int `json:"max_power"`
	NumPower int `json:"num_power"`

	// Zone center counts.
	Powered   int `json:"powered_zones"`
	Unpowered int `json:"unpowered_zones"`

	PoweredCells int  `json:"powered_cells"`
	Aborted      bool `json:"aborted,omitempty"`
	Dropped      int  `json:"dropped_pushes,omitempty"`
}

// PowerScan recomputes which cells receive power.
//
// Power leaves every plant center and walks conductive cells (CONDBIT or ZONEBIT).
// A walk continues while exactly one unpowered neighbor conducts; at a fork the current
// cell is pushed and the walk takes the first neighbor in N, E, S, W order. Every step
// counts against the plants' combined capacity and the scan stops as soon as it is
// exceeded, so large networks are powered in traversal order, not by distance.
func (c *City) PowerScan() ScanResult {
	g := c.grid
	var res ScanResult

	for _, t := range g.cells {
		if !t.ZoneCenter() {
			continue
		}
		switch t.Code() {
		case tiles.PowerPlant:
			res.Coal++
		case tiles.Nuclear:
			res.Nuclear++
		}
	}
	res.MaxPower = res.Coal*CoalCapacity + res.Nuclear*NuclearCapacity

	for i := range g.cells {
		g.cells[i] &^= tiles.PWRBIT
	}
	c.power.reset()
	c.stack.reset()

	if res.MaxPower == 0 {
		c.countZones(&res)
		return res
	}

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			t := g.cells[g.index(x, y)]
			if t.ZoneCenter() && tiles.IsPlant(t) {
				c.stack.push(point{x, y})
			}
		}
	}

scan:
	for {
		p, ok := c.stack.pop()
		if !ok {
			break
		}
		for {
			res.NumPower++
			if res.NumPower > res.MaxPower {
				res.Aborted = true
				break scan
			}
			g.cells[g.index(p.x, p.y)] |= tiles.PWRBIT
			c.power.mark(p.x, p.y)

			var cand [2]point
			n := 0
			for d := 0; d < len(probeDirs) && n < 2; d++ {
				q := point{p.x + probeDirs[d].x, p.y + probeDirs[d].y}
				if c.conducts(q) {
					cand[n] = q
					n++
				}
			}
			if n == 0 {
				break
			}
			if n > 1 {
				c.stack.push(p)
			}
			p = cand[0]
		}
	}

	res.Dropped = c.stack.dropped
	c.countZones(&res)
	return res
}

func (c *City) conducts(p point) bool {
	g := c.grid
	if !g.InBounds(p.x, p.y) {
		return false
	}
	t := g.cells[g.index(p.x, p.y)]
	if !t.Has(tiles.CONDBIT | tiles.ZONEBIT) {
		return false
	}
	return !tiles.IsPlant(t) && !t.Powered()
}

func (c *City) countZones(res *ScanResult) {
	res.Powered, res.Unpowered = 0, 0
	for _, t := range c.grid.cells {
		if !t.ZoneCenter() {
			continue
		}
		if t.Powered() {
			res.Powered++
		} else {
			res.Unpowered++
		}
	}
	res.PoweredCells = c.power.Count()
}
