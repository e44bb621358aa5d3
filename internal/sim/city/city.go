// Package city holds the tile grid of one city together with the rules that mutate it:
// the power scan, the road/rail/wire connection tables, multi-cell structure placement
// and demolition, and the per-tool entry points.
//
// A City is not safe for concurrent use. The owner serializes tool edits and scans.
package city

import "micropolis.dev/internal/sim/tiles"

type City struct {
	grid   *Grid
	budget Budget
	rng    Chooser

	power *PowerMap
	stack powerStack
}

// New builds an all-dirt city. A nil budget starts with zero funds; a nil chooser always
// picks the first park variant.
func New(width, height int, budget Budget, rng Chooser) *City {
	g := NewGrid(width, height)
	if budget == nil {
		budget = NewWallet(0)
	}
	if rng == nil {
		rng = fixedChooser(0)
	}
	return &City{
		grid:   g,
		budget: budget,
		rng:    rng,
		power:  newPowerMap(g.w, g.h),
	}
}

func (c *City) Grid() *Grid         { return c.grid }
func (c *City) Budget() Budget      { return c.budget }
func (c *City) PowerMap() *PowerMap { return c.power }
func (c *City) Funds() int          { return c.budget.Available() }

func (c *City) SetChooser(rng Chooser) {
	if rng == nil {
		rng = fixedChooser(0)
	}
	c.rng = rng
}

func (c *City) canAfford(amount int) bool { return amount <= 0 || c.budget.Available() >= amount }

func (c *City) spend(amount int) {
	if amount > 0 {
		c.budget.Spend(amount)
	}
}

func (c *City) at(x, y int) tiles.Tile          { return c.grid.At(x, y) }
func (c *City) set(x, y int, t tiles.Tile) bool { return c.grid.Set(x, y, t) }
