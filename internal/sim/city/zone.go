package city

import "micropolis.dev/internal/sim/tiles"

// PlaceZone builds a structure of kind centered at (x, y).
//
// Every footprint cell must be bare land or clearable debris. Debris costs one unit per
// cell on top of the base price, and the combined total is checked before anything is
// written.
func (c *City) PlaceZone(x, y int, kind ZoneKind) Result {
	if !kind.Valid() {
		return Failed
	}
	l := zoneLayouts[kind]
	lo, hi := span(l.size)

	clearFee := 0
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			cx, cy := x+dx, y+dy
			if !c.grid.InBounds(cx, cy) {
				return Failed
			}
			t := c.at(cx, cy)
			switch {
			case tiles.IsDirt(t):
			case tiles.Clearable(t):
				clearFee += tiles.CostClearCell
			default:
				return Failed
			}
		}
	}
	if !c.canAfford(l.cost + clearFee) {
		return InsufficientFunds
	}

	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			if t := c.at(x+dx, y+dy); !tiles.IsDirt(t) {
				c.set(x+dx, y+dy, tiles.Dirt)
			}
		}
	}
	c.spend(clearFee)
	c.spend(l.cost)

	p := 0
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			var t tiles.Tile
			switch {
			case dx == 0 && dy == 0:
				t = l.center | tiles.ZONEBIT | tiles.BULLBIT | tiles.CONDBIT
			case l.size == 3:
				t = (l.base + tiles.Tile(p)) | tiles.BULLBIT | tiles.CONDBIT
			default:
				t = (l.base + tiles.Tile(p)) | tiles.BULLBIT
			}
			c.set(x+dx, y+dy, t)
			p++
		}
	}
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			c.FixZone(x+dx, y+dy)
		}
	}
	return OK
}

// locate resolves the center and size of the structure covering (x, y).
func (c *City) locate(x, y int) (cx, cy, size int, ok bool) {
	t := c.at(x, y)
	if t.ZoneCenter() {
		if size = centerSize(t); size == 0 {
			return 0, 0, 0, false
		}
		return x, y, size, true
	}
	f, found := FootprintOf(t)
	if !found {
		return 0, 0, 0, false
	}
	cx, cy = x+f.DX, y+f.DY
	if !c.grid.InBounds(cx, cy) {
		return 0, 0, 0, false
	}
	return cx, cy, f.Size, true
}

// Demolish turns the whole structure covering (x, y) into rubble for a flat fee of one unit.
// handled is false when (x, y) is not part of a multi-cell structure.
func (c *City) Demolish(x, y int) (res Result, handled bool) {
	if !c.grid.InBounds(x, y) {
		return Failed, false
	}
	cx, cy, size, ok := c.locate(x, y)
	if !ok {
		return Failed, false
	}
	if !c.canAfford(tiles.CostBulldoze) {
		return InsufficientFunds, true
	}
	c.spend(tiles.CostBulldoze)

	lo, hi := span(size)
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			fx, fy := cx+dx, cy+dy
			if !c.grid.InBounds(fx, fy) {
				continue
			}
			t := c.at(fx, fy) &^ tiles.ZONEBIT
			if tiles.IsDirt(t) || t.Code() == tiles.RadTile {
				c.set(fx, fy, t)
				continue
			}
			c.set(fx, fy, tiles.SomeTinyExp|tiles.ANIMBIT|tiles.BULLBIT)
		}
	}
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			c.FixZone(cx+dx, cy+dy)
		}
	}
	return OK, true
}
