package city

import "micropolis.dev/internal/sim/tiles"

// Connection variants indexed by neighbor mask: N=1, E=2, S=4, W=8.
var (
	roadTable = [16]tiles.Tile{
		tiles.Roads, tiles.Roads + 1, tiles.Roads + 2, tiles.Roads + 3,
		tiles.Roads + 4, tiles.Roads + 5, tiles.Roads + 6, tiles.Roads + 7,
		tiles.Roads + 8, tiles.Roads + 9, tiles.Roads + 10, tiles.Roads + 11,
		tiles.Roads + 12, tiles.Roads + 13, tiles.Roads + 14, tiles.Roads + 15,
	}
	railTable = [16]tiles.Tile{
		tiles.RailBase, tiles.RailBase + 1, tiles.RailBase + 2, tiles.RailBase + 3,
		tiles.RailBase + 4, tiles.RailBase + 5, tiles.RailBase + 6, tiles.RailBase + 7,
		tiles.RailBase + 8, tiles.RailBase + 9, tiles.RailBase + 10, tiles.RailBase + 11,
		tiles.RailBase + 12, tiles.RailBase + 13, tiles.RailBase + 14, tiles.RailBase + 15,
	}
	// Entries 12 and 13 reuse the L-shaped line codes.
	wireTable = [16]tiles.Tile{
		tiles.PowerBase, tiles.PowerBase + 1, tiles.PowerBase + 2, tiles.PowerBase + 3,
		tiles.PowerBase + 4, tiles.PowerBase + 5, tiles.PowerBase + 6, tiles.PowerBase + 7,
		tiles.PowerBase + 8, tiles.PowerBase + 9, tiles.PowerBase + 10, tiles.PowerBase + 11,
		tiles.LHPower, tiles.LVPower, tiles.PowerBase + 14, tiles.PowerBase + 15,
	}
)

func roadOrRail(t tiles.Tile) bool { return tiles.IsRoad(t) || tiles.IsRail(t) }

func wireOrConductor(t tiles.Tile) bool { return tiles.IsWire(t) || t.Conductive() }

func (c *City) connectMask(x, y int, connects func(tiles.Tile) bool) int {
	mask := 0
	for i, d := range probeDirs {
		nx, ny := x+d.x, y+d.y
		if c.grid.InBounds(nx, ny) && connects(c.at(nx, ny)) {
			mask |= 1 << i
		}
	}
	return mask
}

// FixCell rewrites a road, rail or power line cell to the variant matching its neighbors.
// Other cells, bridges included, are left alone.
func (c *City) FixCell(x, y int) {
	if !c.grid.InBounds(x, y) {
		return
	}
	t := c.at(x, y)
	code := t.Code()
	if code < 1 || code >= tiles.LastTile {
		return
	}
	keep := t.Flags()
	switch {
	case code == tiles.HBridge || code == tiles.VBridge:
		return
	case tiles.IsRoad(t):
		m := c.connectMask(x, y, roadOrRail)
		c.set(x, y, keep|roadTable[m]|tiles.BULLBIT|tiles.BURNBIT)
	case tiles.IsRail(t):
		m := c.connectMask(x, y, roadOrRail)
		c.set(x, y, keep|railTable[m]|tiles.BULLBIT|tiles.BURNBIT)
	case tiles.IsWire(t):
		m := c.connectMask(x, y, wireOrConductor)
		c.set(x, y, keep|wireTable[m]|tiles.BULLBIT|tiles.BURNBIT|tiles.CONDBIT)
	}
}

// FixZone runs FixCell on (x, y) and its four neighbors.
func (c *City) FixZone(x, y int) {
	if !c.grid.InBounds(x, y) {
		return
	}
	c.FixCell(x, y)
	for _, d := range probeDirs {
		c.FixCell(x+d.x, y+d.y)
	}
}
