package city

import "micropolis.dev/internal/sim/tiles"

type layCosts struct {
	land, water int
}

// lay is the shared road/rail/wire placement path.
func (c *City) lay(x, y int, costs layCosts, onLand, onWater func() tiles.Tile) Result {
	if !c.grid.InBounds(x, y) {
		return Failed
	}
	t := c.at(x, y)
	if tiles.IsRubble(t) && t.Has(tiles.BULLBIT) && c.canAfford(tiles.CostClearCell+costs.land) {
		c.spend(tiles.CostClearCell)
		c.set(x, y, tiles.Dirt)
		t = tiles.Dirt
	}

	var cost int
	var next tiles.Tile
	switch {
	case tiles.IsDirt(t), tiles.IsTinyExp(t):
		cost, next = costs.land, onLand()
	case tiles.IsWater(t):
		cost, next = costs.water, onWater()
	default:
		return MustClearFirst
	}
	if !c.canAfford(cost) {
		return InsufficientFunds
	}
	c.spend(cost)
	c.set(x, y, next)
	c.FixZone(x, y)
	return OK
}

func (c *City) LayRoad(x, y int) Result {
	return c.lay(x, y, layCosts{tiles.CostRoad, tiles.CostBridge},
		func() tiles.Tile { return tiles.Roads | tiles.BULLBIT | tiles.BURNBIT },
		func() tiles.Tile {
			// Bridges run north-south when they continue a road or rail above or below.
			if roadOrRail(c.at(x, y-1)) || roadOrRail(c.at(x, y+1)) {
				return tiles.VBridge | tiles.BULLBIT
			}
			return tiles.HBridge | tiles.BULLBIT
		})
}

func (c *City) LayRail(x, y int) Result {
	return c.lay(x, y, layCosts{tiles.CostRail, tiles.CostTunnel},
		func() tiles.Tile { return tiles.RailBase | tiles.BULLBIT | tiles.BURNBIT },
		func() tiles.Tile { return tiles.HRail | tiles.BULLBIT })
}

func (c *City) LayWire(x, y int) Result {
	return c.lay(x, y, layCosts{tiles.CostWire, tiles.CostUnderwaterWire},
		func() tiles.Tile { return tiles.HPower | tiles.CONDBIT | tiles.BULLBIT | tiles.BURNBIT },
		func() tiles.Tile { return tiles.HPower | tiles.CONDBIT | tiles.BULLBIT })
}

// Bulldoze clears one cell, or the whole structure the cell belongs to.
func (c *City) Bulldoze(x, y int) Result {
	if !c.grid.InBounds(x, y) {
		return Failed
	}
	t := c.at(x, y)
	if tiles.IsDirt(t) {
		return OK
	}
	if !c.canAfford(tiles.CostBulldoze) {
		return InsufficientFunds
	}
	if res, handled := c.Demolish(x, y); handled {
		return res
	}

	switch {
	case tiles.IsWater(t), t.Code() == tiles.RadTile:
		return Failed
	case tiles.IsBridge(t):
		if !c.canAfford(tiles.CostBridgeBulldoze) {
			return InsufficientFunds
		}
		c.spend(tiles.CostBridgeBulldoze)
		c.set(x, y, tiles.River)
	default:
		c.spend(tiles.CostBulldoze)
		c.set(x, y, tiles.Dirt)
	}
	c.FixZone(x, y)
	return OK
}

// Park plants one of the four woods variants on bare land.
func (c *City) Park(x, y int) Result {
	if !c.grid.InBounds(x, y) {
		return Failed
	}
	if !tiles.IsDirt(c.at(x, y)) {
		return MustClearFirst
	}
	if !c.canAfford(tiles.CostPark) {
		return InsufficientFunds
	}
	c.spend(tiles.CostPark)
	r := c.rng.Intn(4)
	if r < 0 || r > 3 {
		r = 0
	}
	c.set(x, y, (tiles.Woods+tiles.Tile(r))|tiles.BURNBIT|tiles.BULLBIT)
	c.FixZone(x, y)
	return OK
}

// QueryResult describes one cell for the query tool.
type QueryResult struct {
	X       int        `json:"x"`
	Y       int        `json:"y"`
	Tile    tiles.Tile `json:"tile"`
	Label   string     `json:"label"`
	Powered bool       `json:"powered"`
}

func (c *City) Query(x, y int) (QueryResult, Result) {
	if !c.grid.InBounds(x, y) {
		return QueryResult{X: x, Y: y}, Failed
	}
	t := c.at(x, y)
	return QueryResult{X: x, Y: y, Tile: t, Label: tiles.Label(t), Powered: t.Powered()}, OK
}

// Outcome is what Apply reports for one tool use.
type Outcome struct {
	Tool   tiles.Tool
	X, Y   int
	Result Result
	// Funds actually debited.
	Cost  int
	Query *QueryResult
}

// Apply dispatches tool at (x, y).
func (c *City) Apply(tool tiles.Tool, x, y int) Outcome {
	out := Outcome{Tool: tool, X: x, Y: y}
	before := c.budget.Available()

	switch tool {
	case tiles.ToolRoad:
		out.Result = c.LayRoad(x, y)
	case tiles.ToolRail:
		out.Result = c.LayRail(x, y)
	case tiles.ToolWire:
		out.Result = c.LayWire(x, y)
	case tiles.ToolBulldozer:
		out.Result = c.Bulldoze(x, y)
	case tiles.ToolPark:
		out.Result = c.Park(x, y)
	case tiles.ToolQuery:
		q, res := c.Query(x, y)
		out.Result = res
		if res == OK {
			out.Query = &q
		}
	default:
		kind, ok := KindForTool(tool)
		if !ok {
			out.Result = Failed
			return out
		}
		out.Result = c.PlaceZone(x, y, kind)
	}
	out.Cost = before - c.budget.Available()
	return out
}
