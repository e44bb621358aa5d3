package city

import (
	"testing"

	"micropolis.dev/internal/sim/tiles"
)

func TestWireTableIrregularity(t *testing.T) {
	if wireTable[12] != tiles.LHPower || wireTable[13] != tiles.LVPower {
		t.Fatalf("wire table entries 12/13 = %d/%d", wireTable[12], wireTable[13])
	}
	for i, code := range wireTable {
		if !tiles.IsWire(code) {
			t.Fatalf("wire entry %d = %d out of range", i, code)
		}
	}
	for i := range roadTable {
		if !tiles.IsRoad(roadTable[i]) || !tiles.IsRail(railTable[i]) {
			t.Fatalf("table entry %d out of range", i)
		}
	}
}

func TestFixCell_RoadMask(t *testing.T) {
	c := New(3, 3, nil, nil)
	g := c.Grid()
	g.Set(1, 1, tiles.Roads|tiles.BULLBIT)
	// North road and west rail connect; the east wire does not.
	g.Set(1, 0, tiles.Roads|tiles.BULLBIT)
	g.Set(0, 1, tiles.RailBase|tiles.BULLBIT)
	g.Set(2, 1, wire())

	c.FixCell(1, 1)
	got := g.At(1, 1)
	if got.Code() != roadTable[1|8] {
		t.Fatalf("road code=%d want %d", got.Code(), roadTable[1|8])
	}
	if !got.Has(tiles.BULLBIT) || !got.Has(tiles.BURNBIT) {
		t.Fatalf("road flags=%#x", got.Flags())
	}
}

func TestFixCell_WireConnectsToConductors(t *testing.T) {
	c := New(3, 3, nil, nil)
	g := c.Grid()
	g.Set(1, 1, wire())
	g.Set(1, 2, tiles.ResBase|tiles.CONDBIT|tiles.BULLBIT)
	g.Set(2, 1, tiles.Roads)

	c.FixCell(1, 1)
	if got := g.At(1, 1).Code(); got != wireTable[4] {
		t.Fatalf("wire code=%d want %d", got, wireTable[4])
	}
	if !g.At(1, 1).Conductive() {
		t.Fatalf("wire lost CONDBIT")
	}
}

func TestFixCell_Idempotent(t *testing.T) {
	c := New(8, 8, NewWallet(100000), nil)
	for x := 0; x < 8; x++ {
		c.LayRoad(x, 3)
		c.LayWire(x, 5)
	}
	for y := 0; y < 8; y++ {
		c.LayRail(6, y)
	}
	c.PlaceZone(2, 1, Commercial)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c.FixCell(x, y)
			first := c.Grid().At(x, y)
			c.FixCell(x, y)
			if second := c.Grid().At(x, y); second != first {
				t.Fatalf("(%d,%d): %#x then %#x", x, y, first, second)
			}
		}
	}
}

func TestFixCell_LeavesBridgesAndOthersAlone(t *testing.T) {
	c := New(3, 3, nil, nil)
	g := c.Grid()
	g.Set(1, 1, tiles.HBridge|tiles.BULLBIT)
	g.Set(1, 0, tiles.Roads)
	c.FixCell(1, 1)
	if g.At(1, 1) != tiles.HBridge|tiles.BULLBIT {
		t.Fatalf("bridge rewritten to %#x", g.At(1, 1))
	}

	g.Set(2, 2, tiles.Woods|tiles.BULLBIT)
	c.FixCell(2, 2)
	if g.At(2, 2) != tiles.Woods|tiles.BULLBIT {
		t.Fatalf("park rewritten")
	}
	c.FixCell(-1, 5)
}

func TestFixZone_UpdatesNeighbors(t *testing.T) {
	c := New(5, 5, NewWallet(1000), nil)
	if res := c.LayRoad(2, 2); res != OK {
		t.Fatalf("road: %v", res)
	}
	if got := c.Grid().At(2, 2).Code(); got != roadTable[0] {
		t.Fatalf("lone road code=%d", got)
	}
	if res := c.LayRoad(3, 2); res != OK {
		t.Fatalf("road: %v", res)
	}
	if got := c.Grid().At(2, 2).Code(); got != roadTable[2] {
		t.Fatalf("west road code=%d want %d", got, roadTable[2])
	}
	if got := c.Grid().At(3, 2).Code(); got != roadTable[8] {
		t.Fatalf("east road code=%d want %d", got, roadTable[8])
	}
}
