package city

import (
	"testing"

	"micropolis.dev/internal/sim/tiles"
)

func coalCenter() tiles.Tile {
	return tiles.PowerPlant | tiles.ZONEBIT | tiles.BULLBIT | tiles.CONDBIT
}

func wire() tiles.Tile {
	return tiles.HPower | tiles.CONDBIT | tiles.BULLBIT | tiles.BURNBIT
}

func TestPowerScan_NoPlantsPowersNothing(t *testing.T) {
	c := New(10, 10, NewWallet(100000), nil)
	if res := c.PlaceZone(2, 2, Residential); res != OK {
		t.Fatalf("place residential: %v", res)
	}
	for x := 4; x < 10; x++ {
		c.Grid().Set(x, 2, wire())
	}
	// Leftover power bits from a previous scan must not survive.
	c.Grid().Set(5, 2, wire()|tiles.PWRBIT)

	res := c.PowerScan()
	if res.MaxPower != 0 || res.NumPower != 0 {
		t.Fatalf("expected zero capacity, got %+v", res)
	}
	if res.Powered != 0 || res.Unpowered != 1 {
		t.Fatalf("zone counts: %+v", res)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if c.Grid().At(x, y).Powered() || c.PowerMap().Powered(x, y) {
				t.Fatalf("cell (%d,%d) powered without plants", x, y)
			}
		}
	}
	if c.PowerMap().Count() != 0 {
		t.Fatalf("power map count=%d", c.PowerMap().Count())
	}
}

func TestPowerScan_TwoByTwo(t *testing.T) {
	c := New(2, 2, nil, nil)
	c.Grid().Set(0, 0, coalCenter())
	c.Grid().Set(1, 0, wire())

	res := c.PowerScan()
	if !c.PowerMap().Powered(0, 0) || !c.PowerMap().Powered(1, 0) {
		t.Fatalf("plant and wire should be powered: %+v", res)
	}
	if c.PowerMap().Powered(0, 1) || c.PowerMap().Powered(1, 1) {
		t.Fatalf("unconnected cells powered")
	}
	if !c.Grid().At(1, 0).Powered() {
		t.Fatalf("PWRBIT missing on wire")
	}
	if res.Coal != 1 || res.MaxPower != CoalCapacity {
		t.Fatalf("capacity: %+v", res)
	}
	if res.Powered != 1 || res.Unpowered != 0 {
		t.Fatalf("zone counts: %+v", res)
	}
}

func straightLine(n int) *City {
	c := New(n+1, 1, nil, nil)
	c.Grid().Set(0, 0, coalCenter())
	for x := 1; x <= n; x++ {
		c.Grid().Set(x, 0, wire())
	}
	return c
}

func TestPowerScan_StraightPathWithinCapacity(t *testing.T) {
	c := straightLine(699)
	res := c.PowerScan()
	if res.Aborted {
		t.Fatalf("scan aborted: %+v", res)
	}
	if got := c.PowerMap().Count(); got != 700 {
		t.Fatalf("powered=%d want 700", got)
	}
	if !c.PowerMap().Powered(699, 0) {
		t.Fatalf("far end unpowered")
	}
}

func TestPowerScan_CapacityCutoff(t *testing.T) {
	c := New(1000, 1, nil, nil)
	c.Grid().Set(0, 0, coalCenter())
	for x := 1; x < 1000; x++ {
		c.Grid().Set(x, 0, wire())
	}
	res := c.PowerScan()
	if !res.Aborted {
		t.Fatalf("expected abort: %+v", res)
	}
	if got := c.PowerMap().Count(); got != CoalCapacity {
		t.Fatalf("powered=%d want %d", got, CoalCapacity)
	}
	if !c.PowerMap().Powered(699, 0) || c.PowerMap().Powered(700, 0) {
		t.Fatalf("cutoff at wrong cell")
	}
}

func TestPowerScan_NuclearCapacity(t *testing.T) {
	c := New(3000, 1, nil, nil)
	c.Grid().Set(0, 0, tiles.Nuclear|tiles.ZONEBIT|tiles.CONDBIT|tiles.BULLBIT)
	for x := 1; x < 3000; x++ {
		c.Grid().Set(x, 0, wire())
	}
	res := c.PowerScan()
	if res.Nuclear != 1 || res.MaxPower != NuclearCapacity {
		t.Fatalf("capacity: %+v", res)
	}
	if got := c.PowerMap().Count(); got != NuclearCapacity {
		t.Fatalf("powered=%d want %d", got, NuclearCapacity)
	}
}

func TestPowerScan_BranchesBothWays(t *testing.T) {
	// Plant in the middle of a horizontal line: both arms get power.
	c := New(21, 1, nil, nil)
	for x := 0; x < 21; x++ {
		c.Grid().Set(x, 0, wire())
	}
	c.Grid().Set(10, 0, coalCenter())
	c.PowerScan()
	for x := 0; x < 21; x++ {
		if !c.PowerMap().Powered(x, 0) {
			t.Fatalf("cell %d unpowered", x)
		}
	}
}

func TestPowerScan_PlantsDoNotConductEachOther(t *testing.T) {
	c := New(3, 1, nil, nil)
	c.Grid().Set(0, 0, coalCenter())
	c.Grid().Set(1, 0, wire())
	c.Grid().Set(2, 0, coalCenter())
	res := c.PowerScan()
	if res.MaxPower != 2*CoalCapacity {
		t.Fatalf("capacity: %+v", res)
	}
	if res.NumPower != 3 {
		t.Fatalf("num power=%d want 3", res.NumPower)
	}
}

func TestPowerScan_SmallZonesCarryPower(t *testing.T) {
	c := New(12, 5, NewWallet(100000), nil)
	c.Grid().Set(0, 2, coalCenter())
	if res := c.PlaceZone(2, 2, Residential); res != OK {
		t.Fatalf("place residential: %v", res)
	}
	if res := c.LayWire(4, 2); res != OK {
		t.Fatalf("wire: %v", res)
	}
	if res := c.PlaceZone(6, 2, Commercial); res != OK {
		t.Fatalf("place commercial: %v", res)
	}
	res := c.PowerScan()
	if res.Powered != 3 || res.Unpowered != 0 {
		t.Fatalf("zone counts: %+v", res)
	}
	if !c.Grid().At(7, 3).Powered() {
		t.Fatalf("commercial corner unpowered")
	}
}

func TestPowerScan_LargeFootprintOnlyCenterConducts(t *testing.T) {
	c := New(12, 8, NewWallet(100000), nil)
	if res := c.PlaceZone(3, 3, CoalPlant); res != OK {
		t.Fatalf("place plant: %v", res)
	}
	for x := 5; x < 9; x++ {
		c.LayWire(x, 3)
	}
	res := c.PowerScan()
	if res.NumPower != 1 || c.PowerMap().Count() != 1 {
		t.Fatalf("plant should only power its own center: %+v", res)
	}
	if c.PowerMap().Powered(5, 3) {
		t.Fatalf("wire beside non-conductive plant edge powered")
	}
}

func TestPowerStack_DropsBeyondGuard(t *testing.T) {
	var s powerStack
	for i := 0; i < PowerStackSize+5; i++ {
		s.push(point{i, 0})
	}
	if len(s.items) != PowerStackSize-2 {
		t.Fatalf("stack len=%d want %d", len(s.items), PowerStackSize-2)
	}
	if s.dropped != 7 {
		t.Fatalf("dropped=%d want 7", s.dropped)
	}
	p, ok := s.pop()
	if !ok || p.x != PowerStackSize-3 {
		t.Fatalf("pop=%v,%v", p, ok)
	}
	s.reset()
	if _, ok := s.pop(); ok {
		t.Fatalf("reset stack not empty")
	}
}
