package worldtest

import (
	"testing"

	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/tiles"
	world "micropolis.dev/internal/sim/world"
)

func cityConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:            "test",
		TickRateHz:    5,
		Width:         24,
		Height:        16,
		Seed:          42,
		StartingFunds: 10000,
	}
}

// seededPlant starts a world whose map holds a bare coal plant center at (0,2), so wires laid
// east of it are reachable by the power walk.
func seededPlant(t *testing.T) *Harness {
	t.Helper()
	cfg := cityConfig()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	snap := w.ExportSnapshot(0)
	snap.Tiles[2*cfg.Width+0] = uint16(tiles.PowerPlant | tiles.ZONEBIT | tiles.BULLBIT | tiles.CONDBIT)
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	h := NewHarnessWithWorld(t, w)
	h.JoinAs("mayor", "mayor")
	return h
}

func TestScenario_PowerFollowsWires(t *testing.T) {
	h := seededPlant(t)
	for _, a := range []struct {
		tool string
		x, y int
	}{
		{"WIRE", 1, 2},
		{"WIRE", 2, 2},
		{"RESIDENTIAL", 4, 2},
	} {
		if r := h.Tool(a.tool, a.x, a.y); r.Result != "ok" {
			t.Fatalf("%s(%d,%d)=%+v", a.tool, a.x, a.y, r)
		}
	}

	q := h.Tool("QUERY", 4, 2)
	if q.Query == nil || !q.Query.Powered || q.Query.Label != "Residential Zone" {
		t.Fatalf("zone query=%+v", q.Query)
	}
	// The plant's own center counts as a powered zone.
	st := h.LastState(h.DefaultSessionID)
	if st.Power == nil || st.Power.PoweredZones != 2 || st.Power.UnpoweredZones != 0 {
		t.Fatalf("state power=%+v", st.Power)
	}

	if r := h.Tool("BULLDOZER", 2, 2); r.Result != "ok" || r.Cost != tiles.CostBulldoze {
		t.Fatalf("bulldoze=%+v", r)
	}
	if h.At(4, 2).Powered() {
		t.Fatalf("zone still powered after cutting the wire")
	}
	st = h.LastState(h.DefaultSessionID)
	if st.Power == nil || st.Power.PoweredZones != 1 || st.Power.UnpoweredZones != 1 {
		t.Fatalf("state power after cut=%+v", st.Power)
	}
	cleared := false
	for _, c := range st.Changes {
		if c.X == 2 && c.Y == 2 && tiles.IsDirt(tiles.Tile(c.Tile)) {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("state changes=%+v", st.Changes)
	}
}

func TestScenario_PlacedPlantEdgeDoesNotConduct(t *testing.T) {
	h := NewHarness(t, cityConfig(), "mayor")
	for _, a := range []struct {
		tool string
		x, y int
	}{
		{"POWER_PLANT", 2, 2},
		{"WIRE", 5, 2},
		{"WIRE", 6, 2},
		{"RESIDENTIAL", 8, 2},
	} {
		if r := h.Tool(a.tool, a.x, a.y); r.Result != "ok" {
			t.Fatalf("%s(%d,%d)=%+v", a.tool, a.x, a.y, r)
		}
	}
	if !h.At(2, 2).Powered() {
		t.Fatalf("plant center unpowered")
	}
	if h.At(5, 2).Powered() || h.At(8, 2).Powered() {
		t.Fatalf("power crossed a non-conductive plant edge")
	}
	st := h.LastState(h.DefaultSessionID)
	if st.Power == nil || st.Power.Used != 1 || st.Power.UnpoweredZones != 1 {
		t.Fatalf("state power=%+v", st.Power)
	}
}

func TestScenario_FundsAndResults(t *testing.T) {
	cfg := cityConfig()
	cfg.StartingFunds = 120
	h := NewHarness(t, cfg, "mayor")

	if r := h.Tool("RESIDENTIAL", 4, 4); r.Result != "ok" || r.Funds != 20 {
		t.Fatalf("residential=%+v", r)
	}
	r := h.Tool("POWER_PLANT", 12, 8)
	if r.Result != "insufficient_funds" || r.Code != protocol.ErrNoFunds || r.Cost != 0 || r.Funds != 20 {
		t.Fatalf("plant=%+v", r)
	}
	if r := h.Tool("ROAD", 4, 4); r.Result != "must_clear_first" || r.Code != protocol.ErrBlocked {
		t.Fatalf("road on zone=%+v", r)
	}
	if r := h.Tool("ROAD", 99, 99); r.Result != "failed" || r.Code != protocol.ErrInvalidTarget {
		t.Fatalf("road off map=%+v", r)
	}
	if r := h.Tool("ROAD", 10, 10); r.Result != "ok" || r.Cost != tiles.CostRoad || r.Funds != 10 {
		t.Fatalf("road=%+v", r)
	}
	if got := h.LastState(h.DefaultSessionID).Funds; got != 10 {
		t.Fatalf("state funds=%d", got)
	}
}

func TestScenario_ResultsGoOnlyToActor(t *testing.T) {
	h := NewHarness(t, cityConfig(), "mayor")
	other := h.Join("deputy")

	if got := len(DecodeMap(t, h.Welcome(other))); got != 24*16 {
		t.Fatalf("welcome map cells=%d", got)
	}

	h.Step(Act(h.DefaultSessionID, "ROAD", 1, 1), Act(other, "RAIL", 3, 1))
	a, b := h.Results(h.DefaultSessionID), h.Results(other)
	if len(a) != 1 || a[0].Tool != "ROAD" || len(b) != 1 || b[0].Tool != "RAIL" {
		t.Fatalf("results mayor=%+v deputy=%+v", a, b)
	}
	if a[0].Funds != 10000-10 || b[0].Funds != 10000-10-20 {
		t.Fatalf("shared funds: %d then %d", a[0].Funds, b[0].Funds)
	}
	for _, id := range []string{h.DefaultSessionID, other} {
		if st := h.LastState(id); len(st.Changes) != 2 {
			t.Fatalf("%s state changes=%+v", id, st.Changes)
		}
	}

	// A late joiner sees the built map in its WELCOME.
	late := h.Join("late")
	m := DecodeMap(t, h.Welcome(late))
	if !tiles.IsRoad(tiles.Tile(m[1*24+1])) || !tiles.IsRail(tiles.Tile(m[1*24+3])) {
		t.Fatalf("late welcome map missing edits: %d %d", m[1*24+1], m[1*24+3])
	}

	h.Leave(other)
	before := h.StateCount(h.DefaultSessionID)
	h.Step(Act(other, "ROAD", 5, 5))
	if !tiles.IsDirt(h.At(5, 5)) || h.StateCount(h.DefaultSessionID) != before {
		t.Fatalf("action from departed session was applied")
	}
}
