package world

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/encoding"
	"micropolis.dev/internal/sim/tiles"
)

func testConfig() WorldConfig {
	return WorldConfig{
		ID:                  "test",
		TickRateHz:          5,
		Width:               32,
		Height:              24,
		Seed:                42,
		StartingFunds:       20000,
		PowerScanEveryTicks: 1,
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(testConfig())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func toolAct(session, id, tool string, x, y int) ActionEnvelope {
	return ActionEnvelope{SessionID: session, Tool: protocol.ToolMsg{
		Type:            protocol.TypeTool,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Tool:            tool,
		X:               x,
		Y:               y,
	}}
}

func join(t *testing.T, w *World, id string) chan []byte {
	t.Helper()
	out := make(chan []byte, 64)
	resp := make(chan JoinResponse, 1)
	w.StepOnce([]JoinRequest{{SessionID: id, Name: id, Out: out, Resp: resp}}, nil, nil)
	r := <-resp
	if r.Welcome.SessionID != id || r.Welcome.WorldParams.Width != 32 {
		t.Fatalf("welcome=%+v", r.Welcome)
	}
	if len(r.Welcome.Tools) != len(tiles.Tools()) {
		t.Fatalf("welcome tools=%d", len(r.Welcome.Tools))
	}
	if m, err := encoding.DecodeRLE(r.Welcome.MapRLE, 32*24); err != nil || len(m) != 32*24 {
		t.Fatalf("welcome map: len=%d err=%v", len(m), err)
	}
	return out
}

// drainResults returns every TOOL_RESULT queued on out.
func drainResults(t *testing.T, out chan []byte) []protocol.ToolResultMsg {
	t.Helper()
	var res []protocol.ToolResultMsg
	for {
		select {
		case b := <-out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if base.Type != protocol.TypeToolResult {
				continue
			}
			var m protocol.ToolResultMsg
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			res = append(res, m)
		default:
			return res
		}
	}
}

func TestWorld_ToolResultsAndPower(t *testing.T) {
	w := newTestWorld(t)
	out := join(t, w, "S1")

	acts := []ActionEnvelope{
		toolAct("S1", "T1", "power_plant", 5, 5),
		toolAct("S1", "T2", "RESIDENTIAL", 10, 10),
		toolAct("S1", "T3", "ROAD", 5, 5),
		toolAct("S1", "T4", "TELEPORT", 1, 1),
		toolAct("nobody", "T5", "ROAD", 1, 1),
	}
	w.StepOnce(nil, nil, acts)

	res := drainResults(t, out)
	if len(res) != 4 {
		t.Fatalf("results=%d want 4", len(res))
	}
	if res[0].Result != "ok" || res[0].Tool != "POWER_PLANT" || res[0].Cost != 3000 {
		t.Fatalf("plant result=%+v", res[0])
	}
	if res[1].Result != "ok" || res[1].Funds != 20000-3000-100 {
		t.Fatalf("residential result=%+v", res[1])
	}
	if res[2].Result != "must_clear_first" || res[2].Code != protocol.ErrBlocked {
		t.Fatalf("road on plant=%+v", res[2])
	}
	if res[3].Result != resultRejected || res[3].Code != protocol.ErrUnknownTool {
		t.Fatalf("unknown tool=%+v", res[3])
	}

	if w.lastScan.Coal != 1 || w.lastScan.MaxPower != 700 {
		t.Fatalf("power scan not run after edits: %+v", w.lastScan)
	}
	if w.counters.ok != 2 || w.counters.mustClear != 1 || w.counters.rejected != 1 {
		t.Fatalf("counters=%+v", w.counters)
	}
}

func TestWorld_QueryReportsLabel(t *testing.T) {
	w := newTestWorld(t)
	out := join(t, w, "S1")
	w.StepOnce(nil, nil, []ActionEnvelope{
		toolAct("S1", "A", "COMMERCIAL", 3, 3),
		toolAct("S1", "B", "QUERY", 3, 3),
	})
	res := drainResults(t, out)
	if len(res) != 2 || res[1].Query == nil {
		t.Fatalf("results=%+v", res)
	}
	if res[1].Query.Label != "Commercial Zone" || res[1].Cost != 0 {
		t.Fatalf("query=%+v", res[1])
	}
}

func TestWorld_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits = RateLimitConfig{ToolWindowTicks: 10, ToolMax: 2}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	out := join(t, w, "S1")
	w.StepOnce(nil, nil, []ActionEnvelope{
		toolAct("S1", "1", "WIRE", 1, 1),
		toolAct("S1", "2", "WIRE", 2, 1),
		toolAct("S1", "3", "WIRE", 3, 1),
	})
	res := drainResults(t, out)
	if len(res) != 3 || res[2].Code != protocol.ErrRateLimit {
		t.Fatalf("results=%+v", res)
	}
	for i := 0; i < 10; i++ {
		w.StepOnce(nil, nil, nil)
	}
	w.StepOnce(nil, nil, []ActionEnvelope{toolAct("S1", "4", "WIRE", 3, 1)})
	res = drainResults(t, out)
	if len(res) != 1 || res[0].Result != "ok" {
		t.Fatalf("after window=%+v", res)
	}
}

type memAudit struct{ entries []AuditEntry }

func (m *memAudit) WriteAudit(e AuditEntry) error { m.entries = append(m.entries, e); return nil }

type memTicks struct{ entries []TickLogEntry }

func (m *memTicks) WriteTick(e TickLogEntry) error { m.entries = append(m.entries, e); return nil }

func TestWorld_AuditAndTickLog(t *testing.T) {
	w := newTestWorld(t)
	audits := &memAudit{}
	ticks := &memTicks{}
	w.SetAuditLogger(audits)
	w.SetTickLogger(ticks)

	join(t, w, "S1")
	w.StepOnce(nil, nil, []ActionEnvelope{toolAct("S1", "A", "ROAD", 4, 4)})

	if len(audits.entries) != 1 {
		t.Fatalf("audits=%+v", audits.entries)
	}
	a := audits.entries[0]
	if a.Actor != "S1" || a.Reason != "ROAD" || a.Pos != [2]int{4, 4} || a.From != 0 || !tiles.IsRoad(tiles.Tile(a.To)) {
		t.Fatalf("audit=%+v", a)
	}
	if len(ticks.entries) != 2 || len(ticks.entries[0].Joins) != 1 || len(ticks.entries[1].Actions) != 1 {
		t.Fatalf("tick log=%+v", ticks.entries)
	}
	if ticks.entries[1].Digest == "" || ticks.entries[1].Digest == ticks.entries[0].Digest {
		t.Fatalf("digest did not change after edit")
	}
}

func TestWorld_ParkIsReproducible(t *testing.T) {
	run := func() []uint16 {
		w := newTestWorld(t)
		join(t, w, "S1")
		var acts []ActionEnvelope
		for x := 0; x < 8; x++ {
			acts = append(acts, toolAct("S1", "P", "PARK", x, 0))
		}
		w.StepOnce(nil, nil, acts)
		return w.tilesView().Tiles[:8]
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("park %d differs: %d vs %d", i, a[i], b[i])
		}
		if c := tiles.Tile(a[i]).Code(); c < tiles.Woods || c > tiles.Woods+3 {
			t.Fatalf("park code=%d", c)
		}
	}
}

func TestWorld_SnapshotRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	join(t, w, "S1")
	w.StepOnce(nil, nil, []ActionEnvelope{
		toolAct("S1", "A", "NUCLEAR", 6, 6),
		toolAct("S1", "B", "RAIL", 12, 3),
	})
	tick := w.CurrentTick() - 1
	snap := w.ExportSnapshot(tick)
	want := w.stateDigest(tick)

	w2 := newTestWorld(t)
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := w2.stateDigest(tick); got != want {
		t.Fatalf("digest mismatch after import")
	}
	if w2.CurrentTick() != tick+1 {
		t.Fatalf("tick=%d want %d", w2.CurrentTick(), tick+1)
	}

	bad := snap
	bad.Seed = 7
	if err := w2.ImportSnapshot(bad); err == nil {
		t.Fatalf("expected seed mismatch")
	}
}

func TestWorld_SnapshotSinkCadence(t *testing.T) {
	cfg := testConfig()
	cfg.SnapshotEveryTicks = 3
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)
	for i := 0; i < 7; i++ {
		w.StepOnce(nil, nil, nil)
	}
	if len(sink) != 2 {
		t.Fatalf("snapshots=%d want 2", len(sink))
	}
	if s := <-sink; s.Header.Tick != 3 {
		t.Fatalf("first snapshot tick=%d", s.Header.Tick)
	}
}

func TestWorld_RunServesAdminRequests(t *testing.T) {
	cfg := testConfig()
	cfg.TickRateHz = 50
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()

	view, err := w.RequestTiles(reqCtx)
	if err != nil {
		t.Fatalf("tiles: %v", err)
	}
	if view.Width != 32 || len(view.Tiles) != 32*24 || view.Funds != 20000 {
		t.Fatalf("view=%dx%d funds=%d", view.Width, view.Height, view.Funds)
	}
	if _, err := w.RequestSnapshot(reqCtx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	select {
	case s := <-sink:
		if s.Header.WorldID != "test" {
			t.Fatalf("snapshot world=%q", s.Header.WorldID)
		}
	case <-reqCtx.Done():
		t.Fatalf("snapshot not delivered")
	}
	if w.Metrics().Funds != 20000 {
		t.Fatalf("metrics=%+v", w.Metrics())
	}
}
