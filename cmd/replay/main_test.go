package main

import (
	"path/filepath"
	"testing"

	persistlog "micropolis.dev/internal/persistence/log"
	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/world"
)

func act(session, tool string, x, y int) world.ActionEnvelope {
	return world.ActionEnvelope{SessionID: session, Tool: protocol.ToolMsg{
		Type: protocol.TypeTool, ProtocolVersion: protocol.Version, Tool: tool, X: x, Y: y,
	}}
}

// recordRun drives a world for a few ticks with the JSONL tick logger attached and returns the
// snapshot taken after tick 2 plus the events dir.
func recordRun(t *testing.T) (snapshot.SnapshotV1, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := world.New(world.WorldConfig{ID: "replay", Width: 24, Height: 16, Seed: 9, StartingFunds: 10000})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	script := map[int][]world.ActionEnvelope{
		1: {act("S1", "POWER_PLANT", 2, 2)},
		2: {act("S1", "WIRE", 5, 2), act("S1", "WIRE", 6, 2)},
		4: {act("S1", "RESIDENTIAL", 8, 2), act("S1", "PARK", 12, 12), act("S1", "PARK", 13, 12)},
		6: {act("S1", "BULLDOZER", 6, 2)},
		7: {act("S1", "ROAD", 0, 10), act("S1", "ROAD", 1, 10)},
	}
	var snap snapshot.SnapshotV1
	for tick := 0; tick < 9; tick++ {
		var joins []world.JoinRequest
		if tick == 0 {
			joins = []world.JoinRequest{{SessionID: "S1", Name: "mayor"}}
		}
		w.StepOnce(joins, nil, script[tick])
		if tick == 2 {
			snap = w.ExportSnapshot(2)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return snap, filepath.Join(dir, "events")
}

func TestReplay_VerifiesDigestsFromSnapshot(t *testing.T) {
	snap, events := recordRun(t)

	w, err := worldFromSnapshot(snap)
	if err != nil {
		t.Fatalf("%v", err)
	}
	files, err := persistlog.Files(events, "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	r := newReplayer(w, 0, 0)
	for _, f := range files {
		if err := r.replayFile(f); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	if r.checked != 6 || w.CurrentTick() != 9 {
		t.Fatalf("checked=%d tick=%d", r.checked, w.CurrentTick())
	}
}

func TestReplay_StopsAtToTick(t *testing.T) {
	snap, events := recordRun(t)
	w, err := worldFromSnapshot(snap)
	if err != nil {
		t.Fatalf("%v", err)
	}
	files, _ := persistlog.Files(events, "events")
	r := newReplayer(w, 5, 6)
	for _, f := range files {
		if err := r.replayFile(f); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	if !r.done || r.checked != 2 || w.CurrentTick() != 7 {
		t.Fatalf("done=%v checked=%d tick=%d", r.done, r.checked, w.CurrentTick())
	}
}

func TestReplay_DetectsTamperedDigest(t *testing.T) {
	snap, _ := recordRun(t)
	w, err := worldFromSnapshot(snap)
	if err != nil {
		t.Fatalf("%v", err)
	}
	r := newReplayer(w, 0, 0)
	err = r.step(world.TickLogEntry{Tick: 3, Actions: []world.RecordedAction{{SessionID: "S9", Tool: protocol.ToolMsg{Tool: "ROAD", X: 1, Y: 1}}}, Digest: "bogus"})
	if err == nil {
		t.Fatalf("expected digest mismatch")
	}
	if !r.known["S9"] {
		t.Fatalf("unjoined session was not attached")
	}
}
