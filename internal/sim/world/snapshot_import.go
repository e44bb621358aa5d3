package world

import (
	"fmt"

	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/sim/tiles"
)

// ImportSnapshot replaces the current in-memory city with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if err := s.Validate(); err != nil {
		return err
	}

	// Basic parameter consistency checks.
	if w.cfg.Seed != s.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}
	g := w.city.Grid()
	if g.Width() != s.Header.Width || g.Height() != s.Header.Height {
		return fmt.Errorf("snapshot size mismatch: cfg=%dx%d snap=%dx%d", g.Width(), g.Height(), s.Header.Width, s.Header.Height)
	}

	// Operational parameters: snapshot is authoritative when present.
	if s.SnapshotEveryTicks > 0 {
		w.cfg.SnapshotEveryTicks = s.SnapshotEveryTicks
	}
	if s.PowerScanEveryTicks > 0 {
		w.cfg.PowerScanEveryTicks = s.PowerScanEveryTicks
	}
	if s.RateLimits.ToolWindowTicks > 0 {
		w.cfg.RateLimits.ToolWindowTicks = s.RateLimits.ToolWindowTicks
	}
	if s.RateLimits.ToolMax > 0 {
		w.cfg.RateLimits.ToolMax = s.RateLimits.ToolMax
	}

	cells := make([]tiles.Tile, len(s.Tiles))
	for i, v := range s.Tiles {
		cells[i] = tiles.Tile(v)
	}
	if err := g.Load(cells); err != nil {
		return err
	}
	w.wallet.Set(s.Header.Funds)
	w.lastScan = w.city.PowerScan()
	w.powerTick = s.Header.Tick
	w.changes = w.changes[:0]
	w.tick.Store(s.Header.Tick + 1)
	return nil
}
