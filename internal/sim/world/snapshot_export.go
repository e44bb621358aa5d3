package world

import (
	"micropolis.dev/internal/persistence/snapshot"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	// Snapshot must be called from the world loop goroutine.
	g := w.city.Grid()
	cells := g.Cells()
	raw := make([]uint16, len(cells))
	for i, t := range cells {
		raw[i] = uint16(t)
	}
	s := w.lastScan
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
			Width:   g.Width(),
			Height:  g.Height(),
			Funds:   w.wallet.Available(),
		},
		Seed:                w.cfg.Seed,
		TickRate:            w.cfg.TickRateHz,
		StartingFunds:       w.cfg.StartingFunds,
		PowerScanEveryTicks: w.cfg.PowerScanEveryTicks,
		SnapshotEveryTicks:  w.cfg.SnapshotEveryTicks,
		RateLimits: snapshot.RateLimitsV1{
			ToolWindowTicks: w.cfg.RateLimits.ToolWindowTicks,
			ToolMax:         w.cfg.RateLimits.ToolMax,
		},
		Tiles: raw,
		Power: &snapshot.PowerV1{
			Capacity:       s.MaxPower,
			Used:           s.NumPower,
			PoweredZones:   s.Powered,
			UnpoweredZones: s.Unpowered,
			Aborted:        s.Aborted,
		},
	}
}
