package world

type WorldConfig struct {
	ID         string
	TickRateHz int
	Width      int
	Height     int
	Seed       int64

	StartingFunds int

	// Operational parameters. These are included in snapshots for deterministic replay/resume.
	PowerScanEveryTicks int
	SnapshotEveryTicks  int
	RateLimits          RateLimitConfig
}

type RateLimitConfig struct {
	ToolWindowTicks int
	ToolMax         int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "city"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.Width <= 0 {
		c.Width = 120
	}
	if c.Height <= 0 {
		c.Height = 100
	}
	if c.StartingFunds < 0 {
		c.StartingFunds = 0
	}
	// Zero keeps the scan edit-driven only.
	if c.PowerScanEveryTicks < 0 {
		c.PowerScanEveryTicks = 0
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
	c.RateLimits.applyDefaults()
}

func (rl *RateLimitConfig) applyDefaults() {
	if rl.ToolWindowTicks <= 0 {
		rl.ToolWindowTicks = 5
	}
	if rl.ToolMax <= 0 {
		rl.ToolMax = 20
	}
}
