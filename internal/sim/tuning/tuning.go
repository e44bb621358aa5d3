package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz    int   `yaml:"tick_rate_hz"`
	WorldWidth    int   `yaml:"world_width"`
	WorldHeight   int   `yaml:"world_height"`
	Seed          int64 `yaml:"seed"`
	StartingFunds int   `yaml:"starting_funds"`

	PowerScanEveryTicks int `yaml:"power_scan_every_ticks"`
	SnapshotEveryTicks  int `yaml:"snapshot_every_ticks"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

// RateLimits caps tool requests per session inside a sliding window of ticks.
type RateLimits struct {
	ToolWindowTicks int `yaml:"tool_window_ticks"`
	ToolMax         int `yaml:"tool_max"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickRateHz:          5,
		WorldWidth:          120,
		WorldHeight:         100,
		Seed:                1337,
		StartingFunds:       20000,
		PowerScanEveryTicks: 1,
		SnapshotEveryTicks:  3000,
		RateLimits:          RateLimits{ToolWindowTicks: 5, ToolMax: 20},
	}
}

// Load reads a tuning file over Defaults; keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0, got %d", t.TickRateHz)
	case t.WorldWidth <= 0 || t.WorldHeight <= 0:
		return fmt.Errorf("world size must be positive, got %dx%d", t.WorldWidth, t.WorldHeight)
	case t.StartingFunds < 0:
		return fmt.Errorf("starting_funds must be >= 0, got %d", t.StartingFunds)
	case t.PowerScanEveryTicks < 0 || t.SnapshotEveryTicks < 0:
		return fmt.Errorf("cadences must be >= 0")
	}
	return nil
}
