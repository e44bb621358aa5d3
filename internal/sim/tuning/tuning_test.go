package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "tick_rate_hz: 10\nworld_width: 64\nstarting_funds: 500\nrate_limits:\n  tool_max: 3\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 10 || tu.WorldWidth != 64 || tu.StartingFunds != 500 {
		t.Fatalf("overrides not applied: %+v", tu)
	}
	if tu.WorldHeight != Defaults().WorldHeight || tu.PowerScanEveryTicks != 1 {
		t.Fatalf("defaults lost: %+v", tu)
	}
	if tu.RateLimits.ToolMax != 3 || tu.RateLimits.ToolWindowTicks != 5 {
		t.Fatalf("rate limits: %+v", tu.RateLimits)
	}
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("tick_rate_hz: [1"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	neg := filepath.Join(dir, "neg.yaml")
	_ = os.WriteFile(neg, []byte("world_width: -4\n"), 0o644)
	if _, err := Load(neg); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.ProtocolVersion != "1.0" {
		t.Fatalf("protocol_version=%q", tu.ProtocolVersion)
	}
}
