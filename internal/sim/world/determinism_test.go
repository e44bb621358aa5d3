package world

import (
	"fmt"
	"testing"
)

func TestDeterminism_FixedActionsSameDigest(t *testing.T) {
	w1 := newTestWorld(t)
	w2 := newTestWorld(t)

	join(t, w1, "S1")
	join(t, w2, "S1")

	script := func(tick int) []ActionEnvelope {
		id := fmt.Sprintf("K%d", tick)
		switch tick {
		case 0:
			return []ActionEnvelope{toolAct("S1", id, "POWER_PLANT", 3, 3)}
		case 1:
			var acts []ActionEnvelope
			for x := 6; x < 12; x++ {
				acts = append(acts, toolAct("S1", id, "WIRE", x, 3))
			}
			return acts
		case 2:
			return []ActionEnvelope{toolAct("S1", id, "INDUSTRIAL", 13, 3), toolAct("S1", id, "PARK", 20, 20)}
		case 5:
			return []ActionEnvelope{toolAct("S1", id, "BULLDOZER", 14, 4)}
		}
		return nil
	}

	for tick := 0; tick < 20; tick++ {
		acts := script(tick)
		t1, d1 := w1.StepOnce(nil, nil, acts)
		t2, d2 := w2.StepOnce(nil, nil, acts)
		if t1 != t2 || d1 != d2 {
			t.Fatalf("tick %d diverged: %d/%s vs %d/%s", tick, t1, d1, t2, d2)
		}
	}
}
