package worldtest

import (
	"encoding/json"
	"strconv"
	"testing"

	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/encoding"
	"micropolis.dev/internal/sim/tiles"
	world "micropolis.dev/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Join() issues JoinRequest via StepOnce()
// - Tool()/ToolFor() issue one TOOL per tick via StepOnce()
// - Per-session Out channels carry TOOL_RESULT and STATE JSON
//
// It avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T *testing.T
	W *world.World

	DefaultSessionID string

	sessions map[string]*session
	nextID   int
}

type session struct {
	ID        string
	Out       chan []byte
	Welcome   protocol.WelcomeMsg
	Results   []protocol.ToolResultMsg
	LastState protocol.StateMsg
	States    int
}

func NewHarness(t *testing.T, cfg world.WorldConfig, mayor string) *Harness {
	t.Helper()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := NewHarnessWithWorld(t, w)
	h.DefaultSessionID = h.Join(mayor)
	return h
}

// NewHarnessWithWorld wraps an existing world without joining, so a snapshot can be imported first.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, W: w, sessions: map[string]*session{}}
}

// Join spends one tick joining a new session with a harness-assigned id.
func (h *Harness) Join(name string) string {
	h.T.Helper()
	h.nextID++
	id := "M" + strconv.Itoa(h.nextID)
	h.JoinAs(id, name)
	return id
}

func (h *Harness) JoinAs(id, name string) {
	h.T.Helper()
	out := make(chan []byte, 64)
	resp := make(chan world.JoinResponse, 1)
	h.W.StepOnce([]world.JoinRequest{{SessionID: id, Name: name, Out: out, Resp: resp}}, nil, nil)
	jr := <-resp
	if jr.Welcome.SessionID != id {
		h.T.Fatalf("join: got session %q want %q", jr.Welcome.SessionID, id)
	}
	h.sessions[id] = &session{ID: id, Out: out, Welcome: jr.Welcome}
	if h.DefaultSessionID == "" {
		h.DefaultSessionID = id
	}
	h.drainAll()
}

func (h *Harness) Leave(id string) {
	h.T.Helper()
	h.W.StepOnce(nil, []string{id}, nil)
	h.drainAll()
	delete(h.sessions, id)
}

func (h *Harness) Welcome(id string) protocol.WelcomeMsg { return h.mustSession(id).Welcome }

// Tool applies one tool for the default session and returns its result.
func (h *Harness) Tool(tool string, x, y int) protocol.ToolResultMsg {
	return h.ToolFor(h.DefaultSessionID, tool, x, y)
}

func (h *Harness) ToolFor(id, tool string, x, y int) protocol.ToolResultMsg {
	h.T.Helper()
	s := h.mustSession(id)
	n := len(s.Results)
	h.Step(Act(id, tool, x, y))
	if len(s.Results) != n+1 {
		h.T.Fatalf("%s %s(%d,%d): got %d results", id, tool, x, y, len(s.Results)-n)
	}
	return s.Results[n]
}

// Step runs one tick with the given actions and returns the tick's digest.
func (h *Harness) Step(actions ...world.ActionEnvelope) (uint64, string) {
	h.T.Helper()
	tick, digest := h.W.StepOnce(nil, nil, actions)
	h.drainAll()
	return tick, digest
}

func (h *Harness) Results(id string) []protocol.ToolResultMsg { return h.mustSession(id).Results }
func (h *Harness) LastState(id string) protocol.StateMsg      { return h.mustSession(id).LastState }
func (h *Harness) StateCount(id string) int                   { return h.mustSession(id).States }

// Snapshot exports at the last completed tick, so importing resumes at CurrentTick.
func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	h.T.Helper()
	cur := h.W.CurrentTick()
	if cur == 0 {
		return h.W.ExportSnapshot(0)
	}
	return h.W.ExportSnapshot(cur - 1)
}

func (h *Harness) At(x, y int) tiles.Tile {
	h.T.Helper()
	s := h.Snapshot()
	if x < 0 || y < 0 || x >= s.Header.Width || y >= s.Header.Height {
		h.T.Fatalf("At(%d,%d) out of bounds", x, y)
	}
	return tiles.Tile(s.Tiles[y*s.Header.Width+x])
}

// Act builds a TOOL envelope.
func Act(id, tool string, x, y int) world.ActionEnvelope {
	return world.ActionEnvelope{SessionID: id, Tool: protocol.ToolMsg{
		Type:            protocol.TypeTool,
		ProtocolVersion: protocol.Version,
		ID:              tool + "@" + strconv.Itoa(x) + "," + strconv.Itoa(y),
		Tool:            tool,
		X:               x,
		Y:               y,
	}}
}

// DecodeMap returns the map carried by a WELCOME.
func DecodeMap(t *testing.T, w protocol.WelcomeMsg) []uint16 {
	t.Helper()
	m, err := encoding.DecodeRLE(w.MapRLE, w.WorldParams.Width*w.WorldParams.Height)
	if err != nil {
		t.Fatalf("decode welcome map: %v", err)
	}
	return m
}

func (h *Harness) mustSession(id string) *session {
	h.T.Helper()
	s := h.sessions[id]
	if s == nil {
		h.T.Fatalf("unknown session id: %q", id)
	}
	return s
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	for {
		var b []byte
		select {
		case b = <-s.Out:
		default:
			return
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			h.T.Fatalf("decode: %v", err)
		}
		switch base.Type {
		case protocol.TypeToolResult:
			var m protocol.ToolResultMsg
			if err := json.Unmarshal(b, &m); err != nil {
				h.T.Fatalf("unmarshal TOOL_RESULT: %v", err)
			}
			s.Results = append(s.Results, m)
		case protocol.TypeState:
			var m protocol.StateMsg
			if err := json.Unmarshal(b, &m); err != nil {
				h.T.Fatalf("unmarshal STATE: %v", err)
			}
			s.LastState = m
			s.States++
		}
	}
}
