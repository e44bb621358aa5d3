package main

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/tiles"
	"micropolis.dev/internal/sim/world"
	"micropolis.dev/internal/transport/ws"
)

func TestPlan_StaysInBounds(t *testing.T) {
	steps := plan(20, 8, 2, 2, 6)
	if len(steps) == 0 || steps[0].Tool != "POWER_PLANT" {
		t.Fatalf("plan=%+v", steps)
	}
	seen := map[string]bool{}
	for _, s := range steps {
		if s.X < 0 || s.Y < 0 || s.X >= 20 || s.Y >= 8 {
			t.Fatalf("step out of bounds: %+v", s)
		}
		if _, ok := tiles.ParseTool(s.Tool); !ok {
			t.Fatalf("unknown tool %q", s.Tool)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate id %s", s.ID)
		}
		seen[s.ID] = true
		if s.Type != protocol.TypeTool || s.ProtocolVersion != protocol.Version {
			t.Fatalf("bad envelope: %+v", s)
		}
	}
	if steps[len(steps)-1].Tool != "QUERY" {
		t.Fatalf("plan should end with a query")
	}
}

func TestBot_RunsPlanOverWebsocket(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "bot", TickRateHz: 50, Width: 40, Height: 12, Seed: 3, StartingFunds: 5000})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	srv := httptest.NewServer(ws.NewServer(w, nil).Handler())
	defer func() {
		srv.Close()
		cancel()
		<-done
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	b := &bot{conn: conn, log: log.New(io.Discard, "", 0), name: "tester"}
	sum, err := b.run(func(wm protocol.WelcomeMsg) []protocol.ToolMsg {
		return plan(wm.WorldParams.Width, wm.WorldParams.Height, 2, 2, 2)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// plant + 2*(wire, zone, 4 roads) + query
	if sum.Results["ok"] != 14 || len(sum.Results) != 1 {
		t.Fatalf("results=%v", sum.Results)
	}
	if want := 5000 - 3000 - 2*(tiles.CostWire+100+4*tiles.CostRoad); sum.Funds != want {
		t.Fatalf("funds=%d want %d", sum.Funds, want)
	}

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	view, err := w.RequestTiles(reqCtx)
	if err != nil {
		t.Fatalf("tiles: %v", err)
	}
	if !tiles.IsRoad(tiles.Tile(view.Tiles[4*40+5])) || !tiles.Tile(view.Tiles[2*40+7]).ZoneCenter() {
		t.Fatalf("map missing bot edits")
	}
}
