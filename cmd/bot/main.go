package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/encoding"
	"micropolis.dev/internal/sim/tiles"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		token = flag.String("token", "", "ws token (when the server sets MC_WS_TOKEN)")
		ox    = flag.Int("x", 2, "plan origin x")
		oy    = flag.Int("y", 2, "plan origin y")
		zones = flag.Int("zones", 4, "zones to place along the power line")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	b := &bot{conn: conn, log: logger, name: *name, token: *token}
	sum, err := b.run(func(w protocol.WelcomeMsg) []protocol.ToolMsg {
		return plan(w.WorldParams.Width, w.WorldParams.Height, *ox, *oy, *zones)
	})
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Printf("done results=%v funds=%d", sum.Results, sum.Funds)
}

// plan lays a power plant, then a strip east of it: a wire, an alternating zone and a road
// underneath per slot. Steps falling outside the map are dropped.
func plan(width, height, ox, oy, zones int) []protocol.ToolMsg {
	var out []protocol.ToolMsg
	add := func(tool string, x, y int) {
		if x < 0 || y < 0 || x >= width || y >= height {
			return
		}
		out = append(out, protocol.ToolMsg{
			Type:            protocol.TypeTool,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("B%d", len(out)+1),
			Tool:            tool,
			X:               x,
			Y:               y,
		})
	}

	// Plant center; the 4x4 footprint spans ox-1..ox+2.
	add("POWER_PLANT", ox, oy)
	kinds := []string{"RESIDENTIAL", "COMMERCIAL", "INDUSTRIAL"}
	x := ox + 3
	for i := 0; i < zones; i++ {
		add("WIRE", x, oy)
		add(kinds[i%len(kinds)], x+2, oy)
		for dx := 0; dx < 4; dx++ {
			add("ROAD", x+dx, oy+2)
		}
		x += 4
	}
	add("QUERY", ox+5, oy)
	return out
}

type summary struct {
	Results map[string]int
	Funds   int
}

type bot struct {
	conn  *websocket.Conn
	log   *log.Logger
	name  string
	token string
}

// run performs the handshake then sends one TOOL at a time, waiting for each TOOL_RESULT.
func (b *bot) run(planFor func(protocol.WelcomeMsg) []protocol.ToolMsg) (summary, error) {
	sum := summary{Results: map[string]int{}}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      b.name,
		MaxQueue:        8,
	}
	if b.token != "" {
		hello.Auth = &protocol.HelloAuth{Token: b.token}
	}
	if err := b.conn.WriteJSON(hello); err != nil {
		return sum, fmt.Errorf("send HELLO: %w", err)
	}

	var steps []protocol.ToolMsg
	next := 0
	send := func() error {
		if next >= len(steps) {
			return nil
		}
		return b.conn.WriteJSON(steps[next])
	}

	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			return sum, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				return sum, err
			}
			cells, err := encoding.DecodeRLE(w.MapRLE, w.WorldParams.Width*w.WorldParams.Height)
			if err != nil {
				return sum, fmt.Errorf("welcome map: %w", err)
			}
			b.log.Printf("WELCOME session_id=%s size=%dx%d funds=%d built=%d",
				w.SessionID, w.WorldParams.Width, w.WorldParams.Height, w.Funds, countBuilt(cells))
			sum.Funds = w.Funds
			steps = planFor(w)
			if len(steps) == 0 {
				return sum, errors.New("empty plan")
			}
			if err := send(); err != nil {
				return sum, err
			}

		case protocol.TypeToolResult:
			var r protocol.ToolResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			sum.Results[r.Result]++
			sum.Funds = r.Funds
			if r.Query != nil {
				b.log.Printf("QUERY (%d,%d) %s powered=%v", r.X, r.Y, r.Query.Label, r.Query.Powered)
			} else if r.Code != "" {
				b.log.Printf("%s (%d,%d) %s code=%s", r.Tool, r.X, r.Y, r.Result, r.Code)
			}
			if r.Code == protocol.ErrRateLimit || r.Code == protocol.ErrWorldBusy {
				// Retry the same step after a short pause.
				time.Sleep(200 * time.Millisecond)
			} else {
				next++
			}
			if next >= len(steps) {
				return sum, nil
			}
			if err := send(); err != nil {
				return sum, err
			}
		}
	}
}

func countBuilt(cells []uint16) int {
	n := 0
	for _, c := range cells {
		if !tiles.IsDirt(tiles.Tile(c)) {
			n++
		}
	}
	return n
}
