package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/city"
	"micropolis.dev/internal/sim/encoding"
	"micropolis.dev/internal/sim/tiles"
)

type JoinRequest struct {
	// SessionID is assigned by the transport; empty lets the world pick one.
	SessionID string
	Name      string
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	SessionID string
	Tool      protocol.ToolMsg
}

type RecordedJoin struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// World is a single-threaded authoritative simulation of one city.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig

	tick atomic.Uint64

	city   *city.City
	wallet *city.Wallet

	clients map[string]*clientState

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	admin chan adminSnapshotReq
	tiles chan adminTilesReq
	stop  chan struct{}

	nextSessionNum atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	lastScan  city.ScanResult
	powerTick uint64

	// Per-step change capture, filled by the grid observer.
	curTick   uint64
	curActor  string
	curReason string
	changes   []cellChange

	counters resultCounters
	metrics  atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Power   *city.ScanResult `json:"power,omitempty"` // set on ticks that rescanned
	Digest  string           `json:"digest"`
}

type RecordedAction struct {
	SessionID string           `json:"session_id"`
	Tool      protocol.ToolMsg `json:"tool"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // "SET_TILE"
	Pos    [2]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type cellChange struct {
	x, y     int
	from, to tiles.Tile
	actor    string
	reason   string
}

type clientState struct {
	Name string
	Out  chan []byte

	windowStart uint64
	windowCount int
}

func New(cfg WorldConfig) (*World, error) {
	cfg.applyDefaults()
	if cfg.Width*cfg.Height > 4096*4096 {
		return nil, fmt.Errorf("world %dx%d too large", cfg.Width, cfg.Height)
	}
	wallet := city.NewWallet(cfg.StartingFunds)
	w := &World{
		cfg:     cfg,
		wallet:  wallet,
		city:    city.New(cfg.Width, cfg.Height, wallet, nil),
		clients: map[string]*clientState{},
		inbox:   make(chan ActionEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		admin:   make(chan adminSnapshotReq, 8),
		tiles:   make(chan adminTilesReq, 8),
		stop:    make(chan struct{}),
	}
	w.city.Grid().OnChange(w.recordChange)
	w.lastScan = w.city.PowerScan()
	w.publishMetrics(0, 0)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingSnapshots []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingActions = append(pendingActions, env)
		case req := <-w.admin:
			pendingSnapshots = append(pendingSnapshots, req)
		case req := <-w.tiles:
			w.handleTilesRequest(req)
		case <-ticker.C:
			start := time.Now()
			w.step(pendingJoins, pendingLeaves, pendingActions)
			w.handleAdminSnapshotRequests(pendingSnapshots)
			w.publishMetrics(time.Since(start), len(pendingActions))
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
			pendingSnapshots = pendingSnapshots[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) recordChange(x, y int, from, to tiles.Tile) {
	w.changes = append(w.changes, cellChange{x: x, y: y, from: from, to: to, actor: w.curActor, reason: w.curReason})
}

func (w *World) handleJoin(req JoinRequest, nowTick uint64) RecordedJoin {
	id := req.SessionID
	if id == "" {
		id = fmt.Sprintf("S%d", w.nextSessionNum.Add(1))
	}
	name := req.Name
	if name == "" {
		name = "mayor"
	}
	w.clients[id] = &clientState{Name: name, Out: req.Out, windowStart: nowTick}

	if req.Resp != nil {
		resp := JoinResponse{Welcome: w.welcome(id, nowTick)}
		select {
		case req.Resp <- resp:
		default:
		}
	}
	return RecordedJoin{SessionID: id, Name: name}
}

func (w *World) welcome(sessionID string, nowTick uint64) protocol.WelcomeMsg {
	all := tiles.Tools()
	tools := make([]protocol.ToolInfo, 0, len(all))
	for _, t := range all {
		tools = append(tools, protocol.ToolInfo{Name: t.String(), Size: t.Size(), Cost: t.Cost()})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Tick:            nowTick,
		Funds:           w.wallet.Available(),
		WorldParams: protocol.WorldParams{
			WorldID:    w.cfg.ID,
			TickRateHz: w.cfg.TickRateHz,
			Width:      w.cfg.Width,
			Height:     w.cfg.Height,
			Seed:       w.cfg.Seed,
		},
		Tools:  tools,
		MapRLE: encoding.EncodeRLE(w.tilesView().Tiles),
	}
}

func (w *World) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := w.tick.Load()
	w.curTick = nowTick
	w.changes = w.changes[:0]

	// Apply leaves and joins deterministically at tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.clients[id]; ok {
			delete(w.clients, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		recordedJoins = append(recordedJoins, w.handleJoin(req, nowTick))
	}

	// Apply tools in server_receive_order (the inbox order).
	recorded := make([]RecordedAction, 0, len(actions))
	for i, env := range actions {
		cl := w.clients[env.SessionID]
		if cl == nil {
			continue
		}
		recorded = append(recorded, RecordedAction{SessionID: env.SessionID, Tool: env.Tool})
		msg := w.applyTool(cl, env.SessionID, env.Tool, nowTick, i)
		if b, err := json.Marshal(msg); err == nil {
			trySend(cl.Out, b)
		}
	}

	scanned := false
	edited := len(w.changes) > 0
	if edited || (w.cfg.PowerScanEveryTicks > 0 && nowTick%uint64(w.cfg.PowerScanEveryTicks) == 0) {
		w.lastScan = w.city.PowerScan()
		w.powerTick = nowTick
		scanned = true
	}

	w.flushAudits()
	if edited || scanned {
		w.broadcastState(nowTick, scanned)
	}

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		entry := TickLogEntry{Tick: nowTick, Joins: recordedJoins, Leaves: recordedLeaves, Actions: recorded, Digest: digest}
		if scanned {
			scan := w.lastScan
			entry.Power = &scan
		}
		_ = w.tickLogger.WriteTick(entry)
	}

	if w.snapshotSink != nil && nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
		}
	}

	w.tick.Add(1)
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, actions)
	return tick, w.stateDigest(tick)
}

func (w *World) flushAudits() {
	if w.auditLogger == nil {
		return
	}
	for _, c := range w.changes {
		_ = w.auditLogger.WriteAudit(AuditEntry{
			Tick:   w.curTick,
			Actor:  c.actor,
			Action: "SET_TILE",
			Pos:    [2]int{c.x, c.y},
			From:   uint16(c.from),
			To:     uint16(c.to),
			Reason: c.reason,
		})
	}
}

func (w *World) broadcastState(nowTick uint64, scanned bool) {
	if len(w.clients) == 0 {
		return
	}
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Funds:           w.wallet.Available(),
	}
	if scanned {
		msg.Power = powerState(w.lastScan)
	}
	// Last write per cell wins; PWRBIT is folded in after the scan.
	seen := make(map[[2]int]struct{}, len(w.changes))
	for i := len(w.changes) - 1; i >= 0; i-- {
		c := w.changes[i]
		k := [2]int{c.x, c.y}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		msg.Changes = append(msg.Changes, protocol.CellDelta{X: c.x, Y: c.y, Tile: uint16(w.city.Grid().At(c.x, c.y))})
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, cl := range w.clients {
		sendLatest(cl.Out, b)
	}
}

func powerState(r city.ScanResult) *protocol.PowerState {
	return &protocol.PowerState{
		Capacity:        r.MaxPower,
		Used:            r.NumPower,
		PoweredZones:    r.Powered,
		UnpoweredZones:  r.Unpowered,
		PoweredCells:    r.PoweredCells,
		CapacityReached: r.Aborted,
	}
}

// trySend never blocks the world loop; a full client queue loses the message.
func trySend(ch chan []byte, b []byte) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
	default:
	}
}

// sendLatest replaces the oldest queued message when the client is behind.
func sendLatest(ch chan []byte, b []byte) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
