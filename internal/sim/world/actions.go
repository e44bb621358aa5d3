package world

import (
	"micropolis.dev/internal/protocol"
	"micropolis.dev/internal/sim/city"
	"micropolis.dev/internal/sim/tiles"
)

const resultRejected = "rejected"

type resultCounters struct {
	ok, failed, noFunds, mustClear, rejected uint64
}

func (rc *resultCounters) observe(r city.Result) {
	switch r {
	case city.OK:
		rc.ok++
	case city.Failed:
		rc.failed++
	case city.InsufficientFunds:
		rc.noFunds++
	case city.MustClearFirst:
		rc.mustClear++
	}
}

// resultCode maps a tool outcome to its protocol error code ("" for success).
func resultCode(r city.Result) string {
	switch r {
	case city.OK:
		return ""
	case city.Failed:
		return protocol.ErrInvalidTarget
	case city.InsufficientFunds:
		return protocol.ErrNoFunds
	case city.MustClearFirst:
		return protocol.ErrBlocked
	}
	return protocol.ErrInternal
}

func (w *World) applyTool(cl *clientState, sessionID string, msg protocol.ToolMsg, nowTick uint64, index int) protocol.ToolResultMsg {
	res := protocol.ToolResultMsg{
		Type:            protocol.TypeToolResult,
		ProtocolVersion: protocol.Version,
		ID:              msg.ID,
		Tick:            nowTick,
		Tool:            msg.Tool,
		X:               msg.X,
		Y:               msg.Y,
	}
	reject := func(code, message string) protocol.ToolResultMsg {
		w.counters.rejected++
		res.Result = resultRejected
		res.Code = code
		res.Message = message
		res.Funds = w.wallet.Available()
		return res
	}

	if !w.allowTool(cl, nowTick) {
		return reject(protocol.ErrRateLimit, "too many tool requests")
	}
	tool, ok := tiles.ParseTool(msg.Tool)
	if !ok {
		return reject(protocol.ErrUnknownTool, "unknown tool")
	}
	res.Tool = tool.String()

	w.curActor = sessionID
	w.curReason = tool.String()
	w.city.SetChooser(newActionChooser(w.cfg.Seed, nowTick, index))
	out := w.city.Apply(tool, msg.X, msg.Y)
	w.curActor, w.curReason = "", ""

	w.counters.observe(out.Result)
	res.Result = out.Result.String()
	res.Code = resultCode(out.Result)
	res.Cost = out.Cost
	res.Funds = w.wallet.Available()
	if out.Query != nil {
		res.Query = &protocol.QueryInfo{Tile: uint16(out.Query.Tile), Label: out.Query.Label, Powered: out.Query.Powered}
	}
	return res
}

// allowTool enforces the per-session sliding window.
func (w *World) allowTool(cl *clientState, nowTick uint64) bool {
	rl := w.cfg.RateLimits
	if nowTick-cl.windowStart >= uint64(rl.ToolWindowTicks) {
		cl.windowStart = nowTick
		cl.windowCount = 0
	}
	if cl.windowCount >= rl.ToolMax {
		return false
	}
	cl.windowCount++
	return true
}

// actionChooser is a splitmix64 stream keyed by (seed, tick, action index), so a replay of
// the same tick log picks the same park variants.
type actionChooser struct{ state uint64 }

func newActionChooser(seed int64, tick uint64, index int) *actionChooser {
	s := uint64(seed) ^ (tick * 0x9e3779b97f4a7c15) ^ (uint64(index+1) * 0xbf58476d1ce4e5b9)
	return &actionChooser{state: s}
}

func (c *actionChooser) next() uint64 {
	c.state += 0x9e3779b97f4a7c15
	z := c.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (c *actionChooser) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(c.next() % uint64(n))
}
