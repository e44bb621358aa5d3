package world

import "time"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Clients int `json:"clients"`
	Funds   int `json:"funds"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS        float64 `json:"step_ms"`
	ActionsInStep int     `json:"actions_in_step"`

	Results ResultMetrics `json:"results"`
	Power   PowerMetrics  `json:"power"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

type ResultMetrics struct {
	OK                uint64 `json:"ok"`
	Failed            uint64 `json:"failed"`
	InsufficientFunds uint64 `json:"insufficient_funds"`
	MustClearFirst    uint64 `json:"must_clear_first"`
	Rejected          uint64 `json:"rejected"`
}

type PowerMetrics struct {
	ScanTick       uint64 `json:"scan_tick"`
	Coal           int    `json:"coal"`
	Nuclear        int    `json:"nuclear"`
	Capacity       int    `json:"capacity"`
	Used           int    `json:"used"`
	PoweredZones   int    `json:"powered_zones"`
	UnpoweredZones int    `json:"unpowered_zones"`
	PoweredCells   int    `json:"powered_cells"`
	Aborted        bool   `json:"aborted"`
	DroppedPushes  int    `json:"dropped_pushes"`
}

func (w *World) publishMetrics(stepDur time.Duration, actions int) {
	s := w.lastScan
	w.metrics.Store(WorldMetrics{
		Tick:    w.tick.Load(),
		Clients: len(w.clients),
		Funds:   w.wallet.Available(),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS:        float64(stepDur.Microseconds()) / 1000.0,
		ActionsInStep: actions,
		Results: ResultMetrics{
			OK:                w.counters.ok,
			Failed:            w.counters.failed,
			InsufficientFunds: w.counters.noFunds,
			MustClearFirst:    w.counters.mustClear,
			Rejected:          w.counters.rejected,
		},
		Power: PowerMetrics{
			ScanTick:       w.powerTick,
			Coal:           s.Coal,
			Nuclear:        s.Nuclear,
			Capacity:       s.MaxPower,
			Used:           s.NumPower,
			PoweredZones:   s.Powered,
			UnpoweredZones: s.Unpowered,
			PoweredCells:   s.PoweredCells,
			Aborted:        s.Aborted,
			DroppedPushes:  s.Dropped,
		},
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
