package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"micropolis.dev/internal/render"
	"micropolis.dev/internal/sim/world"
	"micropolis.dev/internal/transport/ws"
)

type muxConfig struct {
	WorldID     string
	EnableAdmin bool
	EnablePprof bool
	Index       runtimeIndex
	Logger      *log.Logger
	WSToken     string
}

func newMux(w *world.World, cfg muxConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, cfg.WorldID, w, cfg.Index)
	})

	if cfg.EnableAdmin {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string             `json:"world_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				WorldID: cfg.WorldID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		}))
		mux.HandleFunc("/admin/v1/snapshot", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			tick, err := w.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
		}))
		mux.HandleFunc("/admin/v1/map.png", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			scale, _ := strconv.Atoi(r.URL.Query().Get("scale"))
			if scale < 0 || scale > 32 {
				http.Error(rw, "scale must be 1..32", http.StatusBadRequest)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			view, err := w.RequestTiles(ctx2)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "image/png")
			rw.Header().Set("X-World-Tick", strconv.FormatUint(view.Tick, 10))
			if err := render.WritePNG(rw, view.Width, view.Height, view.Tiles, render.Options{Scale: scale}); err != nil && cfg.Logger != nil {
				cfg.Logger.Printf("render map: %v", err)
			}
		}))
	} else if cfg.Logger != nil {
		cfg.Logger.Printf("admin endpoints disabled (MC_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else if cfg.Logger != nil {
		cfg.Logger.Printf("pprof endpoints disabled (MC_ENABLE_PPROF_HTTP=false)")
	}

	wsSrv := ws.NewServer(w, cfg.Logger)
	wsSrv.Token = cfg.WSToken
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	return mux
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// writeMetrics emits the minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, worldID string, w *world.World, idx runtimeIndex) {
	m := w.Metrics()
	tick := w.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}

	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
	}

	gauge("micropolis_world_tick", "Current world tick.")
	fmt.Fprintf(rw, "micropolis_world_tick{world=%q} %d\n", worldID, tick)

	gauge("micropolis_world_clients", "Current number of connected sessions.")
	fmt.Fprintf(rw, "micropolis_world_clients{world=%q} %d\n", worldID, m.Clients)

	gauge("micropolis_world_funds", "Current city funds.")
	fmt.Fprintf(rw, "micropolis_world_funds{world=%q} %d\n", worldID, m.Funds)

	gauge("micropolis_world_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "micropolis_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "micropolis_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "join", m.QueueDepths.Join)
	fmt.Fprintf(rw, "micropolis_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "leave", m.QueueDepths.Leave)

	gauge("micropolis_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "micropolis_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	counter("micropolis_tool_results_total", "Tool requests by result.")
	for _, r := range []struct {
		name string
		v    uint64
	}{
		{"ok", m.Results.OK},
		{"failed", m.Results.Failed},
		{"insufficient_funds", m.Results.InsufficientFunds},
		{"must_clear_first", m.Results.MustClearFirst},
		{"rejected", m.Results.Rejected},
	} {
		fmt.Fprintf(rw, "micropolis_tool_results_total{world=%q,result=%q} %d\n", worldID, r.name, r.v)
	}

	gauge("micropolis_power", "Last power scan.")
	p := m.Power
	for _, r := range []struct {
		name string
		v    int
	}{
		{"coal", p.Coal},
		{"nuclear", p.Nuclear},
		{"capacity", p.Capacity},
		{"used", p.Used},
		{"powered_zones", p.PoweredZones},
		{"unpowered_zones", p.UnpoweredZones},
		{"powered_cells", p.PoweredCells},
		{"dropped_pushes", p.DroppedPushes},
	} {
		fmt.Fprintf(rw, "micropolis_power{world=%q,metric=%q} %d\n", worldID, r.name, r.v)
	}

	if idx == nil {
		return
	}
	s := idx.Stats()
	gauge("micropolis_index_queue_depth", "Index writer queue depth.")
	fmt.Fprintf(rw, "micropolis_index_queue_depth{world=%q} %d\n", worldID, s.QueueDepth)
	counter("micropolis_index_dropped_total", "Index rows dropped because the writer fell behind.")
	fmt.Fprintf(rw, "micropolis_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "tick", s.DropTick)
	fmt.Fprintf(rw, "micropolis_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAudit)
	fmt.Fprintf(rw, "micropolis_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", s.DropSnapshot)
	counter("micropolis_index_write_fail_total", "Index transactions that failed.")
	fmt.Fprintf(rw, "micropolis_index_write_fail_total{world=%q} %d\n", worldID, s.WriteFail)
}
