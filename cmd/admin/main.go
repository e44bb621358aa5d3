package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "micropolis.dev/internal/persistence/log"
	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/render"
	"micropolis.dev/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "render":
			renderCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional; lists snapshots when set)")
	_ = fs.Parse(args)

	if *worldID == "" {
		entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.IsDir() {
				fmt.Println(e.Name())
			}
		}
		return
	}

	for _, p := range snapshotFiles(filepath.Join(*dataDir, "worlds", *worldID)) {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			fmt.Printf("%s\terror=%v\n", filepath.Base(p), err)
			continue
		}
		fmt.Printf("%s\ttick=%d\tsize=%dx%d\tfunds=%d\n", filepath.Base(p), h.Tick, h.Width, h.Height, h.Funds)
	}
}

func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path to rollback from (optional; defaults to latest)")
	rectFlag := fs.String("rect", "", "cell rectangle: x1,y1:x2,y2 (required)")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, optional; defaults to snapshot tick)")
	actor := fs.String("actor", "", "only rollback changes made by this session (optional)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	if strings.TrimSpace(*rectFlag) == "" {
		fmt.Fprintln(os.Stderr, "missing -rect")
		os.Exit(2)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(snapshotToLoad)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	r, err := parseRect(*rectFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -rect:", err)
		os.Exit(2)
	}

	endTick := *toTick
	if endTick == 0 || endTick > snap.Header.Tick {
		endTick = snap.Header.Tick
	}

	recs, err := readAudit(worldDir, auditFilter{since: *sinceTick, to: endTick, rect: r, actor: strings.TrimSpace(*actor)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}

	applied, skipped := applyRollback(&snap, recs)

	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.rollback.snap.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("rollback ok: snapshot=%s tick=%d rect=%s since=%d to=%d entries=%d applied=%d skipped=%d out=%s\n",
		filepath.Base(snapshotToLoad), snap.Header.Tick, *rectFlag, *sinceTick, endTick, len(recs), applied, skipped, *outPath)
}

func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used to find the latest snapshot)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	outPath := fs.String("out", "city.png", "output png path")
	scale := fs.Int("scale", 4, "pixels per cell")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" && strings.TrimSpace(*worldID) != "" {
		path = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -world")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if err := render.SavePNG(*outPath, snap.Header.Width, snap.Header.Height, snap.Tiles, render.Options{Scale: *scale}); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
	fmt.Printf("render ok: snapshot=%s tick=%d out=%s\n", filepath.Base(path), snap.Header.Tick, *outPath)
}

type rect struct{ x1, y1, x2, y2 int }

func (r rect) contains(x, y int) bool {
	return x >= r.x1 && x <= r.x2 && y >= r.y1 && y <= r.y2
}

type auditFilter struct {
	since, to uint64
	rect      rect
	actor     string
}

type auditRec struct {
	Seq   uint64
	Entry world.AuditEntry
}

func readAudit(worldDir string, f auditFilter) ([]auditRec, error) {
	out := make([]auditRec, 0, 1024)
	var seq uint64
	err := persistlog.ReadAudits(worldDir, func(e world.AuditEntry) error {
		seq++
		if e.Action != "SET_TILE" {
			return nil
		}
		if e.Tick < f.since || e.Tick > f.to {
			return nil
		}
		if f.actor != "" && e.Actor != f.actor {
			return nil
		}
		if !f.rect.contains(e.Pos[0], e.Pos[1]) {
			return nil
		}
		out = append(out, auditRec{Seq: seq, Entry: e})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse chronological apply: highest tick first; for same tick use reverse read order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

// applyRollback writes each entry's From value back, newest first, so every cell ends at its
// value before the earliest matching change.
func applyRollback(snap *snapshot.SnapshotV1, recs []auditRec) (applied, skipped int) {
	if snap == nil || len(recs) == 0 {
		return 0, 0
	}
	w, h := snap.Header.Width, snap.Header.Height
	for _, r := range recs {
		x, y := r.Entry.Pos[0], r.Entry.Pos[1]
		if x < 0 || y < 0 || x >= w || y >= h {
			skipped++
			continue
		}
		snap.Tiles[y*w+x] = r.Entry.From
		applied++
	}
	return applied, skipped
}

func parseRect(s string) (rect, error) {
	var r rect
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return r, fmt.Errorf("expected x1,y1:x2,y2")
	}
	a, err := parseVec2(parts[0])
	if err != nil {
		return r, err
	}
	b, err := parseVec2(parts[1])
	if err != nil {
		return r, err
	}
	r.x1, r.x2 = min(a[0], b[0]), max(a[0], b[0])
	r.y1, r.y2 = min(a[1], b[1]), max(a[1], b[1])
	return r, nil
}

func parseVec2(s string) ([2]int, error) {
	var v [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return v, fmt.Errorf("expected x,y")
	}
	for i := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

// snapshotFiles lists <tick>.snap.zst files in tick order; rollback outputs are skipped.
func snapshotFiles(worldDir string) []string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	type ts struct {
		tick uint64
		path string
	}
	var all []ts
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		all = append(all, ts{tick, filepath.Join(dir, name)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].tick < all[j].tick })
	out := make([]string, 0, len(all))
	for _, s := range all {
		out = append(out, s.path)
	}
	return out
}

func latestSnapshot(worldDir string) string {
	files := snapshotFiles(worldDir)
	if len(files) == 0 {
		return ""
	}
	return files[len(files)-1]
}
