package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/sim/tiles"
	"micropolis.dev/internal/sim/tuning"
	"micropolis.dev/internal/sim/world"
)

// statements holds one backend's dialect. Every insert is an upsert keyed by its primary key,
// so replaying the same JSONL into an existing index is harmless.
type statements struct {
	schema []string

	upsertMeta     string
	upsertCatalog  string
	insertTick     string
	insertJoin     string
	insertLeave    string
	insertAction   string
	insertAudit    string
	insertPower    string
	insertSnapshot string
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick   uint64
	Path   string
	Seed   int64
	Width  int
	Height int
	Funds  int
	Zones  int
}

// Stats reports queue pressure. The index is a secondary read model: when it falls behind,
// rows are dropped and counted here while the JSONL logs stay complete.
type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTick      uint64 `json:"drop_tick_total"`
	DropAudit     uint64 `json:"drop_audit_total"`
	DropSnapshot  uint64 `json:"drop_snapshot_total"`
	WriteFail     uint64 `json:"write_fail_total"`
	Committed     uint64 `json:"committed_total"`
}

type writer struct {
	db *sql.DB
	st statements

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	writeFail    atomic.Uint64
	committed    atomic.Uint64

	commitEvery   int
	commitMaxWait time.Duration
}

func newWriter(db *sql.DB, st statements, queue int) (*writer, error) {
	for _, s := range st.schema {
		if _, err := db.Exec(s); err != nil {
			return nil, err
		}
	}
	w := &writer{
		db:            db,
		st:            st,
		ch:            make(chan req, queue),
		commitEvery:   2000,
		commitMaxWait: 2 * time.Second,
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w, nil
}

// DB exposes the handle for read queries.
func (w *writer) DB() *sql.DB { return w.db }

func (w *writer) Close() error {
	var err error
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.ch)
		w.wg.Wait()
		err = w.db.Close()
	})
	return err
}

func (w *writer) Stats() Stats {
	return Stats{
		QueueDepth:    len(w.ch),
		QueueCapacity: cap(w.ch),
		DropTick:      w.dropTick.Load(),
		DropAudit:     w.dropAudit.Load(),
		DropSnapshot:  w.dropSnapshot.Load(),
		WriteFail:     w.writeFail.Load(),
		Committed:     w.committed.Load(),
	}
}

func (w *writer) enqueue(r req, drops *atomic.Uint64) {
	if w.closed.Load() {
		return
	}
	select {
	case w.ch <- r:
	default:
		drops.Add(1)
	}
}

func (w *writer) WriteTick(entry world.TickLogEntry) error {
	w.enqueue(req{kind: reqTick, tick: entry}, &w.dropTick)
	return nil
}

func (w *writer) WriteAudit(entry world.AuditEntry) error {
	w.enqueue(req{kind: reqAudit, audit: entry}, &w.dropAudit)
	return nil
}

func (w *writer) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	zones := 0
	for _, t := range snap.Tiles {
		if tiles.Tile(t).ZoneCenter() {
			zones++
		}
	}
	r := snapshotRow{
		Tick:   snap.Header.Tick,
		Path:   path,
		Seed:   snap.Seed,
		Width:  snap.Header.Width,
		Height: snap.Header.Height,
		Funds:  snap.Header.Funds,
		Zones:  zones,
	}
	w.enqueue(req{kind: reqSnapshot, snapshot: r}, &w.dropSnapshot)
}

// UpsertCatalogs stores the tool table and the applied tuning with content digests.
func (w *writer) UpsertCatalogs(tune tuning.Tuning) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name string
		json []byte
	}
	var rows []kv
	if b, err := json.Marshal(toolCatalog()); err == nil {
		rows = append(rows, kv{name: "tools", json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, kv{name: "tuning", json: b})
	}

	tx, err := w.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(w.st.upsertMeta, "schema_version", "1"); err != nil {
		return err
	}
	for _, r := range rows {
		sum := sha256.Sum256(r.json)
		if _, err := tx.Exec(w.st.upsertCatalog, r.name, hex.EncodeToString(sum[:]), string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type toolRow struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	Cost int    `json:"cost"`
}

func toolCatalog() []toolRow {
	var out []toolRow
	for _, t := range tiles.Tools() {
		out = append(out, toolRow{Name: t.String(), Size: t.Size(), Cost: t.Cost()})
	}
	return out
}

func (w *writer) loop() {
	ctx := context.Background()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			w.writeFail.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			w.writeFail.Add(1)
		} else {
			w.committed.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		w.writeFail.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(q string, args ...any) bool {
		if _, err := tx.Exec(q, args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range w.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			raw, _ := json.Marshal(e)
			if !exec(w.st.insertTick, int64(e.Tick), e.Digest, len(e.Joins), len(e.Leaves), len(e.Actions), string(raw)) {
				continue
			}
			ok := true
			for _, j := range e.Joins {
				if ok = exec(w.st.insertJoin, int64(e.Tick), j.SessionID, j.Name); !ok {
					break
				}
			}
			for _, id := range e.Leaves {
				if !ok {
					break
				}
				ok = exec(w.st.insertLeave, int64(e.Tick), id)
			}
			for i, a := range e.Actions {
				if !ok {
					break
				}
				toolJSON, _ := json.Marshal(a.Tool)
				ok = exec(w.st.insertAction, int64(e.Tick), i, a.SessionID, a.Tool.Tool, a.Tool.X, a.Tool.Y, string(toolJSON))
			}
			if ok && e.Power != nil {
				p := e.Power
				exec(w.st.insertPower, int64(e.Tick), p.Coal, p.Nuclear, p.MaxPower, p.NumPower, p.Powered, p.Unpowered, p.PoweredCells, p.Aborted)
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(w.st.insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], int64(a.From), int64(a.To), a.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			exec(w.st.insertSnapshot, int64(sn.Tick), sn.Path, sn.Seed, sn.Width, sn.Height, sn.Funds, sn.Zones)
		}
		if tx != nil && (opCount >= w.commitEvery || time.Since(lastCommit) >= w.commitMaxWait) {
			commit()
		}
	}

	commit()
}
