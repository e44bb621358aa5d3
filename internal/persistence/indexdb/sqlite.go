package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	*writer
}

var sqliteStatements = statements{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS joins (
			tick INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (tick, session_id)
		);`,
		`CREATE TABLE IF NOT EXISTS leaves (
			tick INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			PRIMARY KEY (tick, session_id)
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			tool_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_session_tick ON actions(session_id, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			from_tile INTEGER NOT NULL,
			to_tile INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, y, tick);`,
		`CREATE TABLE IF NOT EXISTS power_scans (
			tick INTEGER PRIMARY KEY,
			coal INTEGER NOT NULL,
			nuclear INTEGER NOT NULL,
			capacity INTEGER NOT NULL,
			used INTEGER NOT NULL,
			powered_zones INTEGER NOT NULL,
			unpowered_zones INTEGER NOT NULL,
			powered_cells INTEGER NOT NULL,
			capacity_reached INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			funds INTEGER NOT NULL,
			zones INTEGER NOT NULL
		);`,
	},
	upsertMeta:     `INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`,
	upsertCatalog:  `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
	insertTick:     `INSERT OR REPLACE INTO ticks(tick,digest,joins,leaves,actions,raw_json) VALUES(?,?,?,?,?,?)`,
	insertJoin:     `INSERT OR REPLACE INTO joins(tick,session_id,name) VALUES(?,?,?)`,
	insertLeave:    `INSERT OR REPLACE INTO leaves(tick,session_id) VALUES(?,?)`,
	insertAction:   `INSERT OR REPLACE INTO actions(tick,seq,session_id,tool,x,y,tool_json) VALUES(?,?,?,?,?,?,?)`,
	insertAudit:    `INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,from_tile,to_tile,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`,
	insertPower:    `INSERT OR REPLACE INTO power_scans(tick,coal,nuclear,capacity,used,powered_zones,unpowered_zones,powered_cells,capacity_reached) VALUES(?,?,?,?,?,?,?,?,?)`,
	insertSnapshot: `INSERT OR REPLACE INTO snapshots(tick,path,seed,width,height,funds,zones) VALUES(?,?,?,?,?,?,?)`,
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	// High buffer: a bulldozed airport is 36 audits in one tick.
	w, err := newWriter(db, sqliteStatements, 262144)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{writer: w}, nil
}

// OpenSQLiteReader opens an existing index for queries without starting a writer.
func OpenSQLiteReader(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return sql.Open("sqlite", path)
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}
