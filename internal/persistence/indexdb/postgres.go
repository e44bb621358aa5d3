package indexdb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresIndex mirrors the SQLite read model into a shared PostgreSQL database.
// Every table carries world_id so several servers can index into one schema.
type PostgresIndex struct {
	*writer
}

func postgresStatements(worldID string) statements {
	// world_id is bound as a literal so the shared writer can use the same argument lists as SQLite.
	wid := "'" + strings.ReplaceAll(worldID, "'", "''") + "'"
	return statements{
		schema: []string{
			`CREATE TABLE IF NOT EXISTS mc_meta (
				world_id TEXT NOT NULL,
				key TEXT NOT NULL,
				value TEXT NOT NULL,
				PRIMARY KEY (world_id, key)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_catalogs (
				world_id TEXT NOT NULL,
				name TEXT NOT NULL,
				digest TEXT NOT NULL,
				json JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (world_id, name)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_ticks (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				digest TEXT NOT NULL,
				joins INTEGER NOT NULL,
				leaves INTEGER NOT NULL,
				actions INTEGER NOT NULL,
				raw_json JSONB NOT NULL,
				PRIMARY KEY (world_id, tick)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_joins (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				session_id TEXT NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (world_id, tick, session_id)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_leaves (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				session_id TEXT NOT NULL,
				PRIMARY KEY (world_id, tick, session_id)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_actions (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				seq INTEGER NOT NULL,
				session_id TEXT NOT NULL,
				tool TEXT NOT NULL,
				x INTEGER NOT NULL,
				y INTEGER NOT NULL,
				tool_json JSONB NOT NULL,
				PRIMARY KEY (world_id, tick, seq)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_audits (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				seq INTEGER NOT NULL,
				actor TEXT NOT NULL,
				action TEXT NOT NULL,
				x INTEGER NOT NULL,
				y INTEGER NOT NULL,
				from_tile INTEGER NOT NULL,
				to_tile INTEGER NOT NULL,
				reason TEXT,
				raw_json JSONB NOT NULL,
				PRIMARY KEY (world_id, tick, seq)
			);`,
			`CREATE INDEX IF NOT EXISTS mc_audits_pos ON mc_audits(world_id, x, y, tick);`,
			`CREATE TABLE IF NOT EXISTS mc_power_scans (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				coal INTEGER NOT NULL,
				nuclear INTEGER NOT NULL,
				capacity INTEGER NOT NULL,
				used INTEGER NOT NULL,
				powered_zones INTEGER NOT NULL,
				unpowered_zones INTEGER NOT NULL,
				powered_cells INTEGER NOT NULL,
				capacity_reached BOOLEAN NOT NULL,
				PRIMARY KEY (world_id, tick)
			);`,
			`CREATE TABLE IF NOT EXISTS mc_snapshots (
				world_id TEXT NOT NULL,
				tick BIGINT NOT NULL,
				path TEXT NOT NULL,
				seed BIGINT NOT NULL,
				width INTEGER NOT NULL,
				height INTEGER NOT NULL,
				funds INTEGER NOT NULL,
				zones INTEGER NOT NULL,
				PRIMARY KEY (world_id, tick)
			);`,
		},
		upsertMeta: `INSERT INTO mc_meta(world_id,key,value) VALUES(` + wid + `,$1,$2)
			ON CONFLICT (world_id,key) DO UPDATE SET value=EXCLUDED.value`,
		upsertCatalog: `INSERT INTO mc_catalogs(world_id,name,digest,json,updated_at) VALUES(` + wid + `,$1,$2,$3,$4)
			ON CONFLICT (world_id,name) DO UPDATE SET digest=EXCLUDED.digest, json=EXCLUDED.json, updated_at=EXCLUDED.updated_at`,
		insertTick: `INSERT INTO mc_ticks(world_id,tick,digest,joins,leaves,actions,raw_json) VALUES(` + wid + `,$1,$2,$3,$4,$5,$6)
			ON CONFLICT (world_id,tick) DO UPDATE SET digest=EXCLUDED.digest, joins=EXCLUDED.joins, leaves=EXCLUDED.leaves, actions=EXCLUDED.actions, raw_json=EXCLUDED.raw_json`,
		insertJoin: `INSERT INTO mc_joins(world_id,tick,session_id,name) VALUES(` + wid + `,$1,$2,$3)
			ON CONFLICT DO NOTHING`,
		insertLeave: `INSERT INTO mc_leaves(world_id,tick,session_id) VALUES(` + wid + `,$1,$2)
			ON CONFLICT DO NOTHING`,
		insertAction: `INSERT INTO mc_actions(world_id,tick,seq,session_id,tool,x,y,tool_json) VALUES(` + wid + `,$1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT DO NOTHING`,
		insertAudit: `INSERT INTO mc_audits(world_id,tick,seq,actor,action,x,y,from_tile,to_tile,reason,raw_json) VALUES(` + wid + `,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT DO NOTHING`,
		insertPower: `INSERT INTO mc_power_scans(world_id,tick,coal,nuclear,capacity,used,powered_zones,unpowered_zones,powered_cells,capacity_reached) VALUES(` + wid + `,$1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT DO NOTHING`,
		insertSnapshot: `INSERT INTO mc_snapshots(world_id,tick,path,seed,width,height,funds,zones) VALUES(` + wid + `,$1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (world_id,tick) DO UPDATE SET path=EXCLUDED.path`,
	}
}

// OpenPostgres connects with a lib/pq DSN, creates the mc_* tables and starts the writer.
func OpenPostgres(dsn, worldID string) (*PostgresIndex, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	if strings.TrimSpace(worldID) == "" {
		return nil, fmt.Errorf("empty world id")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(4)

	w, err := newWriter(db, postgresStatements(worldID), 65536)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresIndex{writer: w}, nil
}
