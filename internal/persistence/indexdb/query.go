package indexdb

import (
	"database/sql"
)

// Read helpers for the SQLite index (cmd/admin db). Rows come back newest first.

type SnapshotInfo struct {
	Tick   uint64 `json:"tick"`
	Path   string `json:"path"`
	Seed   int64  `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Funds  int    `json:"funds"`
	Zones  int    `json:"zones"`
}

type AuditRow struct {
	Tick   uint64 `json:"tick"`
	Seq    int    `json:"seq"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type ActionRow struct {
	Tick      uint64 `json:"tick"`
	Seq       int    `json:"seq"`
	SessionID string `json:"session_id"`
	Tool      string `json:"tool"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

type PowerRow struct {
	Tick            uint64 `json:"tick"`
	Coal            int    `json:"coal"`
	Nuclear         int    `json:"nuclear"`
	Capacity        int    `json:"capacity"`
	Used            int    `json:"used"`
	PoweredZones    int    `json:"powered_zones"`
	UnpoweredZones  int    `json:"unpowered_zones"`
	PoweredCells    int    `json:"powered_cells"`
	CapacityReached bool   `json:"capacity_reached"`
}

func clampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}

func Snapshots(db *sql.DB, limit int) ([]SnapshotInfo, error) {
	rows, err := db.Query(`SELECT tick,path,seed,width,height,funds,zones FROM snapshots ORDER BY tick DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotInfo
	for rows.Next() {
		var r SnapshotInfo
		if err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Width, &r.Height, &r.Funds, &r.Zones); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TileHistory lists the audited writes to one cell.
func TileHistory(db *sql.DB, x, y, limit int) ([]AuditRow, error) {
	return queryAudits(db, `SELECT tick,seq,actor,action,x,y,from_tile,to_tile,COALESCE(reason,'') FROM audits WHERE x=? AND y=? ORDER BY tick DESC, seq DESC LIMIT ?`, x, y, clampLimit(limit))
}

func AuditsByActor(db *sql.DB, actor string, limit int) ([]AuditRow, error) {
	return queryAudits(db, `SELECT tick,seq,actor,action,x,y,from_tile,to_tile,COALESCE(reason,'') FROM audits WHERE actor=? ORDER BY tick DESC, seq DESC LIMIT ?`, actor, clampLimit(limit))
}

func queryAudits(db *sql.DB, q string, args ...any) ([]AuditRow, error) {
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Action, &r.X, &r.Y, &r.From, &r.To, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func ActionsBySession(db *sql.DB, sessionID string, limit int) ([]ActionRow, error) {
	rows, err := db.Query(`SELECT tick,seq,session_id,tool,x,y FROM actions WHERE session_id=? ORDER BY tick DESC, seq DESC LIMIT ?`, sessionID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionRow
	for rows.Next() {
		var r ActionRow
		if err := rows.Scan(&r.Tick, &r.Seq, &r.SessionID, &r.Tool, &r.X, &r.Y); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func PowerHistory(db *sql.DB, limit int) ([]PowerRow, error) {
	rows, err := db.Query(`SELECT tick,coal,nuclear,capacity,used,powered_zones,unpowered_zones,powered_cells,capacity_reached FROM power_scans ORDER BY tick DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PowerRow
	for rows.Next() {
		var r PowerRow
		if err := rows.Scan(&r.Tick, &r.Coal, &r.Nuclear, &r.Capacity, &r.Used, &r.PoweredZones, &r.UnpoweredZones, &r.PoweredCells, &r.CapacityReached); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Catalog returns the stored digest and JSON body for name ("tools" or "tuning").
func Catalog(db *sql.DB, name string) (digest, body string, err error) {
	err = db.QueryRow(`SELECT digest,json FROM catalogs WHERE name=?`, name).Scan(&digest, &body)
	return digest, body, err
}
