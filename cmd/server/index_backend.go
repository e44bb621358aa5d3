package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"micropolis.dev/internal/persistence/indexdb"
	"micropolis.dev/internal/persistence/snapshot"
	"micropolis.dev/internal/sim/tuning"
	"micropolis.dev/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.AuditLogger
	Close() error
	UpsertCatalogs(tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir, worldID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		logger.Printf("index backend: sqlite %s", dbPath)
		return idx, nil
	case "postgres", "postgresql":
		dsn := strings.TrimSpace(os.Getenv("MC_INDEX_POSTGRES_DSN"))
		if dsn == "" {
			return nil, fmt.Errorf("MC_INDEX_BACKEND=postgres but MC_INDEX_POSTGRES_DSN is empty")
		}
		idx, err := indexdb.OpenPostgres(dsn, worldID)
		if err != nil {
			return nil, err
		}
		logger.Printf("index backend: postgres world=%s", worldID)
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported MC_INDEX_BACKEND: %s", backend)
	}
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
