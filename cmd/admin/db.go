package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"micropolis.dev/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	x := fs.Int("x", -1, "cell x (tile)")
	y := fs.Int("y", -1, "cell y (tile)")
	actor := fs.String("actor", "", "actor session id (actor)")
	session := fs.String("session", "", "session id (session)")
	name := fs.String("name", "tools", "catalog name (catalog): tools|tuning")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := indexdb.OpenSQLiteReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	var out any
	switch q {
	case "snapshots":
		out, err = indexdb.Snapshots(db, *limit)
	case "tile":
		if *x < 0 || *y < 0 {
			fmt.Fprintln(os.Stderr, "tile requires -x and -y")
			os.Exit(2)
		}
		out, err = indexdb.TileHistory(db, *x, *y, *limit)
	case "actor":
		if strings.TrimSpace(*actor) == "" {
			fmt.Fprintln(os.Stderr, "actor requires -actor")
			os.Exit(2)
		}
		out, err = indexdb.AuditsByActor(db, *actor, *limit)
	case "session":
		if strings.TrimSpace(*session) == "" {
			fmt.Fprintln(os.Stderr, "session requires -session")
			os.Exit(2)
		}
		out, err = indexdb.ActionsBySession(db, *session, *limit)
	case "power":
		out, err = indexdb.PowerHistory(db, *limit)
	case "catalog":
		digest, body, cerr := indexdb.Catalog(db, *name)
		err = cerr
		out = struct {
			Name   string          `json:"name"`
			Digest string          `json:"digest"`
			Body   json.RawMessage `json:"body"`
		}{*name, digest, json.RawMessage(body)}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(snapshots|tile|actor|session|power|catalog)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(out)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
