package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"micropolis.dev/internal/sim/world"
)

// Files lists the <prefix>-*.jsonl.zst files under dir in write order.
func Files(dir, prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		hi, si := segmentKey(files[i])
		hj, sj := segmentKey(files[j])
		if hi != hj {
			return hi < hj
		}
		return si < sj
	})
	return files, nil
}

// segmentKey splits "<prefix>-<hour>[.<seg>].jsonl.zst" into its hour stamp and segment number.
func segmentKey(path string) (string, int) {
	name := strings.TrimSuffix(filepath.Base(path), ".jsonl.zst")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		if n, err := strconv.Atoi(name[i+1:]); err == nil {
			return name[:i], n
		}
	}
	return name, 0
}

// ScanFile calls fn for every line of one compressed JSONL file.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadTicks streams tick entries from every events file under worldDir.
func ReadTicks(worldDir string, fn func(world.TickLogEntry) error) error {
	files, err := Files(filepath.Join(worldDir, "events"), "events")
	if err != nil {
		return err
	}
	for _, p := range files {
		err := ScanFile(p, func(line []byte) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("decode tick: %w", err)
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadAudits streams audit entries from every audit file under worldDir.
func ReadAudits(worldDir string, fn func(world.AuditEntry) error) error {
	files, err := Files(filepath.Join(worldDir, "audit"), "audit")
	if err != nil {
		return err
	}
	for _, p := range files {
		err := ScanFile(p, func(line []byte) error {
			var e world.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("decode audit: %w", err)
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
