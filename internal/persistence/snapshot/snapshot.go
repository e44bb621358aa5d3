package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Funds   int    `json:"funds"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64 `json:"seed"`
	TickRate int   `json:"tick_rate_hz"`

	// Operational parameters (captured for deterministic replay/resume).
	StartingFunds       int          `json:"starting_funds,omitempty"`
	PowerScanEveryTicks int          `json:"power_scan_every_ticks,omitempty"`
	SnapshotEveryTicks  int          `json:"snapshot_every_ticks,omitempty"`
	RateLimits          RateLimitsV1 `json:"rate_limits,omitempty"`

	// Row-major raw tiles, Width*Height entries.
	Tiles []uint16 `json:"tiles"`

	Power *PowerV1 `json:"power,omitempty"`
}

type RateLimitsV1 struct {
	ToolWindowTicks int `json:"tool_window_ticks,omitempty"`
	ToolMax         int `json:"tool_max,omitempty"`
}

// PowerV1 is the summary of the last power scan before the snapshot.
type PowerV1 struct {
	Capacity       int  `json:"capacity"`
	Used           int  `json:"used"`
	PoweredZones   int  `json:"powered_zones"`
	UnpoweredZones int  `json:"unpowered_zones"`
	Aborted        bool `json:"aborted,omitempty"`
}

func (s SnapshotV1) Validate() error {
	h := s.Header
	if h.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("bad snapshot size %dx%d", h.Width, h.Height)
	}
	if len(s.Tiles) != h.Width*h.Height {
		return fmt.Errorf("snapshot has %d tiles, want %d", len(s.Tiles), h.Width*h.Height)
	}
	return nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write to a temp file and rename so readers never see a partial snapshot.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line; the gob body repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
