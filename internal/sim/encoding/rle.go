// Package encoding packs tile maps for the wire.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes raw tiles as base64 of (tile, run) uvarint pairs. Flag bits are kept, so a
// powered and an unpowered road are different runs.
func EncodeRLE(cells []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(cells); {
		t := cells[i]
		run := 1
		for i+run < len(cells) && cells[i+run] == t {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(t))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. want > 0 bounds the output to exactly want cells.
func DecodeRLE(s string, want int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, max(want, 0))
	for i := 0; i < len(raw); {
		t, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if t > 0xFFFF {
			return nil, fmt.Errorf("tile too large: %d", t)
		}
		if run == 0 {
			return nil, fmt.Errorf("empty run at %d", i)
		}
		if want > 0 && uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("map longer than %d cells", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(t))
		}
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("map has %d cells, want %d", len(out), want)
	}
	return out, nil
}
