package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// stateDigest hashes everything a replay must reproduce: tick, seed, funds and every tile.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	put(nowTick)
	put(uint64(w.cfg.Seed))
	put(uint64(int64(w.wallet.Available())))

	g := w.city.Grid()
	put(uint64(g.Width()))
	put(uint64(g.Height()))
	cells := g.Cells()
	buf := make([]byte, 2*len(cells))
	for i, t := range cells {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(t))
	}
	h.Write(buf)

	return hex.EncodeToString(h.Sum(nil))
}
