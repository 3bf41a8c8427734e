package ocf

import (
	"encoding/binary"
	"sync/atomic"
	"time"
)

// syncSeedCounter guarantees two BlockEncoders constructed in the same
// nanosecond still get different sync markers.
var syncSeedCounter uint64

// lcg is a 64-bit linear congruential generator (the constants are the
// ones used by Knuth's MMIX), used to fill a fresh sync marker from a
// per-instance seed — matching the spec's "generated from a deterministic
// LCG seeded per instance" (§4.5).
type lcg struct {
	state uint64
}

func (g *lcg) next() uint64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return g.state
}

// newSyncMarker generates a fresh 16-byte sync marker for one encoder
// instance.
func newSyncMarker() [16]byte {
	seed := uint64(time.Now().UnixNano()) ^ atomic.AddUint64(&syncSeedCounter, 0x9E3779B97F4A7C15)
	g := &lcg{state: seed}

	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], g.next())
	binary.LittleEndian.PutUint64(out[8:16], g.next())
	return out
}
