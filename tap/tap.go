// Package tap implements a position-tracked cursor over an owned byte
// buffer, the primitive every stream in this module uses to speculatively
// read or write a record and roll back on overflow/underflow.
package tap

// Tap is a mutable cursor over a byte buffer. Writes past the end of buf
// and reads past the currently valid region do not panic: the Tap instead
// marks itself invalid, and the caller is expected to restore a saved
// position and retry once the buffer has grown or more bytes have
// arrived. A Tap in the invalid state carries no guarantee about the
// content written past its last-saved position.
type Tap struct {
	buf   []byte
	pos   int
	valid bool
}

// New returns a Tap over buf, positioned at the start.
func New(buf []byte) *Tap {
	return &Tap{buf: buf, valid: true}
}

// Buf returns the underlying buffer.
func (t *Tap) Buf() []byte { return t.buf }

// Pos returns the current cursor position.
func (t *Tap) Pos() int { return t.pos }

// Len returns the capacity of the underlying buffer.
func (t *Tap) Len() int { return len(t.buf) }

// IsValid reports whether every read/write since the last Restore (or
// since construction) lay within buf.
func (t *Tap) IsValid() bool { return t.valid }

// Save returns the current position, to be passed to Restore later.
func (t *Tap) Save() int { return t.pos }

// Restore resets the cursor to pos and clears the invalid flag, so the
// Tap can be retried.
func (t *Tap) Restore(pos int) {
	t.pos = pos
	t.valid = true
}

// Grow reallocates buf to the given capacity and resets the cursor to the
// start. Used by encoders after an overflow to retry a write that could
// never fit in the old buffer.
func (t *Tap) Grow(capacity int) {
	t.buf = make([]byte, capacity)
	t.pos = 0
	t.valid = true
}

// Reset replaces buf with newBuf and resets the cursor to the start,
// without reallocating — used after a flush to swap in fresh backing
// storage (e.g. the unconsumed tail of a write chunk).
func (t *Tap) Reset(newBuf []byte) {
	t.buf = newBuf
	t.pos = 0
	t.valid = true
}

// WriteFixed writes p at the cursor. If it would run past the end of buf,
// the Tap is marked invalid and pos still advances by len(p) so callers
// can compute how many bytes the failed write attempted (need = tap.Pos()
// - pos0).
func (t *Tap) WriteFixed(p []byte) {
	end := t.pos + len(p)
	if !t.valid || end > len(t.buf) {
		t.valid = false
		t.pos = end
		return
	}
	copy(t.buf[t.pos:end], p)
	t.pos = end
}

// ReadRaw reads n raw bytes at the cursor and returns a slice into buf
// (no copy). Returns nil and marks the Tap invalid on underflow.
func (t *Tap) ReadRaw(n int) []byte {
	if !t.valid || n < 0 {
		t.valid = false
		return nil
	}
	end := t.pos + n
	if end > len(t.buf) {
		t.valid = false
		return nil
	}
	p := t.buf[t.pos:end]
	t.pos = end
	return p
}

// Skip advances the cursor by n bytes without returning them, marking the
// Tap invalid on underflow. It is the building block behind the
// skip-and-return-raw-slice ValueCodec mode.
func (t *Tap) Skip(n int) {
	_ = t.ReadRaw(n)
}

// WriteLong writes v as an Avro-style zig-zag varint-encoded long.
func (t *Tap) WriteLong(v int64) {
	zz := uint64((v << 1) ^ (v >> 63))
	var scratch [10]byte
	n := 0
	for {
		b := byte(zz & 0x7f)
		zz >>= 7
		if zz != 0 {
			scratch[n] = b | 0x80
			n++
			continue
		}
		scratch[n] = b
		n++
		break
	}
	t.WriteFixed(scratch[:n])
}

// ReadLong reads a zig-zag varint-encoded long, marking the Tap invalid
// on underflow or on an unterminated (corrupt/adversarial) varint.
func (t *Tap) ReadLong() int64 {
	if !t.valid {
		return 0
	}
	var result uint64
	var shift uint
	for {
		if t.pos >= len(t.buf) {
			t.valid = false
			return 0
		}
		b := t.buf[t.pos]
		t.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			t.valid = false
			return 0
		}
	}
	return int64(result>>1) ^ -int64(result&1)
}

// WriteBytes writes a zig-zag varint length prefix followed by p.
func (t *Tap) WriteBytes(p []byte) {
	t.WriteLong(int64(len(p)))
	t.WriteFixed(p)
}

// ReadBytes reads a zig-zag varint length prefix followed by that many
// raw bytes, returned as a slice into buf (no copy).
func (t *Tap) ReadBytes() []byte {
	n := t.ReadLong()
	if !t.valid || n < 0 {
		t.valid = false
		return nil
	}
	return t.ReadRaw(int(n))
}

// SkipBytes reads and discards a length-prefixed byte string.
func (t *Tap) SkipBytes() {
	n := t.ReadLong()
	if !t.valid || n < 0 {
		t.valid = false
		return
	}
	t.Skip(int(n))
}
