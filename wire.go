package ocf

import (
	"sort"

	"github.com/SaveTheRbtz/ocf-go/tap"
)

// magic is the 4-byte OCF file literal.
var magic = [4]byte{'O', 'b', 'j', 0x01}

const syncSize = 16

// Header is the wire header: {magic, meta, sync}. Recognized meta keys are
// "avro.schema" and "avro.codec"; any other key round-trips unexamined.
type Header struct {
	Meta     map[string][]byte
	Sync     [16]byte
	rawMagic [4]byte
}

// marshalHeader encodes h the way every growable-scratch write in this
// module works: attempt into a generously sized Tap, double on overflow,
// retry. Meta keys are written in sorted order for deterministic output.
func marshalHeader(h Header) []byte {
	capacity := 64 + len(h.Meta["avro.schema"]) + len(h.Meta["avro.codec"])
	for {
		t := tap.New(make([]byte, capacity))
		writeHeader(t, h)
		if t.IsValid() {
			out := make([]byte, t.Pos())
			copy(out, t.Buf())
			return out
		}
		capacity = 2 * t.Pos()
	}
}

func writeHeader(t *tap.Tap, h Header) {
	t.WriteFixed(magic[:])

	keys := make([]string, 0, len(h.Meta))
	for k := range h.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		t.WriteLong(int64(len(keys)))
		for _, k := range keys {
			t.WriteBytes([]byte(k))
			t.WriteBytes(h.Meta[k])
		}
	}
	t.WriteLong(0) // terminating empty block, per Avro map encoding

	t.WriteFixed(h.Sync[:])
}

// tryReadHeader attempts to decode a Header at t's current position. On
// underflow it restores t to its entry position and returns ok=false so
// the caller can await more bytes and retry, mirroring tryReadBlock.
func tryReadHeader(t *tap.Tap) (Header, bool) {
	pos0 := t.Save()

	magicBytes := t.ReadRaw(4)
	if !t.IsValid() {
		t.Restore(pos0)
		return Header{}, false
	}

	meta := map[string][]byte{}
	for {
		n := t.ReadLong()
		if !t.IsValid() {
			t.Restore(pos0)
			return Header{}, false
		}
		if n == 0 {
			break
		}
		if n < 0 {
			// Negative block count is followed by its byte size; skip it,
			// we only need the entries themselves.
			t.ReadLong()
			if !t.IsValid() {
				t.Restore(pos0)
				return Header{}, false
			}
			n = -n
		}
		for i := int64(0); i < n; i++ {
			key := t.ReadBytes()
			if !t.IsValid() {
				t.Restore(pos0)
				return Header{}, false
			}
			val := t.ReadBytes()
			if !t.IsValid() {
				t.Restore(pos0)
				return Header{}, false
			}
			meta[string(key)] = append([]byte(nil), val...)
		}
	}

	syncBytes := t.ReadRaw(syncSize)
	if !t.IsValid() {
		t.Restore(pos0)
		return Header{}, false
	}

	var h Header
	h.Meta = meta
	copy(h.Sync[:], syncBytes)
	copy(h.rawMagic[:], magicBytes)
	return h, true
}

// hasValidMagic reports whether the header's on-wire magic matched the
// expected "Obj\x01" literal.
func (h Header) hasValidMagic() bool { return h.rawMagic == magic }

// block is the wire block: {count, data, sync}.
type block struct {
	count int64
	data  []byte
	sync  [16]byte
}

// marshalBlock encodes a block the same grow-and-retry way as the header.
func marshalBlock(b block) []byte {
	capacity := len(b.data) + 32
	for {
		t := tap.New(make([]byte, capacity))
		t.WriteLong(b.count)
		t.WriteBytes(b.data)
		t.WriteFixed(b.sync[:])
		if t.IsValid() {
			out := make([]byte, t.Pos())
			copy(out, t.Buf())
			return out
		}
		capacity = 2 * t.Pos()
	}
}

// tryReadBlock attempts to decode one block record at t's current
// position, restoring on underflow so the caller can retry once more
// bytes arrive. This is the spec's try_read_block helper.
func tryReadBlock(t *tap.Tap) (block, bool) {
	pos0 := t.Save()

	var b block
	b.count = t.ReadLong()
	if !t.IsValid() {
		t.Restore(pos0)
		return block{}, false
	}

	data := t.ReadBytes()
	if !t.IsValid() {
		t.Restore(pos0)
		return block{}, false
	}
	b.data = append([]byte(nil), data...)

	syncBytes := t.ReadRaw(syncSize)
	if !t.IsValid() {
		t.Restore(pos0)
		return block{}, false
	}
	copy(b.sync[:], syncBytes)

	return b, true
}
