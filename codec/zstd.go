package codec

import (
	"github.com/klauspost/compress/zstd"
)

// zstdCodec implements the "zstd" entry, the teacher repo's own
// compression library, wired here as an additional block codec rather
// than the seek-indexed frame format the teacher builds around it.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() Codec {
	// Both constructors accept nil io.Writer/io.Reader when used only
	// through EncodeAll/DecodeAll, exactly as the teacher's seekable
	// writer/reader do.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return erroringCodec{err}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return erroringCodec{err}
	}
	return &zstdCodec{enc: enc, dec: dec}
}

func (z *zstdCodec) Compress(input []byte, done CompletionFunc) {
	done(z.enc.EncodeAll(input, nil), nil)
}

func (z *zstdCodec) Decompress(input []byte, done CompletionFunc) {
	out, err := z.dec.DecodeAll(input, nil)
	done(out, err)
}

// erroringCodec surfaces a construction-time failure (e.g. the zstd
// library failing to allocate) through the normal completion-callback
// contract instead of panicking at registry-build time.
type erroringCodec struct {
	err error
}

func (e erroringCodec) Compress(_ []byte, done CompletionFunc)   { done(nil, e.err) }
func (e erroringCodec) Decompress(_ []byte, done CompletionFunc) { done(nil, e.err) }
