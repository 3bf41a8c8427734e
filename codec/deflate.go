package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateCodec implements the "deflate" entry using raw DEFLATE (no
// zlib/gzip wrapper), matching the Avro OCF convention for the "deflate"
// codec name.
type deflateCodec struct{}

func newDeflateCodec() Codec { return deflateCodec{} }

func (deflateCodec) Compress(input []byte, done CompletionFunc) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		done(nil, err)
		return
	}
	if _, err := w.Write(input); err != nil {
		done(nil, err)
		return
	}
	if err := w.Close(); err != nil {
		done(nil, err)
		return
	}
	done(buf.Bytes(), nil)
}

func (deflateCodec) Decompress(input []byte, done CompletionFunc) {
	r := flate.NewReader(bytes.NewReader(input))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		done(nil, err)
		return
	}
	done(out, nil)
}
