package ocf

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaveTheRbtz/ocf-go/schema"
	"github.com/SaveTheRbtz/ocf-go/stream"
	"github.com/SaveTheRbtz/ocf-go/tap"
)

func drainBlockEncoder(t *testing.T, e *BlockEncoder) []byte {
	t.Helper()
	var out []byte
	for i := 0; i < 1_000_000; i++ {
		chunk, err := e.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		if errors.Is(err, stream.ErrStalled) {
			continue
		}
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	t.Fatal("drainBlockEncoder: too many iterations, encoder never reached EOF")
	return nil
}

func TestBlockEncoder_EmptyStreamEmitsHeaderOnly(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	enc, err := NewBlockEncoder(vc, WithSyncMarker([16]byte{}))
	require.NoError(t, err)

	require.NoError(t, enc.Close())
	out := drainBlockEncoder(t, enc)

	want := marshalHeader(Header{
		Meta: map[string][]byte{
			"avro.schema": []byte(`"long"`),
			"avro.codec":  []byte("null"),
		},
		Sync: [16]byte{},
	})
	assert.Equal(t, want, out)
}

func TestBlockEncoder_HeaderBytesExactScenario(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"string"`)
	require.NoError(t, err)
	enc, err := NewBlockEncoder(vc, WithSyncMarker([16]byte{}))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	out := drainBlockEncoder(t, enc)

	// "Obj\x01" + one map block of two meta entries in sorted key order
	// (avro.codec before avro.schema) + terminating empty map block + 16
	// zero sync bytes.
	assert.Equal(t, byte('O'), out[0])
	assert.Equal(t, byte('b'), out[1])
	assert.Equal(t, byte('j'), out[2])
	assert.Equal(t, byte(0x01), out[3])
	assert.Equal(t, make([]byte, 16), out[len(out)-16:])

	want := []byte("Obj\x01")
	want = append(want, 0x04) // map block count 2
	want = append(want, 0x14) // len("avro.codec") = 10
	want = append(want, "avro.codec"...)
	want = append(want, 0x08) // len("null") = 4
	want = append(want, "null"...)
	want = append(want, 0x16) // len("avro.schema") = 11
	want = append(want, "avro.schema"...)
	want = append(want, 0x10) // len(`"string"`) = 8
	want = append(want, `"string"`...)
	want = append(want, 0x00) // terminating empty map block
	want = append(want, make([]byte, 16)...)
	assert.Equal(t, want, out)
}

func TestBlockEncoder_UnknownCodecIsFatal(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	enc, err := NewBlockEncoder(vc, WithCodec("does-not-exist"))
	require.NoError(t, err)

	var writeErr error
	enc.Write(int64(1), func(err error) { writeErr = err })
	assert.ErrorIs(t, writeErr, ErrUnknownCodec)

	_, err = enc.Read()
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestBlockEncoder_OmitHeaderAppendsBlocksOnly(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	sync := [16]byte{1, 2, 3}
	enc, err := NewBlockEncoder(vc, WithOmitHeader(true), WithSyncMarker(sync))
	require.NoError(t, err)

	enc.Write(int64(7), func(error) {})
	require.NoError(t, enc.Close())

	out := drainBlockEncoder(t, enc)
	b, ok := tryReadBlock(tap.New(out))
	require.True(t, ok)
	assert.Equal(t, int64(1), b.count)
	assert.Equal(t, sync, b.sync)
}
