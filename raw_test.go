package ocf

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaveTheRbtz/ocf-go/schema"
	"github.com/SaveTheRbtz/ocf-go/stream"
)

func drainEncoder(t *testing.T, e *RawEncoder) []byte {
	t.Helper()
	var out []byte
	for {
		chunk, err := e.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		if errors.Is(err, stream.ErrStalled) {
			t.Fatalf("encoder stalled unexpectedly")
		}
		require.NoError(t, err)
		out = append(out, chunk...)
	}
}

func TestRawEncoder_EmptyStreamEmitsZeroBytes(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	enc, err := NewRawEncoder(vc)
	require.NoError(t, err)

	require.NoError(t, enc.Close())
	assert.Empty(t, drainEncoder(t, enc))
}

func TestRawEncoder_SingleSmallRecord(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	enc, err := NewRawEncoder(vc)
	require.NoError(t, err)

	var writeErr error
	enc.Write(int64(42), func(err error) { writeErr = err })
	require.NoError(t, writeErr)
	require.NoError(t, enc.Close())

	assert.Equal(t, []byte{0x54}, drainEncoder(t, enc))
}

func TestRawDecoder_EmptyStreamEmitsZeroRecords(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	dec, err := NewRawDecoder(vc)
	require.NoError(t, err)

	require.NoError(t, dec.Close())
	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawDecoder_SingleSmallRecord(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"long"`)
	require.NoError(t, err)
	dec, err := NewRawDecoder(vc)
	require.NoError(t, err)

	dec.Write([]byte{0x54}, func(error) {})
	require.NoError(t, dec.Close())

	val, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)

	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRaw_RoundTrip_StringsArbitraryChunking(t *testing.T) {
	t.Parallel()

	records := []string{"alpha", "beta", "a longer record to push past small batches", "", "z"}

	for _, chunkSize := range []int{1, 3, 7, 4096} {
		chunkSize := chunkSize
		t.Run("chunk", func(t *testing.T) {
			t.Parallel()

			vc, err := schema.Parse(`"string"`)
			require.NoError(t, err)

			enc, err := NewRawEncoder(vc, WithBatchSize(8))
			require.NoError(t, err)
			for _, r := range records {
				var writeErr error
				enc.Write(r, func(err error) { writeErr = err })
				require.NoError(t, writeErr)
			}
			require.NoError(t, enc.Close())
			encoded := drainEncoder(t, enc)

			dec, err := NewRawDecoder(vc)
			require.NoError(t, err)

			var got []string
			off := 0
			for off < len(encoded) {
				end := off + chunkSize
				if end > len(encoded) {
					end = len(encoded)
				}
				dec.Write(encoded[off:end], func(error) {})
				off = end
				for {
					val, err := dec.Read()
					if errors.Is(err, stream.ErrStalled) {
						break
					}
					require.NoError(t, err)
					got = append(got, val.(string))
				}
			}
			require.NoError(t, dec.Close())
			for {
				val, err := dec.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, val.(string))
			}

			assert.Equal(t, records, got)
		})
	}
}

func TestRawEncoder_OverflowStability_LargeRecordDoublesCapacity(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"bytes"`)
	require.NoError(t, err)

	const k = 16
	enc, err := NewRawEncoder(vc, WithBatchSize(k))
	require.NoError(t, err)

	big := make([]byte, 100)
	for i := range big {
		big[i] = byte(i)
	}

	var writeErr error
	enc.Write(big, func(err error) { writeErr = err })
	require.NoError(t, writeErr)
	assert.GreaterOrEqual(t, enc.t.Len(), 2*len(big))

	require.NoError(t, enc.Close())
	encoded := drainEncoder(t, enc)

	dec, err := NewRawDecoder(vc)
	require.NoError(t, err)
	dec.Write(encoded, func(error) {})
	require.NoError(t, dec.Close())

	val, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, big, val)
}

func TestRawDecoder_Backpressure_OnePendingWriteCallback(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"string"`)
	require.NoError(t, err)

	enc, err := NewRawEncoder(vc)
	require.NoError(t, err)
	enc.Write("hello", func(error) {})
	require.NoError(t, enc.Close())
	full := drainEncoder(t, enc)

	dec, err := NewRawDecoder(vc)
	require.NoError(t, err)

	// Feed one byte at a time: the first few writes cannot complete a
	// record, so the write callback must be withheld until the read path
	// actually needs more bytes.
	var callbackCount int
	for i := 0; i < len(full)-1; i++ {
		called := false
		dec.Write(full[i:i+1], func(error) { called = true })
		_, err := dec.Read()
		assert.ErrorIs(t, err, stream.ErrStalled)
		if called {
			callbackCount++
		}
	}
	assert.Equal(t, len(full)-1, callbackCount, "each underflowing read must release exactly its own write")

	dec.Write(full[len(full)-1:], func(error) {})
	require.NoError(t, dec.Close())
	val, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, "hello", val)
}

func TestRawDecoder_SkipMode_ReturnsRawEncodedBytes(t *testing.T) {
	t.Parallel()

	vc, err := schema.Parse(`"string"`)
	require.NoError(t, err)

	enc, err := NewRawEncoder(vc)
	require.NoError(t, err)
	enc.Write("hi", func(error) {})
	require.NoError(t, enc.Close())
	encoded := drainEncoder(t, enc)

	dec, err := NewRawDecoder(vc, WithRawDecode(false))
	require.NoError(t, err)
	dec.Write(encoded, func(error) {})
	require.NoError(t, dec.Close())

	val, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, encoded, val)
}
