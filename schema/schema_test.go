package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaveTheRbtz/ocf-go/tap"
)

func TestParse_UnsupportedSchema(t *testing.T) {
	t.Parallel()

	_, err := Parse(`"snappy-encoded-record"`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestLongCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	vc, err := Parse(`"long"`)
	require.NoError(t, err)
	assert.Equal(t, `"long"`, vc.Text())

	buf := tap.New(make([]byte, 16))
	require.NoError(t, vc.Write(buf, int64(42)))
	require.True(t, buf.IsValid())

	reader := tap.New(buf.Buf()[:buf.Pos()])
	val, err := vc.Read(reader)
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)
}

func TestLongCodec_42EncodesToSingleZigzagByte(t *testing.T) {
	t.Parallel()

	vc, err := Parse(`"long"`)
	require.NoError(t, err)

	buf := tap.New(make([]byte, 4))
	require.NoError(t, vc.Write(buf, int64(42)))
	assert.Equal(t, []byte{0x54}, buf.Buf()[:buf.Pos()])
}

func TestStringCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	vc, err := Parse(`"string"`)
	require.NoError(t, err)

	buf := tap.New(make([]byte, 32))
	require.NoError(t, vc.Write(buf, "hello"))

	reader := tap.New(buf.Buf()[:buf.Pos()])
	val, err := vc.Read(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello", val)
}

func TestWrite_RejectsWrongType(t *testing.T) {
	t.Parallel()

	vc, err := Parse(`"long"`)
	require.NoError(t, err)

	buf := tap.New(make([]byte, 16))
	err = vc.Write(buf, "not an int")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueType)
}

func TestSkip_AdvancesWithoutDecoding(t *testing.T) {
	t.Parallel()

	vc, err := Parse(`"string"`)
	require.NoError(t, err)

	buf := tap.New(make([]byte, 32))
	require.NoError(t, vc.Write(buf, "abc"))
	require.NoError(t, vc.Write(buf, "def"))
	written := buf.Pos()

	reader := tap.New(buf.Buf()[:written])
	vc.Skip(reader)
	require.True(t, reader.IsValid())

	val, err := vc.Read(reader)
	require.NoError(t, err)
	assert.Equal(t, "def", val)
}
