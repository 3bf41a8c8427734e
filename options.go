package ocf

import (
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/ocf-go/codec"
)

const defaultBatchSize = 65536
const defaultBlockSize = 65536
const defaultCodecName = "null"

// RawEncoderOption configures a RawEncoder.
type RawEncoderOption func(*rawEncoderOptions) error

type rawEncoderOptions struct {
	batchSize int
	logger    *zap.Logger
}

func (o *rawEncoderOptions) setDefault() {
	*o = rawEncoderOptions{
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
}

// WithBatchSize overrides the initial scratch-Tap capacity (default
// 65536 bytes).
func WithBatchSize(n int) RawEncoderOption {
	return func(o *rawEncoderOptions) error { o.batchSize = n; return nil }
}

// WithRawEncoderLogger injects a structured logger (default zap.NewNop()).
func WithRawEncoderLogger(l *zap.Logger) RawEncoderOption {
	return func(o *rawEncoderOptions) error { o.logger = l; return nil }
}

// RawDecoderOption configures a RawDecoder.
type RawDecoderOption func(*rawDecoderOptions) error

type rawDecoderOptions struct {
	decode bool
	logger *zap.Logger
}

func (o *rawDecoderOptions) setDefault() {
	*o = rawDecoderOptions{
		decode: true,
		logger: zap.NewNop(),
	}
}

// WithRawDecode sets whether records are fully decoded (true, default) or
// merely skipped and returned as their raw encoded bytes (false) — the
// create_reader helper's two modes.
func WithRawDecode(decode bool) RawDecoderOption {
	return func(o *rawDecoderOptions) error { o.decode = decode; return nil }
}

// WithRawDecoderLogger injects a structured logger (default zap.NewNop()).
func WithRawDecoderLogger(l *zap.Logger) RawDecoderOption {
	return func(o *rawDecoderOptions) error { o.logger = l; return nil }
}

// EncoderOption configures a BlockEncoder.
type EncoderOption func(*encoderOptions) error

type encoderOptions struct {
	blockSize  int
	codecName  string
	codecs     codec.Registry
	omitHeader bool
	syncMarker [16]byte
	hasSync    bool
	logger     *zap.Logger
}

func (o *encoderOptions) setDefault() {
	*o = encoderOptions{
		blockSize: defaultBlockSize,
		codecName: defaultCodecName,
		codecs:    codec.DefaultRegistry(),
		logger:    zap.NewNop(),
	}
}

// WithBlockSize overrides the initial scratch-Tap capacity for block
// accumulation (default 65536 bytes).
func WithBlockSize(n int) EncoderOption {
	return func(o *encoderOptions) error { o.blockSize = n; return nil }
}

// WithCodec selects the codec name written into avro.codec (default
// "null").
func WithCodec(name string) EncoderOption {
	return func(o *encoderOptions) error { o.codecName = name; return nil }
}

// WithCodecRegistry overrides the default codec registry.
func WithCodecRegistry(r codec.Registry) EncoderOption {
	return func(o *encoderOptions) error { o.codecs = r; return nil }
}

// WithOmitHeader puts the encoder in append mode: no header is emitted,
// and WithSyncMarker must supply the sync marker of the file being
// appended to.
func WithOmitHeader(omit bool) EncoderOption {
	return func(o *encoderOptions) error { o.omitHeader = omit; return nil }
}

// WithSyncMarker fixes the 16-byte sync marker instead of generating one.
func WithSyncMarker(sync [16]byte) EncoderOption {
	return func(o *encoderOptions) error { o.syncMarker = sync; o.hasSync = true; return nil }
}

// WithEncoderLogger injects a structured logger (default zap.NewNop()).
func WithEncoderLogger(l *zap.Logger) EncoderOption {
	return func(o *encoderOptions) error { o.logger = l; return nil }
}

// DecoderOption configures a BlockDecoder.
type DecoderOption func(*decoderOptions) error

type decoderOptions struct {
	decode    bool
	codecs    codec.Registry
	parseOpts interface{}
	logger    *zap.Logger
}

func (o *decoderOptions) setDefault() {
	*o = decoderOptions{
		decode: true,
		codecs: codec.DefaultRegistry(),
		logger: zap.NewNop(),
	}
}

// WithDecode sets whether records are fully decoded (true, default) or
// merely skipped and returned as their raw encoded bytes (false).
func WithDecode(decode bool) DecoderOption {
	return func(o *decoderOptions) error { o.decode = decode; return nil }
}

// WithDecoderCodecRegistry overrides the default codec registry.
func WithDecoderCodecRegistry(r codec.Registry) DecoderOption {
	return func(o *decoderOptions) error { o.codecs = r; return nil }
}

// WithParseOpts forwards an opaque value to the ValueCodec construction
// step; this package's minimal schema.Parse ignores it, but it is kept as
// part of the public surface so a richer SchemaLoader can be wired in.
func WithParseOpts(opts interface{}) DecoderOption {
	return func(o *decoderOptions) error { o.parseOpts = opts; return nil }
}

// WithDecoderLogger injects a structured logger (default zap.NewNop()).
func WithDecoderLogger(l *zap.Logger) DecoderOption {
	return func(o *decoderOptions) error { o.logger = l; return nil }
}
