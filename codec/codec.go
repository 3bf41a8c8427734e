// Package codec implements the CompressionCodec registry: named
// byte-to-byte transforms invoked with completion callbacks, exactly the
// external collaborator the spec treats as a black box. The contract
// tolerates both synchronous and asynchronous completion — a Codec may
// call done before Compress/Decompress returns, or later from another
// goroutine — and callers must assign any ordering index before invoking
// the codec, never after, since the callback may already have fired by
// the time the call returns.
package codec

// CompletionFunc receives the transformed bytes, or a non-nil err if the
// transform failed.
type CompletionFunc func(output []byte, err error)

// Codec is a named byte-to-byte transform.
type Codec interface {
	// Compress transforms input and invokes done with the result.
	Compress(input []byte, done CompletionFunc)
	// Decompress reverses Compress and invokes done with the result.
	Decompress(input []byte, done CompletionFunc)
}

// Registry maps codec names (the OCF header's avro.codec meta value) to
// their implementation.
type Registry map[string]Codec

// Get returns the codec registered under name, or ok=false if absent.
func (r Registry) Get(name string) (Codec, bool) {
	c, ok := r[name]
	return c, ok
}

// Register adds or replaces the codec registered under name, allowing a
// caller to extend the registry at runtime beyond the defaults.
func (r Registry) Register(name string, c Codec) {
	r[name] = c
}

// DefaultRegistry returns a fresh registry with "null" (identity),
// "deflate" (raw DEFLATE via klauspost/compress/flate) and "zstd" (via
// klauspost/compress/zstd) registered — the spec mandates "null" as the
// default codec name and "deflate" as a required entry; "zstd" is an
// additive entry exercising the teacher repo's primary dependency.
func DefaultRegistry() Registry {
	return Registry{
		"null":    identityCodec{},
		"deflate": newDeflateCodec(),
		"zstd":    newZstdCodec(),
	}
}

// identityCodec is the "null" codec: a pass-through with no computation,
// always completing synchronously.
type identityCodec struct{}

func (identityCodec) Compress(input []byte, done CompletionFunc)   { done(input, nil) }
func (identityCodec) Decompress(input []byte, done CompletionFunc) { done(input, nil) }

// Async wraps a Codec so its completions fire on a separate goroutine
// instead of synchronously inline — used to exercise the out-of-order
// completion path (OrderedQueue) that a real background compression
// worker pool would also trigger.
func Async(c Codec) Codec {
	return asyncCodec{c}
}

type asyncCodec struct {
	inner Codec
}

func (a asyncCodec) Compress(input []byte, done CompletionFunc) {
	go a.inner.Compress(input, done)
}

func (a asyncCodec) Decompress(input []byte, done CompletionFunc) {
	go a.inner.Decompress(input, done)
}
