// Package ocf implements a streaming codec for an object container file
// (OCF) format: a self-describing binary container that frames a
// sequence of schema-driven records into synchronized, optionally
// compressed blocks.
//
// Four duplex streams are exported: RawEncoder/RawDecoder encode/decode a
// continuous sequence of records with no header and no block framing;
// BlockEncoder/BlockDecoder add the full container (header, sync-
// delimited codec-compressed blocks). All four are driven by explicit
// Write/Read backpressure rather than io.Writer/io.Reader, since a block's
// (de)compression may complete asynchronously.
package ocf

import "errors"

// Error kinds. Fatal kinds terminate the owning stream; EncodeFailure
// does not (the encoder remains able to accept subsequent values);
// truncation is not surfaced as an error at all (spec.md §7).
var (
	// ErrBadMagic: the header's magic bytes did not match "Obj\x01".
	ErrBadMagic = errors.New("ocf: invalid magic bytes")
	// ErrUnknownCodec: avro.codec names a codec absent from the registry.
	ErrUnknownCodec = errors.New("ocf: unknown codec")
	// ErrSchemaParse: avro.schema failed to parse.
	ErrSchemaParse = errors.New("ocf: schema parse failure")
	// ErrBadSync: a block's sync marker did not match the header's.
	ErrBadSync = errors.New("ocf: invalid sync marker")
	// ErrEncodeFailure: the ValueCodec rejected a value handed to Write.
	ErrEncodeFailure = errors.New("ocf: value rejected by schema")
	// ErrCompressFailure: a codec's completion callback reported an error.
	ErrCompressFailure = errors.New("ocf: compression codec failure")
)
