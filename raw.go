package ocf

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/SaveTheRbtz/ocf-go/schema"
	"github.com/SaveTheRbtz/ocf-go/stream"
	"github.com/SaveTheRbtz/ocf-go/tap"
)

// RawEncoder encodes a continuous sequence of records with no header and
// no block framing: a record-in/bytes-out transform with a growable
// scratch buffer and overflow retry (spec §4.3).
//
// The frameless wire has no record count, unlike a block's count field,
// so a zero-width ValueCodec (e.g. "null") is not supported here: there
// would be no way for RawDecoder to tell how many records a run of zero
// bytes represents. Use BlockEncoder/BlockDecoder for such schemas.
type RawEncoder struct {
	vc schema.ValueCodec
	o  rawEncoderOptions
	t  *tap.Tap

	out      [][]byte
	finished bool
}

// NewRawEncoder returns a RawEncoder driven by vc.
func NewRawEncoder(vc schema.ValueCodec, opts ...RawEncoderOption) (*RawEncoder, error) {
	e := &RawEncoder{vc: vc}
	e.o.setDefault()
	for _, opt := range opts {
		if err := opt(&e.o); err != nil {
			return nil, err
		}
	}
	e.t = tap.New(make([]byte, e.o.batchSize))
	return e, nil
}

// Write accepts one record. done is invoked synchronously — RawEncoder
// never stalls a write, since it only ever accumulates into its own
// scratch buffer — with a non-nil error if the schema rejected val
// (EncodeFailure; the encoder remains usable for subsequent values).
func (e *RawEncoder) Write(val interface{}, done func(error)) {
	if e.finished {
		if done != nil {
			done(errors.New("ocf: write after end"))
		}
		return
	}

	pos0 := e.t.Save()
	if err := e.vc.Write(e.t, val); err != nil {
		e.t.Restore(pos0)
		if done != nil {
			done(fmt.Errorf("%w: %v", ErrEncodeFailure, err))
		}
		return
	}

	if e.t.IsValid() {
		e.o.logger.Debug("encoded value", zap.Int("pos", e.t.Pos()))
		if done != nil {
			done(nil)
		}
		return
	}

	// Overflow: flush everything written before this value, grow (or
	// just rewind) the scratch buffer, and rewrite — it must now fit by
	// construction.
	if pos0 > 0 {
		chunk := make([]byte, pos0)
		copy(chunk, e.t.Buf()[:pos0])
		e.out = append(e.out, chunk)
	}

	need := e.t.Pos() - pos0
	if need > e.t.Len() {
		e.o.logger.Debug("growing scratch buffer", zap.Int("need", need))
		e.t.Grow(2 * need)
	} else {
		e.t.Restore(0)
	}

	if err := e.vc.Write(e.t, val); err != nil {
		// Can't happen for a value that just failed only on capacity,
		// but surface it rather than silently losing the value.
		e.t.Restore(0)
		if done != nil {
			done(fmt.Errorf("%w: %v", ErrEncodeFailure, err))
		}
		return
	}
	if done != nil {
		done(nil)
	}
}

// Close signals that no more values will be written, flushing any
// remaining accumulated bytes. Gated on tap position rather than a
// record count, unlike BlockEncoder.Close: the frameless stream has no
// record count to gate on in the first place (see the zero-width-schema
// note on RawEncoder above).
func (e *RawEncoder) Close() error {
	if e.finished {
		return nil
	}
	if e.t.Pos() > 0 {
		e.out = append(e.out, e.t.Buf()[:e.t.Pos()])
	}
	e.finished = true
	return nil
}

// Read returns the next emitted byte chunk, stream.ErrStalled if nothing
// is ready yet, or io.EOF once Close has been called and all buffered
// output drained.
func (e *RawEncoder) Read() ([]byte, error) {
	if len(e.out) > 0 {
		chunk := e.out[0]
		e.out = e.out[1:]
		return chunk, nil
	}
	if e.finished {
		return nil, io.EOF
	}
	return nil, stream.ErrStalled
}

// RawDecoder decodes a continuous sequence of records from a byte stream
// with no framing, driven by write/read backpressure (spec §4.4).
type RawDecoder struct {
	vc schema.ValueCodec
	o  rawDecoderOptions
	t  *tap.Tap

	pending  stream.PendingWrite
	needPush bool
	finished bool
	ready    *rawReadyResult
}

type rawReadyResult struct {
	val interface{}
	end bool
}

// NewRawDecoder returns a RawDecoder driven by vc.
func NewRawDecoder(vc schema.ValueCodec, opts ...RawDecoderOption) (*RawDecoder, error) {
	d := &RawDecoder{vc: vc}
	d.o.setDefault()
	for _, opt := range opts {
		if err := opt(&d.o); err != nil {
			return nil, err
		}
	}
	d.t = tap.New(nil)
	return d, nil
}

// Write accepts one chunk of bytes, appending it to any unconsumed tail.
// done is stored and invoked later — from the read path, exactly once —
// rather than called synchronously; this is the decoder's sole
// backpressure mechanism.
func (d *RawDecoder) Write(chunk []byte, done func(error)) {
	if d.finished {
		if done != nil {
			done(errors.New("ocf: write after end"))
		}
		return
	}

	tail := d.t.Buf()[d.t.Pos():]
	merged := make([]byte, len(tail)+len(chunk))
	copy(merged, tail)
	copy(merged[len(tail):], chunk)
	d.t.Reset(merged)

	d.pending.Set(done)
	if d.needPush {
		d.needPush = false
		d.attemptRead()
	}
}

// Close signals that no more chunks will be written; any residual,
// truncated bytes are silently discarded once the consumer drains the
// decoder to end-of-stream.
func (d *RawDecoder) Close() error {
	d.finished = true
	return nil
}

func (d *RawDecoder) attemptRead() {
	if d.ready != nil {
		return
	}

	pos0 := d.t.Save()
	var val interface{}
	if d.o.decode {
		// Read's error return is reserved for a malformed-value rejection;
		// the builtin ValueCodecs never produce one, and underflow is
		// signaled separately via t.IsValid().
		v, _ := d.vc.Read(d.t)
		val = v
	} else {
		p0 := d.t.Pos()
		d.vc.Skip(d.t)
		if d.t.IsValid() {
			raw := make([]byte, d.t.Pos()-p0)
			copy(raw, d.t.Buf()[p0:d.t.Pos()])
			val = raw
		}
	}

	if d.t.IsValid() {
		d.ready = &rawReadyResult{val: val}
		return
	}

	if !d.finished {
		d.t.Restore(pos0)
		d.needPush = true
		d.pending.Resolve(nil)
		return
	}

	d.ready = &rawReadyResult{end: true}
}

// Read returns the next decoded value, stream.ErrStalled if more input is
// needed (and has been requested upstream via the stored write
// callback), or io.EOF at a clean or truncated end of stream.
func (d *RawDecoder) Read() (interface{}, error) {
	if d.ready == nil {
		d.attemptRead()
	}
	if d.ready != nil {
		r := d.ready
		d.ready = nil
		if r.end {
			return nil, io.EOF
		}
		return r.val, nil
	}
	return nil, stream.ErrStalled
}
