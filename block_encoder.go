package ocf

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/ocf-go/codec"
	"github.com/SaveTheRbtz/ocf-go/internal/ordered"
	"github.com/SaveTheRbtz/ocf-go/schema"
	"github.com/SaveTheRbtz/ocf-go/stream"
	"github.com/SaveTheRbtz/ocf-go/tap"
)

// BlockEncoder frames a sequence of schema-driven records into a
// self-describing OCF stream: a header followed by sync-delimited,
// codec-compressed blocks (spec §4.5). Compression may run
// asynchronously; blocks are reassembled into their submission order by
// an internal.ordered.Queue before being handed to Read.
type BlockEncoder struct {
	vc schema.ValueCodec
	o  encoderOptions
	t  *tap.Tap

	codec codec.Codec
	sync  [16]byte
	count int64
	out   [][]byte
	queue *ordered.Queue

	submitIndex     uint64
	pendingInFlight atomic.Int64

	mu         sync.Mutex
	errs       error // aggregated via multierr; every fatal error this stream has reported
	headerDone bool
	finished   bool
}

// NewBlockEncoder returns a BlockEncoder driven by vc.
func NewBlockEncoder(vc schema.ValueCodec, opts ...EncoderOption) (*BlockEncoder, error) {
	e := &BlockEncoder{vc: vc, queue: ordered.NewQueue()}
	e.o.setDefault()
	for _, opt := range opts {
		if err := opt(&e.o); err != nil {
			return nil, err
		}
	}
	e.t = tap.New(make([]byte, e.o.blockSize))
	return e, nil
}

func (e *BlockEncoder) ensureHeader() error {
	if e.headerDone {
		return nil
	}

	c, ok := e.o.codecs.Get(e.o.codecName)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownCodec, e.o.codecName)
		e.setFatal(err)
		return err
	}
	e.codec = c

	if e.o.hasSync {
		e.sync = e.o.syncMarker
	} else {
		e.sync = newSyncMarker()
	}

	if !e.o.omitHeader {
		h := Header{
			Meta: map[string][]byte{
				"avro.schema": []byte(e.vc.Text()),
				"avro.codec":  []byte(e.o.codecName),
			},
			Sync: e.sync,
		}
		e.out = append(e.out, marshalHeader(h))
	}

	e.headerDone = true
	return nil
}

// Write accepts one record, encoding it into the current block. done
// reports an EncodeFailure if the schema rejected val, or the fatal
// error that finished the stream (ErrUnknownCodec from header emission,
// or a prior ErrCompressFailure); it never stalls, since block
// accumulation never waits on the codec.
func (e *BlockEncoder) Write(val interface{}, done func(error)) {
	if err := e.fatalErr(); err != nil {
		if done != nil {
			done(err)
		}
		return
	}
	if e.finished {
		if done != nil {
			done(errors.New("ocf: write after end"))
		}
		return
	}
	if err := e.ensureHeader(); err != nil {
		if done != nil {
			done(err)
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
		e.count++
		e.o.logger.Debug("encoded record", zap.Int64("block_count", e.count))
		if done != nil {
			done(nil)
		}
		return
	}

	// Overflow: the pending record doesn't fit. Flush everything
	// accumulated before it as a complete block, then retry into a
	// rewound (or grown) scratch buffer.
	if pos0 > 0 {
		e.flushBlock(pos0, e.count)
	}

	need := e.t.Pos() - pos0
	if need > e.t.Len() {
		e.o.logger.Debug("growing block buffer", zap.Int("need", need))
		e.t.Grow(2 * need)
	} else {
		e.t.Restore(0)
	}
	e.count = 0

	if err := e.vc.Write(e.t, val); err != nil {
		e.t.Restore(0)
		if done != nil {
			done(fmt.Errorf("%w: %v", ErrEncodeFailure, err))
		}
		return
	}
	e.count = 1
	if done != nil {
		done(nil)
	}
}

func (e *BlockEncoder) flushBlock(n int, count int64) {
	data := make([]byte, n)
	copy(data, e.t.Buf()[:n])

	idx := e.submitIndex
	e.submitIndex++
	e.pendingInFlight.Inc()

	e.o.logger.Debug("submitting block for compression",
		zap.Uint64("index", idx), zap.Int64("count", count), zap.Uint64("xxhash", xxhash.Sum64(data)))

	e.codec.Compress(data, func(output []byte, err error) {
		e.pendingInFlight.Dec()
		if err != nil {
			e.setFatal(fmt.Errorf("%w: %v", ErrCompressFailure, err))
			return
		}
		e.queue.Push(&ordered.BlockData{Index: idx, Buf: output, Count: count})
	})
}

// Close signals that no more records will be written, flushing any
// partially filled block (emitting a header-only stream if nothing was
// ever written).
func (e *BlockEncoder) Close() error {
	if e.finished {
		return e.fatalErr()
	}
	// Gate on count, not tap position: a zero-width ValueCodec (e.g.
	// "null") leaves e.t.Pos() at 0 even with pending records, so the
	// block's byte length alone can't tell us whether there's anything
	// to flush.
	if err := e.ensureHeader(); err == nil && e.count > 0 {
		e.flushBlock(e.t.Pos(), e.count)
	}
	e.finished = true
	return e.fatalErr()
}

// Read returns the next emitted byte chunk (the header, or one
// compressed block), stream.ErrStalled if compression is still
// in-flight, or io.EOF once every submitted block has drained.
func (e *BlockEncoder) Read() ([]byte, error) {
	if err := e.fatalErr(); err != nil {
		return nil, err
	}

	if chunk, ok := e.popOut(); ok {
		return chunk, nil
	}

	for {
		bd, ok := e.queue.Pop()
		if !ok {
			break
		}
		chunk := marshalBlock(block{count: bd.Count, data: bd.Buf, sync: e.sync})
		e.out = append(e.out, chunk)
	}

	if chunk, ok := e.popOut(); ok {
		return chunk, nil
	}

	if err := e.fatalErr(); err != nil {
		return nil, err
	}
	if e.finished && e.pendingInFlight.Load() == 0 && e.queue.Len() == 0 {
		return nil, io.EOF
	}
	return nil, stream.ErrStalled
}

func (e *BlockEncoder) popOut() ([]byte, bool) {
	if len(e.out) == 0 {
		return nil, false
	}
	chunk := e.out[0]
	e.out = e.out[1:]
	return chunk, true
}

func (e *BlockEncoder) setFatal(err error) {
	e.mu.Lock()
	e.errs = multierr.Append(e.errs, err)
	e.mu.Unlock()
}

func (e *BlockEncoder) fatalErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs
}
