package ocf

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/SaveTheRbtz/ocf-go/codec"
	"github.com/SaveTheRbtz/ocf-go/internal/ordered"
	"github.com/SaveTheRbtz/ocf-go/schema"
	"github.com/SaveTheRbtz/ocf-go/stream"
	"github.com/SaveTheRbtz/ocf-go/tap"
)

// BlockDecoder decodes a self-describing OCF stream: it parses the
// header to resolve the codec and schema (there is no need to supply
// either up front, unlike RawDecoder), then reassembles sync-delimited,
// codec-decompressed blocks into decoded records (spec §4.6).
type BlockDecoder struct {
	o decoderOptions
	t *tap.Tap

	header   Header
	vc       schema.ValueCodec
	codec    codec.Codec
	blockTap *tap.Tap
	// blockRemaining counts down the records left in blockTap's current
	// block, per the wire block's count field — the only way to know a
	// zero-width record (e.g. "null") has been fully consumed, since its
	// Read never invalidates the tap.
	blockRemaining int64

	queue           *ordered.Queue
	submitIndex     uint64
	pendingInFlight atomic.Int64

	mu         sync.Mutex
	firstErr   error
	headerDone bool

	pending  stream.PendingWrite
	needPush bool
	finished bool
}

// NewBlockDecoder returns a BlockDecoder. The value schema is derived
// from the stream's own header once parsed; see Metadata.
func NewBlockDecoder(opts ...DecoderOption) (*BlockDecoder, error) {
	d := &BlockDecoder{queue: ordered.NewQueue(), t: tap.New(nil)}
	d.o.setDefault()
	for _, opt := range opts {
		if err := opt(&d.o); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Metadata returns the header's metadata map once the header has been
// parsed, or ok=false if no header has arrived yet.
func (d *BlockDecoder) Metadata() (meta map[string][]byte, ok bool) {
	if !d.headerDone {
		return nil, false
	}
	return d.header.Meta, true
}

// Write accepts one chunk of raw stream bytes. done is stored and
// invoked later from the read path, exactly once, mirroring
// RawDecoder's backpressure contract.
func (d *BlockDecoder) Write(chunk []byte, done func(error)) {
	if err := d.fatalErr(); err != nil {
		if done != nil {
			done(err)
		}
		return
	}
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
		d.pumpDispatch()
	}
}

// Close signals that no more stream bytes will be written; a stream
// that ends mid-header or mid-block is truncated silently (spec §7),
// not surfaced as an error.
func (d *BlockDecoder) Close() error {
	d.finished = true
	return nil
}

// pumpDispatch makes one unit of forward progress against the stream
// tap: parsing the header if not yet done, or submitting exactly one
// whole block for decompression. It resolves the pending write
// callback whenever it cannot make further progress without more
// input.
func (d *BlockDecoder) pumpDispatch() {
	if !d.headerDone {
		h, ok := tryReadHeader(d.t)
		if !ok {
			if !d.finished {
				d.needPush = true
				d.pending.Resolve(nil)
			}
			return
		}
		if !h.hasValidMagic() {
			d.setFatal(ErrBadMagic)
			return
		}

		codecName := string(h.Meta["avro.codec"])
		if codecName == "" {
			codecName = defaultCodecName
		}
		c, ok := d.o.codecs.Get(codecName)
		if !ok {
			d.setFatal(fmt.Errorf("%w: %s", ErrUnknownCodec, codecName))
			return
		}

		vc, err := schema.Parse(string(h.Meta["avro.schema"]))
		if err != nil {
			d.setFatal(fmt.Errorf("%w: %v", ErrSchemaParse, err))
			return
		}

		d.header = h
		d.codec = c
		d.vc = vc
		d.headerDone = true
	}

	b, ok := tryReadBlock(d.t)
	if !ok {
		if !d.finished {
			d.needPush = true
			d.pending.Resolve(nil)
		}
		return
	}
	if b.sync != d.header.Sync {
		d.setFatal(ErrBadSync)
		return
	}

	idx := d.submitIndex
	d.submitIndex++
	count := b.count
	d.pendingInFlight.Inc()

	d.codec.Decompress(b.data, func(output []byte, err error) {
		d.pendingInFlight.Dec()
		if err != nil {
			d.setFatal(fmt.Errorf("%w: %v", ErrCompressFailure, err))
			return
		}
		d.o.logger.Debug("block decompressed",
			zap.Uint64("index", idx), zap.Int64("count", count), zap.Uint64("xxhash", xxhash.Sum64(output)))
		d.queue.Push(&ordered.BlockData{Index: idx, Buf: output, Count: count})
	})
}

// Read returns the next decoded record, stream.ErrStalled if a block is
// still being decompressed or more stream bytes are needed, or io.EOF
// at a clean or truncated end of stream.
func (d *BlockDecoder) Read() (interface{}, error) {
	if err := d.fatalErr(); err != nil {
		return nil, err
	}

	for {
		if d.blockTap != nil {
			val, ok := d.readFromBlock()
			if ok {
				return val, nil
			}
			// Block exhausted (or its tail is truncated garbage,
			// which is silently dropped rather than surfaced).
			d.blockTap = nil
		}

		if bd, ok := d.queue.Pop(); ok {
			d.blockTap = tap.New(bd.Buf)
			d.blockRemaining = bd.Count
			continue
		}

		if d.pendingInFlight.Load() == 0 {
			d.pumpDispatch()
			if err := d.fatalErr(); err != nil {
				return nil, err
			}
			if bd, ok := d.queue.Pop(); ok {
				d.blockTap = tap.New(bd.Buf)
				d.blockRemaining = bd.Count
				continue
			}
		}

		if d.finished && d.pendingInFlight.Load() == 0 && d.queue.Len() == 0 {
			return nil, io.EOF
		}
		return nil, stream.ErrStalled
	}
}

// readFromBlock decodes one more record from the current block, bounded
// by blockRemaining (the wire block's count) rather than tap validity
// alone: a zero-width record (e.g. "null") never invalidates the tap, so
// underflow can't signal "block exhausted" on its own.
func (d *BlockDecoder) readFromBlock() (interface{}, bool) {
	if d.blockRemaining <= 0 {
		return nil, false
	}

	pos0 := d.blockTap.Save()

	var val interface{}
	if d.o.decode {
		// Read's error return is reserved for a malformed-value rejection;
		// the builtin ValueCodecs never produce one, and underflow is
		// signaled separately via blockTap.IsValid().
		v, _ := d.vc.Read(d.blockTap)
		val = v
	} else {
		p0 := d.blockTap.Pos()
		d.vc.Skip(d.blockTap)
		if d.blockTap.IsValid() {
			raw := make([]byte, d.blockTap.Pos()-p0)
			copy(raw, d.blockTap.Buf()[p0:d.blockTap.Pos()])
			val = raw
		}
	}

	if d.blockTap.IsValid() {
		d.blockRemaining--
		return val, true
	}
	d.blockTap.Restore(pos0)
	return nil, false
}

func (d *BlockDecoder) setFatal(err error) {
	d.mu.Lock()
	if d.firstErr == nil {
		d.firstErr = err
	}
	d.mu.Unlock()
	d.pending.Resolve(err)
}

func (d *BlockDecoder) fatalErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firstErr
}
