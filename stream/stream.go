// Package stream holds the small vocabulary shared by every duplex
// stream in this module: the sentinel that signals "nothing ready right
// now, try again once more input/output arrives" as opposed to a
// terminal end-of-stream, and the single-slot pending-write-callback that
// implements backpressure.
package stream

import (
	"errors"
	"sync"
)

// ErrStalled is returned by a stream's Read method when no unit
// (byte chunk or record) is ready yet but the stream has not finished.
// It is not an error in the failure sense: the caller should supply more
// input (Write) or wait for an in-flight codec completion and retry.
var ErrStalled = errors.New("ocf: stream stalled")

// WriteDone is invoked by a stream exactly once per Write call, when the
// stream is ready to accept the next unit. It is the sole backpressure
// mechanism: withholding the call stalls the producer.
type WriteDone func(error)

// PendingWrite holds at most one outstanding WriteDone callback — the
// stalled-write state described in the design. It is safe to call Resolve
// from a different goroutine than the one that called Set (e.g. a codec's
// async completion).
type PendingWrite struct {
	mu   sync.Mutex
	done WriteDone
}

// Set stores done as the single pending callback. It panics if a callback
// is already pending: a stream must never have more than one outstanding
// write at a time.
func (p *PendingWrite) Set(done WriteDone) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		panic("ocf: PendingWrite already has a pending callback")
	}
	p.done = done
}

// Resolve invokes and clears the pending callback, if any, with err. It is
// a no-op if nothing is pending (e.g. the write path completed
// synchronously without stalling).
func (p *PendingWrite) Resolve(err error) {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		done(err)
	}
}

// Pending reports whether a callback is currently stored.
func (p *PendingWrite) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}
