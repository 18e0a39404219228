/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package sched implements the cooperative per-connection scheduler:
// one event loop per connection, demand-driven body delivery, and
// cancellation propagation on peer reset.
package sched

import (
	"context"
	"errors"
	"sync"

	"github.com/badu/exchange/buf"
)

// ErrCancelled is observed by a Writer at its next suspension point once
// the scheduler's context has been cancelled.
var ErrCancelled = errors.New("sched: subscription cancelled")

// Writer is the protocol-specific sink a Scheduler drains chunks into:
// h1's chunked/plain response writer, or h2's DATA frame writer.
// WriteChunk must not block the event loop on downstream I/O longer than
// it takes to hand off to the transport's own buffering.
type Writer interface {
	// WriteChunk delivers one batch of chunks in publisher order. Credit
	// reports the currently available flow-control credit (H2) or 1 (H1
	// chunked), bounding how many/how-large chunks may be requested next.
	WriteChunk(chunks []*buf.Chunk) error
	// Credit returns the current demand the Writer can accept right now;
	// the scheduler never requests more than this in a single batch.
	Credit() int
	// Flush is called once the sequence reaches EOF so the transport can
	// emit any terminal framing (chunk terminator, END_STREAM).
	Flush(trailerErr error) error
}

// Exchange is the minimal surface Scheduler needs from an in-flight
// exchange to observe cancellation and report completion.
type Exchange interface {
	MarkReset()
	MarkCompleted()
	MarkFailed(err error)
}

// Scheduler drains one Exchange's body Sequence into its Writer,
// honoring Writer.Credit() as the per-batch demand ceiling and stopping
// immediately when ctx is cancelled (peer reset/close or server
// shutdown). One Scheduler instance is used per Exchange; a connection
// runs its exchanges' schedulers strictly on its own goroutine, so
// Scheduler itself holds no internal locks on the hot path.
type Scheduler struct {
	seq  *buf.Sequence
	w    Writer
	ex   Exchange
	mu   sync.Mutex
	done bool
}

// New returns a Scheduler draining seq into w on behalf of ex.
func New(seq *buf.Sequence, w Writer, ex Exchange) *Scheduler {
	return &Scheduler{seq: seq, w: w, ex: ex}
}

// Run drives the scheduler to completion, cancellation, or error. It is
// meant to be called on the connection's own goroutine; it suspends
// (returns control, to be re-entered) at every chunk boundary by
// yielding through ctx.Done() checks rather than spawning new
// goroutines. Cancellation is only ever observed at those boundaries.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.cancel()
			return ErrCancelled
		default:
		}

		credit := s.w.Credit()
		if credit <= 0 {
			// Suspension point: awaiting flow-control credit or a
			// writable socket. A real transport would park here on a
			// writability channel; tests drive Credit() to return >0
			// once ready.
			select {
			case <-ctx.Done():
				s.cancel()
				return ErrCancelled
			default:
				return ErrAwaitingCredit
			}
		}

		chunks, done, err := s.seq.Drain()
		if len(chunks) > credit {
			// Never deliver more than the current credit in one batch.
			s.seq.Requeue(chunks[credit:])
			chunks = chunks[:credit]
			done = false
		}
		if len(chunks) > 0 {
			if werr := s.w.WriteChunk(chunks); werr != nil {
				s.fail(werr)
				return werr
			}
		}
		if done {
			if err != nil {
				// Error-terminal sequence: no clean terminal framing;
				// the caller decides between an error response and a
				// stream reset.
				s.fail(err)
				return err
			}
			if ferr := s.w.Flush(nil); ferr != nil {
				s.fail(ferr)
				return ferr
			}
			s.complete()
			return nil
		}
		if len(chunks) == 0 {
			return nil // no data ready yet; caller re-enters on next tick
		}
	}
}

// ErrAwaitingCredit is returned when the Writer reports zero credit and
// the drain cannot make progress; the caller re-enters Run once credit
// is replenished.
var ErrAwaitingCredit = errors.New("sched: awaiting flow-control credit")

func (s *Scheduler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.seq.Close(ErrCancelled)
	if s.ex != nil {
		s.ex.MarkReset()
	}
}

func (s *Scheduler) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	if s.ex != nil {
		s.ex.MarkCompleted()
	}
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	if s.ex != nil {
		s.ex.MarkFailed(err)
	}
}
