/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package buf implements the reference-counted byte buffer pool shared
// by the body publisher, the HTTP/1.1 chunk writer, and the HTTP/2 DATA
// frame writer.
package buf

import (
	"sync"
)

// defaultSize is the allocation size for a pooled buffer. Chosen to match
// a typical TCP segment so a single Chunk rarely needs to allocate past
// the pool.
const defaultSize = 2048

var pool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, defaultSize)
		return &b
	},
}

// Chunk is a reference-counted slice of bytes. A Chunk produced by Acquire
// must be Released exactly once by whichever component consumes it last;
// the transport assumes ownership on enqueue.
type Chunk struct {
	mu     sync.Mutex
	data   []byte
	refs   int
	pooled *[]byte
}

// Acquire returns a Chunk backed by a pooled buffer, copying src into it.
// If src is larger than the pool's default capacity, the backing slice is
// allocated directly and not returned to the pool on Release.
func Acquire(src []byte) *Chunk {
	var backing *[]byte
	if len(src) <= defaultSize {
		backing = pool.Get().(*[]byte)
		*backing = append((*backing)[:0], src...)
	} else {
		raw := make([]byte, len(src))
		copy(raw, src)
		return &Chunk{data: raw, refs: 1}
	}
	return &Chunk{data: *backing, refs: 1, pooled: backing}
}

// Wrap adopts an already-owned slice without copying or pooling it. Use
// for byte slices the caller guarantees are not retained elsewhere (e.g.
// a one-shot string body conversion).
func Wrap(owned []byte) *Chunk {
	return &Chunk{data: owned, refs: 1}
}

// Bytes returns the chunk's current byte slice view. Valid only while the
// chunk holds at least one reference.
func (c *Chunk) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Len returns the number of bytes in the chunk.
func (c *Chunk) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Retain increments the reference count, e.g. when a chunk is fanned out
// to both a body interceptor transform and a metrics collector.
func (c *Chunk) Retain() *Chunk {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()
	return c
}

// Release decrements the reference count, returning the backing array to
// the pool once it reaches zero. Calling Release more times than the
// chunk has references is a caller bug and is ignored beyond zero.
func (c *Chunk) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs == 0 {
		return
	}
	c.refs--
	if c.refs == 0 && c.pooled != nil {
		b := c.pooled
		c.pooled = nil
		pool.Put(b)
	}
}

// Slice returns a new Chunk sharing no memory with c, containing
// c.data[off:off+n]. Used by the HTTP/2 DATA writer to split a chunk
// across SETTINGS_MAX_FRAME_SIZE boundaries.
func (c *Chunk) Slice(off, n int) *Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Acquire(c.data[off : off+n])
}

// Concat joins chunks into one contiguous Chunk, releasing none of the
// inputs (callers retain their own ownership semantics).
func Concat(chunks ...*Chunk) *Chunk {
	total := 0
	for _, c := range chunks {
		total += c.Len()
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c.Bytes()...)
	}
	return Wrap(out)
}

// Sequence is a finite, ordered, non-restartable stream of Chunks carrying
// a request or response body between producer and wire writer.
type Sequence struct {
	mu     sync.Mutex
	chunks []*Chunk
	closed bool
	err    error
}

// NewSequence returns an empty, open Sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Push appends a chunk. Push after Close is a no-op.
func (s *Sequence) Push(c *Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.chunks = append(s.chunks, c)
}

// Requeue returns undelivered chunks to the front of the sequence, in
// order. Unlike Push it works after Close, so a drain that overran its
// credit can hand back the excess without losing the terminal state.
func (s *Sequence) Requeue(chunks []*Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(append([]*Chunk{}, chunks...), s.chunks...)
}

// Close marks the sequence finished, optionally with a terminal error.
func (s *Sequence) Close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.err = err
}

// Drain returns and clears all buffered chunks plus whether the sequence
// is fully closed with no more chunks pending after this drain.
func (s *Sequence) Drain() (chunks []*Chunk, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks, s.chunks = s.chunks, nil
	return chunks, s.closed, s.err
}
