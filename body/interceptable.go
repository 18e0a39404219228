/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package body implements the interceptable response body: a
// mutable-then-frozen container for the response payload that
// interceptors may replace or transform before it is connected to the
// wire encoder.
package body

import (
	"errors"
	"sync"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/convert"
	"github.com/badu/exchange/header"
)

// ErrAlreadyConnected is returned by every mutating call once Connect has
// run.
var ErrAlreadyConnected = errors.New("body: already connected")

// ErrNotFound is returned by SetResource when the resource reports
// non-existence; the enclosing handler maps this to HTTP 404.
var ErrNotFound = errors.New("body: resource not found")

// kind enumerates the body's lifecycle states.
type kind int

const (
	unset kind = iota
	dataSet
	connected
)

// Transform maps one chunk to zero-or-more output chunks. Returning a nil
// slice drops the chunk; returning an error aborts the stream.
type Transform func(*buf.Chunk) ([]*buf.Chunk, error)

// Resource is the minimal surface the body needs from a file or
// blob-like resource to populate response headers and open its data.
type Resource interface {
	Exists() bool
	Size() (int64, bool)
	MediaType() (string, bool)
	LastModified() (tm int64, ok bool) // unix seconds
	Open() (*buf.Sequence, error)
}

// Body is a mutable-then-frozen response payload. The zero value is
// unset. Not safe to share across exchanges; one Body belongs to exactly
// one Response.
type Body struct {
	mu        sync.Mutex
	state     kind
	data      *buf.Sequence
	transform Transform
	wire      *buf.Sequence
}

// New returns an empty, Unset Body.
func New() *Body { return &Body{} }

func composeTransform(a, b Transform) Transform {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(c *buf.Chunk) ([]*buf.Chunk, error) {
		mid, err := a(c)
		if err != nil {
			return nil, err
		}
		var out []*buf.Chunk
		for _, m := range mid {
			next, err := b(m)
			if err != nil {
				return nil, err
			}
			out = append(out, next...)
		}
		return out, nil
	}
}

// SetEmpty marks the body as having no data.
func (b *Body) SetEmpty() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == connected {
		return ErrAlreadyConnected
	}
	b.data = buf.NewSequence()
	b.data.Close(nil)
	b.state = dataSet
	return nil
}

// SetRaw installs seq as the raw byte data publisher.
func (b *Body) SetRaw(seq *buf.Sequence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == connected {
		return ErrAlreadyConnected
	}
	b.data = seq
	b.state = dataSet
	return nil
}

// SetString installs a single-chunk string body.
func (b *Body) SetString(s string) error {
	seq := buf.NewSequence()
	seq.Push(buf.Wrap([]byte(s)))
	seq.Close(nil)
	return b.SetRaw(seq)
}

// SetResource installs a resource-backed body. If headers are still
// mutable (not yet written), content-length, content-type, and
// last-modified are populated from the resource, each only when the
// header is absent. If the resource reports non-existence, SetResource
// fails with ErrNotFound and installs no data.
func (b *Body) SetResource(res Resource, headers *header.Store) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == connected {
		return ErrAlreadyConnected
	}
	if !res.Exists() {
		return ErrNotFound
	}
	if headers != nil && !headers.Frozen() {
		if !headers.Has("Content-Length") {
			if n, ok := res.Size(); ok {
				_ = headers.SetContentLength(n)
			}
		}
		if !headers.Has("Content-Type") {
			if mt, ok := res.MediaType(); ok {
				_ = headers.SetContentType(mt)
			}
		}
		if !headers.Has("Last-Modified") {
			if sec, ok := res.LastModified(); ok {
				_ = headers.Set("Last-Modified", formatLastModified(sec))
			}
		}
	}
	seq, err := res.Open()
	if err != nil {
		return err
	}
	if headers != nil && !headers.Frozen() && !headers.Has("Content-Type") {
		// The resource reported no media type; sniff one off the first
		// chunk instead of sending an untyped body.
		chunks, _, _ := seq.Drain()
		if len(chunks) > 0 {
			_ = headers.SetContentType(convert.DetectContentType(chunks[0].Bytes()))
		}
		seq.Requeue(chunks)
	}
	b.data = seq
	b.state = dataSet
	return nil
}

// Transform composes fn onto the accumulated transform pipeline. fn is
// only recorded here; Connect applies the composed pipeline. It is not
// applied at the time of the call, even when data is already set.
// Transforms compose left to right.
func (b *Body) Transform(fn Transform) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == connected {
		return ErrAlreadyConnected
	}
	b.transform = composeTransform(b.transform, fn)
	return nil
}

// Connect applies the accumulated transform to the body's data (or to
// wire, when no data was set) and freezes the body against further
// mutation. After Connect, Sequence
// returns the (possibly transformed) data that should be written to the
// socket.
func (b *Body) Connect(wire *buf.Sequence) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == connected {
		return ErrAlreadyConnected
	}
	source := wire
	if b.data != nil {
		source = b.data
	}
	b.wire = applyTransform(source, b.transform)
	b.state = connected
	return nil
}

// Sequence returns the final data sequence to write to the wire. Valid
// only once Connected.
func (b *Body) Sequence() *buf.Sequence {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wire
}

// Connected reports whether Connect has run.
func (b *Body) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == connected
}

// applyTransform drains source eagerly into a new Sequence with fn
// applied to each chunk. The scheduler (package sched) is responsible for
// demand-driven pacing against the wire; this function only establishes
// the logical mapping.
func applyTransform(source *buf.Sequence, fn Transform) *buf.Sequence {
	if fn == nil {
		return source
	}
	out := buf.NewSequence()
	chunks, done, err := source.Drain()
	for _, c := range chunks {
		mapped, terr := fn(c)
		if terr != nil {
			out.Close(terr)
			return out
		}
		for _, m := range mapped {
			out.Push(m)
		}
	}
	if done {
		out.Close(err)
	}
	return out
}

func formatLastModified(unixSec int64) string {
	return header.FormatUnix(unixSec)
}
