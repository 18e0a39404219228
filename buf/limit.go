/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package buf

import (
	"errors"
	"io"
)

// ErrBodyTooLarge reports a request body over its configured limit;
// package server answers it as a Protocol-kind 400 (exchange.BadRequest)
// rather than reading the body unbounded off the wire.
var ErrBodyTooLarge = errors.New("buf: request body too large")

// LimitReader wraps r so that at most n+1 bytes are ever read from it,
// returning ErrBodyTooLarge once that boundary is crossed. Used by the
// H1 body reader; the H2 driver enforces the same limit by counting DATA
// payload bytes.
type LimitReader struct {
	r         io.Reader
	remaining int64
	err       error
}

// NewLimitReader returns a LimitReader bounding r to n bytes.
func NewLimitReader(r io.Reader, n int64) *LimitReader {
	return &LimitReader{r: r, remaining: n}
}

func (l *LimitReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) <= l.remaining {
		l.remaining -= int64(n)
		l.err = err
		return n, err
	}
	n = int(l.remaining)
	l.remaining = 0
	l.err = ErrBodyTooLarge
	return n, l.err
}
