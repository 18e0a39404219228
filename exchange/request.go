/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package exchange implements the per-request data model: Exchange,
// Request, Response, and the lifecycle state machine tying them
// together. It is protocol-agnostic; package h1 and package h2 adapt the
// wire format to and from this model.
package exchange

import (
	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/header"
)

// Version identifies the protocol an Exchange is running over.
type Version int

const (
	HTTP1 Version = iota
	HTTP2
)

// Request is the immutable, engine-owned view of an incoming request.
// Body is a lazy, finite, non-restartable sequence of byte chunks.
type Request struct {
	Method    string
	Scheme    string
	Authority string
	Path      string // normalized path
	RawPath   string // as it arrived on the wire, preserved
	Version   Version
	Headers   *header.Store
	Body      *buf.Sequence
}

// FromPseudo populates an HTTP/2 Request's routing fields from its
// pseudo-header slot; :method, :scheme, :authority, and :path fill the
// same fields an HTTP/1.1 request line does.
func (r *Request) FromPseudo(p header.Pseudo) {
	r.Method = p.Method
	r.Scheme = p.Scheme
	r.Authority = p.Authority
	r.Path = normalizePath(p.Path)
	r.RawPath = p.Path
	r.Version = HTTP2
}

// normalizePath collapses an empty path to "/" and leaves the raw query
// string attached. Routing is the caller's concern, so no further
// normalization happens here.
func normalizePath(raw string) string {
	if raw == "" {
		return "/"
	}
	return raw
}
