/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package errorex implements the error-exchange fallback chain: user
// error handler, built-in last-resort handler, and terminal stream
// reset / connection close.
package errorex

import (
	"errors"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/badu/exchange/convert"
	"github.com/badu/exchange/exchange"
)

// defaultStatus is the status assigned to a failure cause that does not
// carry its own *exchange.Error.
const defaultStatus = 500

// Terminator ends an exchange with no further response bytes expected:
// RST_STREAM(INTERNAL_ERROR) on HTTP/2, connection close on HTTP/1.1.
type Terminator interface {
	Terminate() error
}

// Engine runs the fallback chain for a failed exchange.
type Engine struct {
	log      *zap.Logger
	registry *convert.Registry
}

// New returns an Engine logging through log and resolving the
// last-resort handler's response media type through registry.
func New(log *zap.Logger, registry *convert.Registry) *Engine {
	return &Engine{log: log, registry: registry}
}

// Handle runs ex's failure through the fallback chain: the user error
// handler, then the built-in last-resort handler, then term.Terminate.
// It always returns nil; every path either serializes a response or
// terminates the transport, and the caller (h1/h2 connection loop) has
// nothing further to do either way.
func (en *Engine) Handle(ex *exchange.Exchange, cause error, term Terminator) error {
	en.logCause(cause)

	if ex.PartialResponseSent {
		en.terminate(term, multierror.Append(nil, cause).ErrorOrNil())
		return nil
	}

	if err := ex.DispatchError(cause); err == nil {
		return nil
	} else if ex.PartialResponseSent {
		en.terminate(term, multierror.Append(nil, cause, err).ErrorOrNil())
		return nil
	} else if lrErr := en.lastResort(ex, cause); lrErr != nil {
		en.terminate(term, multierror.Append(nil, cause, err, lrErr).ErrorOrNil())
	}
	return nil
}

// lastResort builds the minimal built-in diagnostic response: status
// derived from cause (default 500), body a short diagnostic string,
// media type matching the request's Accept header if a converter is
// registered for it, else text/plain.
func (en *Engine) lastResort(ex *exchange.Exchange, cause error) error {
	status := statusFromCause(cause)
	if err := ex.Response.SetStatus(status); err != nil {
		return err
	}

	mediaType := "text/plain"
	if accept := ex.Request.Headers.Get("Accept"); accept != "" {
		if _, err := en.registry.Get(accept); err == nil {
			mediaType = convert.Normalize(accept)
		}
	}
	if err := ex.Response.Headers.SetContentType(mediaType); err != nil {
		return err
	}
	return ex.Response.Body.SetString(cause.Error())
}

// logCause logs at WARN for client-error (4xx) causes and ERROR
// otherwise.
func (en *Engine) logCause(cause error) {
	status := statusFromCause(cause)
	fields := []zap.Field{zap.Error(cause), zap.Int("status", status)}
	if status >= 400 && status < 500 {
		en.log.Warn("exchange failed", fields...)
		return
	}
	en.log.Error("exchange failed", fields...)
}

// terminate invokes term.Terminate, logging a fatal entry carrying the
// aggregated causal chain.
func (en *Engine) terminate(term Terminator, causes error) {
	if err := term.Terminate(); err != nil {
		en.log.Error("terminate after exhausted fallback chain failed", zap.Error(err), zap.NamedError("causes", causes))
		return
	}
	en.log.Error("exchange fallback chain exhausted, transport terminated", zap.NamedError("causes", causes))
}

// statusFromCause extracts the HTTP status an *exchange.Error carries,
// defaulting to 500 for untagged causes.
func statusFromCause(cause error) int {
	var exErr *exchange.Error
	if errors.As(cause, &exErr) && exErr.Status != 0 {
		return exErr.Status
	}
	return defaultStatus
}
