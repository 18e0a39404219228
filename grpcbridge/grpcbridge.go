/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package grpcbridge maps exchange error kinds to gRPC status codes, for
// gRPC-over-HTTP/2 callers that share this engine's transport but speak
// gRPC's status-in-trailers convention instead of an HTTP status line.
package grpcbridge

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/badu/exchange/exchange"
)

// Code maps an exchange error kind to the gRPC status code a caller
// expecting gRPC semantics over this same HTTP/2 connection should see.
func Code(kind exchange.Kind) codes.Code {
	switch kind {
	case exchange.KindNotFound:
		return codes.NotFound
	case exchange.KindConverter:
		return codes.InvalidArgument
	case exchange.KindCancelled:
		return codes.Canceled
	case exchange.KindIdleTimeout:
		return codes.DeadlineExceeded
	case exchange.KindProtocol:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// Status builds a gRPC status error from a failed exchange's cause,
// preserving its message as the gRPC status description.
func Status(kind exchange.Kind, cause error) error {
	msg := kind.String()
	if cause != nil {
		msg = cause.Error()
	}
	return status.Error(Code(kind), msg)
}
