/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package grpcbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/badu/exchange/exchange"
)

func TestCodeMapsEveryKind(t *testing.T) {
	cases := map[exchange.Kind]codes.Code{
		exchange.KindNotFound:    codes.NotFound,
		exchange.KindConverter:   codes.InvalidArgument,
		exchange.KindCancelled:   codes.Canceled,
		exchange.KindIdleTimeout: codes.DeadlineExceeded,
		exchange.KindProtocol:    codes.InvalidArgument,
		exchange.KindInternal:    codes.Internal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Code(kind))
	}
}

func TestStatusPreservesCauseMessage(t *testing.T) {
	err := Status(exchange.KindNotFound, errors.New("widget missing"))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "widget missing", st.Message())
}
