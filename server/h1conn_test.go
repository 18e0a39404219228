/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/convert"
	"github.com/badu/exchange/errorex"
	"github.com/badu/exchange/exchange"
)

func drainAll(t *testing.T, seq *buf.Sequence) []byte {
	t.Helper()
	var out []byte
	for {
		chunks, done, err := seq.Drain()
		require.NoError(t, err)
		for _, c := range chunks {
			out = append(out, c.Bytes()...)
		}
		if done {
			return out
		}
	}
}

func serveOnPipe(t *testing.T, handler exchange.Handler, errHandler exchange.ErrorHandler) net.Conn {
	t.Helper()
	client, srvConn := net.Pipe()
	reg := convert.NewRegistry()
	reg.Register(convert.PlainTextConverter{})
	logger := zaptest.NewLogger(t)
	c := New(srvConn, Config{}, handler, errHandler, errorex.New(logger, reg), logger)
	go c.Serve(context.Background())
	return client
}

func TestServeH1EndToEndPong(t *testing.T) {
	client := serveOnPipe(t, func(ex *exchange.Exchange) error {
		if err := ex.Response.Headers.SetContentType("text/plain"); err != nil {
			return err
		}
		return ex.Response.Body.SetString("pong")
	}, nil)

	_, err := client.Write([]byte("GET /ping HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	resp, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 4\r\n\r\npong",
		string(resp))
}

func TestServeH1HandlerErrorRunsErrorExchange(t *testing.T) {
	client := serveOnPipe(t,
		func(*exchange.Exchange) error { return exchange.NotFound(errors.New("no such widget")) },
		func(ee *exchange.ErrorExchange) error {
			if err := ee.Response.SetStatus(404); err != nil {
				return err
			}
			if err := ee.Response.Headers.SetContentType("text/plain"); err != nil {
				return err
			}
			return ee.Response.Body.SetString("not found")
		})

	_, err := client.Write([]byte("GET /widgets/9 HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	resp, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t,
		"HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nContent-Length: 9\r\n\r\nnot found",
		string(resp))
}

func TestReadH1RequestParsesLineAndHeaders(t *testing.T) {
	raw := "GET /widgets?id=9 HTTP/1.1\r\nHost: example.com\r\nAccept: application/json\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	req, err := readH1Request(br, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/widgets?id=9", req.Path)
	assert.Equal(t, "example.com", req.Headers.Get("Host"))
	assert.Equal(t, "application/json", req.Headers.Get("Accept"))
	assert.Empty(t, drainAll(t, req.Body))
}

func TestReadH1RequestContentLengthBody(t *testing.T) {
	raw := "POST /widgets HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	br := bufio.NewReader(strings.NewReader(raw))

	req, err := readH1Request(br, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), drainAll(t, req.Body))
}

func TestReadH1RequestChunkedBody(t *testing.T) {
	raw := "POST /widgets HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	req, err := readH1Request(br, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("Wikipedia"), drainAll(t, req.Body))
}

func TestReadH1BodyRejectsOversizedContentLengthBody(t *testing.T) {
	raw := "POST /widgets HTTP/1.1\r\nContent-Length: 9\r\n\r\n123456789"
	br := bufio.NewReader(strings.NewReader(raw))

	_, err := readH1Request(br, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, buf.ErrBodyTooLarge)
}

func TestReadH1BodyRejectsOversizedChunkedBody(t *testing.T) {
	raw := "POST /widgets HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"9\r\n123456789\r\n0\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))

	_, err := readH1Request(br, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, buf.ErrBodyTooLarge)
}
