package h1

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/exchange"
)

func newExchange(method string) (*Exchange, *bytes.Buffer) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	req := &exchange.Request{Method: method}
	resp := exchange.NewResponse()
	return New(w, req, resp), &out
}

func TestScenarioSingleChunkPong(t *testing.T) {
	e, out := newExchange("GET")
	require.NoError(t, e.WriteSingleChunk([]byte("pong")))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\npong", out.String())
}

func TestScenarioChunkedThreeChunks(t *testing.T) {
	e, out := newExchange("GET")
	require.NoError(t, e.WriteChunk([]*buf.Chunk{buf.Wrap([]byte("a"))}))
	require.NoError(t, e.WriteChunk([]*buf.Chunk{buf.Wrap([]byte("b"))}))
	require.NoError(t, e.WriteChunk([]*buf.Chunk{buf.Wrap([]byte("c"))}))
	require.NoError(t, e.Flush(nil))
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n1\r\na\r\n1\r\nb\r\n1\r\nc\r\n0\r\n\r\n",
		out.String())
}

func TestSingleChunkThroughWriterUsesContentLength(t *testing.T) {
	e, out := newExchange("GET")
	require.NoError(t, e.WriteChunk([]*buf.Chunk{buf.Wrap([]byte("pong"))}))
	require.NoError(t, e.Flush(nil))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\npong", out.String())
}

func TestFlushWithNoBodyWritesEmptyResponse(t *testing.T) {
	e, out := newExchange("GET")
	require.NoError(t, e.Flush(nil))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", out.String())
}

func TestSingleChunkWithTrailersGoesChunked(t *testing.T) {
	e, out := newExchange("GET")
	e.resp.SetTrailers().Set("X-Checksum", "abc")
	require.NoError(t, e.WriteChunk([]*buf.Chunk{buf.Wrap([]byte("x"))}))
	require.NoError(t, e.Flush(nil))
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n1\r\nx\r\n0\r\nX-Checksum: abc\r\n\r\n",
		out.String())
}

func TestScenarioEmptyBody(t *testing.T) {
	e, out := newExchange("GET")
	require.NoError(t, e.WriteEmpty())
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", out.String())
}

func TestHeadRequestSuppressesBodyBytes(t *testing.T) {
	e, out := newExchange("HEAD")
	require.NoError(t, e.WriteSingleChunk([]byte("pong")))
	s := out.String()
	assert.Contains(t, s, "Content-Length: 4")
	assert.NotContains(t, s, "pong")
}
