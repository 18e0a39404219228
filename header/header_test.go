package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAddSetGet(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("content-type", "text/plain"))
	require.NoError(t, s.Add("X-Trace", "a"))
	require.NoError(t, s.Add("x-trace", "b"))

	assert.Equal(t, "text/plain", s.ContentType())
	assert.Equal(t, []string{"a", "b"}, s.Values("X-Trace"))
	assert.Equal(t, []string{"Content-Type", "X-Trace"}, s.Names())

	require.NoError(t, s.Set("x-trace", "c"))
	assert.Equal(t, []string{"c"}, s.Values("X-Trace"))
}

func TestStoreFreezeRejectsMutation(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("content-length", "4"))
	s.Freeze()

	assert.ErrorIs(t, s.Add("x", "y"), ErrFinalized)
	assert.ErrorIs(t, s.Set("x", "y"), ErrFinalized)
	assert.ErrorIs(t, s.Del("content-length"), ErrFinalized)
}

func TestContentLength(t *testing.T) {
	s := New()
	if _, ok := s.ContentLength(); ok {
		t.Fatalf("expected absent content-length")
	}
	require.NoError(t, s.SetContentLength(42))
	n, ok := s.ContentLength()
	require.True(t, ok)
	assert.EqualValues(t, 42, n)
}

func TestIsChunkedAndConnectionClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("Transfer-Encoding", "gzip, chunked"))
	assert.True(t, s.IsChunked())

	require.NoError(t, s.Add("Connection", "keep-alive, close"))
	assert.True(t, s.ConnectionClose())
}

func TestCookies(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("Cookie", "a=1; b=2"))
	cookies := s.Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, Cookie{Name: "a", Value: "1"}, cookies[0])
	assert.Equal(t, Cookie{Name: "b", Value: "2"}, cookies[1])
}
