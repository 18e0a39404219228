package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct{ proto Protocol }

func (f fakePipeline) Protocol() Protocol { return f.proto }

func TestHandshakeCompleteAcceptsKnownTokens(t *testing.T) {
	for _, tok := range []string{"h2", "http/1.1"} {
		n := New(func(p Protocol) (Pipeline, error) { return fakePipeline{proto: p}, nil })
		pipe, err := n.HandshakeComplete(tok)
		require.NoError(t, err)
		assert.Equal(t, tok, string(pipe.Protocol()))
	}
}

func TestHandshakeCompleteRejectsUnknownToken(t *testing.T) {
	n := New(func(p Protocol) (Pipeline, error) { return fakePipeline{proto: p}, nil })
	_, err := n.HandshakeComplete("spdy/3.1")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestHandshakeNeverReinstalls(t *testing.T) {
	calls := 0
	n := New(func(p Protocol) (Pipeline, error) {
		calls++
		return fakePipeline{proto: p}, nil
	})
	_, err := n.HandshakeComplete("h2")
	require.NoError(t, err)
	_, err = n.HandshakeComplete("h2")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIdleBeforeHandshakeFailsWithTimeout(t *testing.T) {
	n := New(func(p Protocol) (Pipeline, error) { return fakePipeline{proto: p}, nil })
	assert.ErrorIs(t, n.Idle(), ErrIdleTimeout)
}

func TestIdleAfterHandshakeIsNoop(t *testing.T) {
	n := New(func(p Protocol) (Pipeline, error) { return fakePipeline{proto: p}, nil })
	_, err := n.HandshakeComplete("http/1.1")
	require.NoError(t, err)
	assert.NoError(t, n.Idle())
}
