package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/exchange/header"
)

func TestHeadersFrozenRejectsSetStatus(t *testing.T) {
	r := NewResponse()
	r.Headers.Freeze()
	err := r.SetStatus(404)
	assert.ErrorIs(t, err, header.ErrFinalized)
}

func TestDispatchRunsHandlerAndTransitions(t *testing.T) {
	called := false
	ex := New(1, &Request{}, func(e *Exchange) error {
		called = true
		assert.Equal(t, Running, e.State())
		return nil
	}, nil)
	require.NoError(t, ex.Dispatch())
	assert.True(t, called)
}

func TestDispatchErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	var gotCause error
	ex := New(2, &Request{}, nil, func(ee *ErrorExchange) error {
		gotCause = ee.Cause
		return nil
	})
	require.NoError(t, ex.DispatchError(cause))
	assert.Equal(t, cause, gotCause)
}

func TestFromPseudoNormalizesEmptyPath(t *testing.T) {
	req := &Request{}
	req.FromPseudo(header.Pseudo{Method: "GET", Scheme: "https", Authority: "example.com", Path: ""})
	assert.Equal(t, "/", req.Path)
	assert.Equal(t, HTTP2, req.Version)
}
