package errorex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/badu/exchange/convert"
	"github.com/badu/exchange/exchange"
	"github.com/badu/exchange/header"
)

type fakeTerminator struct{ calls int }

func (f *fakeTerminator) Terminate() error {
	f.calls++
	return nil
}

func newEngine(t *testing.T) *Engine {
	reg := convert.NewRegistry()
	reg.Register(convert.PlainTextConverter{})
	return New(zaptest.NewLogger(t), reg)
}

func newExchange(errHandler exchange.ErrorHandler) *exchange.Exchange {
	req := &exchange.Request{Method: "GET", Headers: header.New()}
	return exchange.New(1, req, nil, errHandler)
}

func TestHandleSucceedsOnUserErrorHandler(t *testing.T) {
	en := newEngine(t)
	ex := newExchange(func(*exchange.ErrorExchange) error { return nil })
	term := &fakeTerminator{}

	require.NoError(t, en.Handle(ex, exchange.NotFound(errors.New("boom")), term))
	assert.Equal(t, 0, term.calls)
}

func TestHandlePartialResponseSentTerminatesImmediately(t *testing.T) {
	en := newEngine(t)
	called := false
	ex := newExchange(func(*exchange.ErrorExchange) error { called = true; return nil })
	ex.PartialResponseSent = true
	term := &fakeTerminator{}

	require.NoError(t, en.Handle(ex, errors.New("mid-stream failure"), term))
	assert.False(t, called, "user error handler must not run once partial bytes are on the wire")
	assert.Equal(t, 1, term.calls)
}

func TestHandleFallsBackToLastResortOnHandlerFailure(t *testing.T) {
	en := newEngine(t)
	ex := newExchange(func(*exchange.ErrorExchange) error { return errors.New("handler also failed") })
	ex.Request.Headers.Set("Accept", "text/plain")
	term := &fakeTerminator{}

	require.NoError(t, en.Handle(ex, exchange.NotFound(errors.New("missing")), term))
	assert.Equal(t, 0, term.calls)
	assert.Equal(t, 404, ex.Response.Status())
	assert.Equal(t, "text/plain", ex.Response.Headers.ContentType())
}

func TestHandleTerminatesWhenLastResortFails(t *testing.T) {
	en := newEngine(t)
	ex := newExchange(func(*exchange.ErrorExchange) error { return errors.New("handler also failed") })
	ex.Response.Headers.Freeze() // forces the last-resort SetStatus call to fail
	term := &fakeTerminator{}

	require.NoError(t, en.Handle(ex, exchange.InternalServerError(errors.New("boom")), term))
	assert.Equal(t, 1, term.calls)
}
