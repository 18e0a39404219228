package exchange

import (
	"github.com/badu/exchange/body"
	"github.com/badu/exchange/header"
)

// DefaultStatus is the status a Response starts with absent an explicit
// SetStatus call.
const DefaultStatus = 200

// Response is the mutable-then-frozen response half of an Exchange.
type Response struct {
	status   int
	Headers  *header.Store
	Trailers *header.Store // nil until first set
	Body     *body.Body
}

// NewResponse returns a Response with default status 200, an empty
// mutable header store, no trailers, and an Unset body.
func NewResponse() *Response {
	return &Response{
		status:  DefaultStatus,
		Headers: header.New(),
		Body:    body.New(),
	}
}

// Status returns the current status code.
func (r *Response) Status() int { return r.status }

// SetStatus sets the status code. Only meaningful before
// Headers.Freeze(); once headers are written this returns the same
// ErrFinalized a late Headers.Set would.
func (r *Response) SetStatus(code int) error {
	if r.Headers.Frozen() {
		return header.ErrFinalized
	}
	r.status = code
	return nil
}

// ResetBody replaces the body with a fresh unset one. Used by the
// connection driver when a failed body publisher is being discarded in
// favor of an error response, before any bytes reached the wire.
func (r *Response) ResetBody() { r.Body = body.New() }

// SetTrailers lazily allocates the trailer store. Callers must not call
// this once the terminal DATA frame (H2) or the final chunk (H1) has
// been emitted. Nothing enforces that: the h1/h2 exchange types read
// Trailers when they write the terminal framing, and trailers added
// after that are not sent.
func (r *Response) SetTrailers() *header.Store {
	if r.Trailers == nil {
		r.Trailers = header.New()
	}
	return r.Trailers
}
