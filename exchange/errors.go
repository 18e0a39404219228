package exchange

// Kind enumerates the error kinds surfaced to the error handler.
type Kind int

const (
	KindProtocol Kind = iota
	KindNotFound
	KindConverter
	KindCancelled
	KindIdleTimeout
	KindInternal
)

// Error tags a failure with the kind and HTTP status the error handler
// dispatches on.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindNotFound:
		return "not-found"
	case KindConverter:
		return "converter"
	case KindCancelled:
		return "cancelled"
	case KindIdleTimeout:
		return "idle-timeout"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// StatusFor maps an error kind to its default HTTP status.
// Converter errors are ambiguous without direction context, so callers
// that know the converter failed on an outbound (response) body should
// use 500 directly; StatusFor's guess (inbound direction, 415) is the
// common case.
func (k Kind) StatusFor() int {
	switch k {
	case KindNotFound:
		return 404
	case KindConverter:
		return 415
	case KindIdleTimeout:
		return 408
	case KindProtocol:
		return 400
	case KindCancelled:
		return 0 // terminal, no response written
	default:
		return 500
	}
}

// BadRequest, NotFound, InternalServerError, ServiceUnavailable, and
// HttpException construct tagged errors for the common status mappings.
func BadRequest(cause error) *Error {
	return &Error{Kind: KindProtocol, Status: 400, Cause: cause}
}

func NotFound(cause error) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Cause: cause}
}

func InternalServerError(cause error) *Error {
	return &Error{Kind: KindInternal, Status: 500, Cause: cause}
}

func ServiceUnavailable(cause error) *Error {
	return &Error{Kind: KindInternal, Status: 503, Cause: cause}
}

func HttpException(status int, cause error) *Error {
	return &Error{Kind: KindInternal, Status: status, Cause: cause}
}
