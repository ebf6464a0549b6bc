package jsonrpc

import "fmt"

// ErrorCode is the closed set of failure kinds a call can report.
//
// The negative values are the JSON-RPC 2.0 wire codes. CodeTransportError and
// CodeBadStatus never appear on the wire — they are synthesized locally for
// HTTP failures that produced no JSON-RPC error object at all.
type ErrorCode int

const (
	CodeUnknown        ErrorCode = 0
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603

	// Local-only synthetic kinds.
	CodeTransportError ErrorCode = -1
	CodeBadStatus      ErrorCode = -2
)

// CodeOf maps a raw wire code to a member of the closed enumeration.
// Unlisted codes collapse to CodeUnknown rather than leaking arbitrary
// integers into the taxonomy.
func CodeOf(code int) ErrorCode {
	switch ErrorCode(code) {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound,
		CodeInvalidParams, CodeInternalError,
		CodeTransportError, CodeBadStatus:
		return ErrorCode(code)
	default:
		return CodeUnknown
	}
}

func (c ErrorCode) String() string {
	switch c {
	case CodeParseError:
		return "parse error"
	case CodeInvalidRequest:
		return "invalid request"
	case CodeMethodNotFound:
		return "method not found"
	case CodeInvalidParams:
		return "invalid params"
	case CodeInternalError:
		return "internal error"
	case CodeTransportError:
		return "transport error"
	case CodeBadStatus:
		return "bad status"
	default:
		return "unknown"
	}
}

// Error is a JSON-RPC error object. Cause carries the underlying Go error for
// the synthetic local kinds (never serialized).
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jsonrpc: %s (%d): %s: %v", CodeOf(e.Code), e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("jsonrpc: %s (%d): %s", CodeOf(e.Code), e.Code, e.Message)
}

// Kind returns the symbolic code for the raw wire code.
func (e *Error) Kind() ErrorCode {
	return CodeOf(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// TransportError wraps a network-level failure (connection refused, timeout,
// abrupt close) as a reply-level error value.
func TransportError(cause error) *Error {
	return &Error{Code: int(CodeTransportError), Message: "transport error", Cause: cause}
}

// BadStatusError reports a non-success HTTP status that carried no JSON-RPC
// error body.
func BadStatusError(status int) *Error {
	return &Error{Code: int(CodeBadStatus), Message: fmt.Sprintf("bad http status %d", status)}
}
