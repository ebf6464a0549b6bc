// Package jsonrpc defines the JSON-RPC 2.0 wire types exchanged with a node.
//
// Every call — over HTTP or over the WebSocket — is a Request with a unique
// integer id. Replies echo that id back; push events carry no id at all, which
// is how the dispatcher tells them apart.
package jsonrpc

import "encoding/json"

// Version is the protocol version sent on every request.
const Version = "2.0"

// Request is a single JSON-RPC 2.0 request.
//
// The id must be unique among all currently outstanding requests, unary and
// subscription alike — the caller side owns the counter. A Request is
// immutable once sent.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds a request for the given id, method and positional params.
// A nil params slice is normalized to an empty array so the wire form is
// always "params":[] rather than "params":null.
func NewRequest(id int64, method string, params []any) *Request {
	if params == nil {
		params = []any{}
	}
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// Response is a reply to a Request, either an HTTP body or a WebSocket ack.
// Exactly one of Result/Error is present on a well-formed reply. Result stays
// raw; typed decoding is the caller's concern.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// PushEvent is a server-initiated WebSocket notification. It has no top-level
// id; the method names the event kind and params.subscription selects the
// live subscription it belongs to.
type PushEvent struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  PushParams `json:"params"`
}

// PushParams carries the subscription id and the event payload.
type PushParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
