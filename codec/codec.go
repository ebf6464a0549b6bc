// Package codec abstracts serialization of JSON-RPC payloads.
//
// The transport layer never marshals directly; it goes through a Codec so
// callers can swap in a different JSON implementation (or instrument this
// one) without touching the dispatch logic.
package codec

// Codec encodes request objects to wire payloads and decodes wire payloads
// into typed values. Implementations must be safe for concurrent use.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error

	// ContentType is the MIME type sent on HTTP requests.
	ContentType() string
}

// Default returns the codec used when none is configured.
func Default() Codec {
	return &JSONCodec{}
}
