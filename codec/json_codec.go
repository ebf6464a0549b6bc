package codec

import (
	"encoding/json"
)

// JSONCodec uses Go's standard library encoding/json. JSON-RPC 2.0 is a JSON
// protocol, so this is the only wire codec; the interface exists for callers
// who want to substitute a faster encoder.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) ContentType() string {
	return "application/json; charset=utf-8"
}
