package codec

import (
	"testing"

	"sui-rpc/jsonrpc"
)

func TestJSONCodec(t *testing.T) {
	jsonCodec := &JSONCodec{}

	original := jsonrpc.NewRequest(7, "suix_subscribeEvent", []any{map[string]any{"All": []any{}}})

	data, err := jsonCodec.Encode(original)
	if err != nil {
		t.Fatalf("JSONCodec Encode failed: %v", err)
	}

	var decoded jsonrpc.Request
	if err := jsonCodec.Decode(data, &decoded); err != nil {
		t.Fatalf("JSONCodec Decode failed: %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID mismatch: got %d, want %d", decoded.ID, original.ID)
	}
	if decoded.Method != original.Method {
		t.Errorf("Method mismatch: got %s, want %s", decoded.Method, original.Method)
	}
	if decoded.JSONRPC != "2.0" {
		t.Errorf("JSONRPC mismatch: got %s, want 2.0", decoded.JSONRPC)
	}
}

func TestJSONCodecReply(t *testing.T) {
	jsonCodec := Default()

	var resp jsonrpc.Response
	err := jsonCodec.Decode([]byte(`{"jsonrpc":"2.0","id":3,"error":{"code":-32602,"message":"invalid params"}}`), &resp)
	if err != nil {
		t.Fatal(err)
	}

	if resp.Error == nil {
		t.Fatal("expect error object")
	}
	if resp.Error.Kind() != jsonrpc.CodeInvalidParams {
		t.Errorf("expect invalid params, got %v", resp.Error.Kind())
	}
	if resp.Result != nil {
		t.Error("expect absent result on error reply")
	}
}
