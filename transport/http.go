package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sui-rpc/codec"
	"sui-rpc/jsonrpc"
	"sui-rpc/metrics"
)

// HTTPInvoker issues unary JSON-RPC calls over HTTP POST. It is independent
// of the socket session: each call is one request, one response, no ongoing
// stream.
type HTTPInvoker struct {
	url     string
	client  *http.Client
	codec   codec.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHTTPInvoker creates an invoker for the given base endpoint. timeout
// bounds the whole HTTP exchange (dial, write, read), not individual RPC
// semantics.
func NewHTTPInvoker(url string, timeout time.Duration, cdc codec.Codec, logger *slog.Logger, m *metrics.Metrics) *HTTPInvoker {
	if cdc == nil {
		cdc = codec.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPInvoker{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		codec:   cdc,
		logger:  logger,
		metrics: m,
	}
}

// Call issues req asynchronously and returns a future for its reply. The
// calling goroutine never blocks on the network.
//
// Failure surfaces split two ways, deliberately: transport faults and bad
// HTTP statuses resolve the future *successfully* with a reply whose Error is
// the synthetic TransportError/BadStatus kind, so callers see a uniform
// failed-call outcome. Future failure is reserved for local defects — a
// request that cannot be encoded, or a success body that cannot be decoded.
func (h *HTTPInvoker) Call(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Future {
	future := jsonrpc.NewFuture()

	body, err := h.codec.Encode(req)
	if err != nil {
		// No network I/O is attempted for a request we cannot encode.
		future.Fail(err)
		h.metrics.ObserveCall(req.Method, "encode_error")
		return future
	}

	h.metrics.PendingAdd(1)
	go func() {
		defer h.metrics.PendingAdd(-1)
		h.do(ctx, req, body, future)
	}()
	return future
}

func (h *HTTPInvoker) do(ctx context.Context, req *jsonrpc.Request, body []byte, future *jsonrpc.Future) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		future.Fail(err)
		h.metrics.ObserveCall(req.Method, "encode_error")
		return
	}
	httpReq.Header.Set("Content-Type", h.codec.ContentType())

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		h.logger.Debug("unary call transport failure", "method", req.Method, "id", req.ID, "err", err)
		future.Resolve(&jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: req.ID, Error: jsonrpc.TransportError(err)})
		h.metrics.ObserveCall(req.Method, "transport_error")
		return
	}
	// The body is released exactly once, success or failure path.
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		h.logger.Debug("unary call bad status", "method", req.Method, "id", req.ID, "status", httpResp.StatusCode)
		future.Resolve(&jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: req.ID, Error: jsonrpc.BadStatusError(httpResp.StatusCode)})
		h.metrics.ObserveCall(req.Method, "bad_status")
		return
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		future.Resolve(&jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: req.ID, Error: jsonrpc.TransportError(err)})
		h.metrics.ObserveCall(req.Method, "transport_error")
		return
	}

	var resp jsonrpc.Response
	if err := h.codec.Decode(raw, &resp); err != nil {
		// The node is trusted to return well-formed bodies on success, so a
		// decode failure is a local defect, not a call outcome.
		future.Fail(err)
		h.metrics.ObserveCall(req.Method, "decode_error")
		return
	}

	if resp.Error != nil {
		h.metrics.ObserveCall(req.Method, "rpc_error")
	} else {
		h.metrics.ObserveCall(req.Method, "ok")
	}
	future.Resolve(&resp)
}
