// Package client is the JSON-RPC client facade. It multiplexes unary calls
// over HTTP and push subscriptions over a single WebSocket connection to one
// node, correlating every asynchronous reply with the call that issued it.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"sui-rpc/codec"
	"sui-rpc/config"
	"sui-rpc/jsonrpc"
	"sui-rpc/loadbalance"
	"sui-rpc/metrics"
	"sui-rpc/middleware"
	"sui-rpc/registry"
	"sui-rpc/transport"
)

// Options are the optional collaborators of a Client. Zero values select
// defaults.
type Options struct {
	Codec       codec.Codec
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Methods     MethodTable
	Middlewares []middleware.Middleware
}

// Client talks to one node. All methods are safe for concurrent use.
type Client struct {
	cfg     *config.Config
	codec   codec.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
	methods MethodTable

	invoker *transport.HTTPInvoker
	session *transport.SocketSession
	call    middleware.CallFunc

	// nextID generates collision-free request ids across unary and
	// subscription calls alike.
	nextID atomic.Int64
}

// NewClient connects to the node configured in cfg with default
// collaborators.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	return NewClientWithOptions(ctx, cfg, Options{})
}

// NewClientWithOptions connects to the node configured in cfg. The WebSocket
// endpoint is derived from cfg.Endpoint by scheme substitution, and the
// socket session is established eagerly so subscriptions work from the first
// call.
func NewClientWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Methods == nil {
		opts.Methods = DefaultMethods()
	}
	if err := opts.Methods.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		codec:   opts.Codec,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		methods: opts.Methods,
	}

	c.invoker = transport.NewHTTPInvoker(cfg.Endpoint, cfg.ReadTimeout+cfg.WriteTimeout, opts.Codec, opts.Logger, opts.Metrics)

	session, err := transport.Dial(ctx, WebSocketEndpoint(cfg.Endpoint), transport.SessionOptions{
		PingInterval: cfg.PingInterval,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Codec:        opts.Codec,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c.session = session

	c.call = c.buildCallChain(opts.Middlewares)
	return c, nil
}

// NewClientFromRegistry discovers the node endpoints registered for
// cfg.Discovery.Network, picks one with the balancer, and connects to it.
func NewClientFromRegistry(ctx context.Context, reg registry.Registry, bal loadbalance.Balancer, cfg *config.Config, opts Options) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	endpoints, err := reg.Discover(cfg.Discovery.Network)
	if err != nil {
		return nil, fmt.Errorf("client: discover %q endpoints: %w", cfg.Discovery.Network, err)
	}
	endpoint, err := bal.Pick(endpoints)
	if err != nil {
		return nil, fmt.Errorf("client: pick %q endpoint: %w", cfg.Discovery.Network, err)
	}

	resolved := *cfg
	resolved.Endpoint = endpoint.URL
	return NewClientWithOptions(ctx, &resolved, opts)
}

// buildCallChain stacks the configured middlewares around the raw HTTP call.
// Order: user middlewares, logging, rate limit, per-call timeout, invoker.
func (c *Client) buildCallChain(user []middleware.Middleware) middleware.CallFunc {
	base := func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
		return c.invoker.Call(ctx, req).Await(ctx)
	}

	mws := make([]middleware.Middleware, 0, len(user)+3)
	mws = append(mws, user...)
	mws = append(mws, middleware.Logging(c.logger))
	if c.cfg.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(c.cfg.RateLimit, c.cfg.RateBurst))
	}
	if c.cfg.CallTimeout > 0 {
		mws = append(mws, middleware.Timeout(c.cfg.CallTimeout))
	}
	return middleware.Chain(mws...)(base)
}

// WebSocketEndpoint derives the ws(s) endpoint from an http(s) one on the
// same host and path.
func WebSocketEndpoint(base string) string {
	if strings.HasPrefix(base, "https") {
		return "wss" + strings.TrimPrefix(base, "https")
	}
	return "ws" + strings.TrimPrefix(base, "http")
}

// newRequest assigns the next request id. Ids are unique among all
// outstanding requests this client has generated, unary and subscription
// alike.
func (c *Client) newRequest(method string, params []any) *jsonrpc.Request {
	return jsonrpc.NewRequest(c.nextID.Add(1), method, params)
}

// Call issues one unary request over HTTP and waits for its reply.
//
// An RPC-level or transport-level failure comes back as a non-nil
// Response.Error, not as a Go error: callers get a uniform failed-call
// outcome whether the node rejected the call or the network dropped it. The
// error return is reserved for local defects and context cancellation.
func (c *Client) Call(ctx context.Context, method string, params ...any) (*jsonrpc.Response, error) {
	return c.call(ctx, c.newRequest(method, params))
}

// CallInto issues a unary call and decodes the reply's result into result.
// Error replies are returned as *jsonrpc.Error.
func (c *Client) CallInto(ctx context.Context, result any, method string, params ...any) error {
	resp, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	return c.codec.Decode(resp.Result, result)
}

// Session exposes the underlying socket session, mainly for inspection in
// tests.
func (c *Client) Session() *transport.SocketSession {
	return c.session
}

// Close tears down the WebSocket session. Outstanding calls and live
// subscriptions are failed with a connection-lost error.
func (c *Client) Close() error {
	return c.session.Close()
}
