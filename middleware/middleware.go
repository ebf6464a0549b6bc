// Package middleware provides composable wrappers around the unary call
// path. The client applies the chain to every outbound HTTP call.
package middleware

import (
	"context"

	"sui-rpc/jsonrpc"
)

// CallFunc performs one unary call and waits for its reply.
type CallFunc func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)

// Middleware wraps a CallFunc with extra behavior.
type Middleware func(next CallFunc) CallFunc

// Chain composes middlewares into one; the first middleware is the
// outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next CallFunc) CallFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
