package middleware

import (
	"context"
	"time"

	"sui-rpc/jsonrpc"
)

// Timeout bounds each call with a deadline. The pending HTTP exchange is
// cancelled through the context when the deadline passes.
func Timeout(timeout time.Duration) Middleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}
