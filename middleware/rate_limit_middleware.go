package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"sui-rpc/jsonrpc"
)

// ErrRateLimited is returned when a call exceeds the configured rate.
var ErrRateLimited = errors.New("middleware: rate limit exceeded")

// RateLimit applies a token-bucket limit of r calls per second with the
// given burst to the call path.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			if !limiter.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}
