package middleware

import (
	"context"
	"log/slog"
	"time"

	"sui-rpc/jsonrpc"
)

// Logging logs every call with its method, duration and outcome.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)
			switch {
			case err != nil:
				logger.Warn("rpc call failed", "method", req.Method, "id", req.ID, "duration", duration, "err", err)
			case resp.Error != nil:
				logger.Debug("rpc call error reply", "method", req.Method, "id", req.ID, "duration", duration, "code", resp.Error.Code)
			default:
				logger.Debug("rpc call", "method", req.Method, "id", req.ID, "duration", duration)
			}
			return resp, err
		}
	}
}
