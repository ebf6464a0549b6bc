package jsonrpc

import (
	"context"
	"sync"
)

// Future is a single-assignment result slot for one outstanding request.
//
// It is resolved exactly once — with a Response on success or an error on
// failure — by whichever side finishes first (the dispatcher, the HTTP
// callback, or local cleanup). Later resolutions are silently ignored, so a
// caller racing the dispatcher cannot double-complete it.
type Future struct {
	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

// NewFuture creates an unresolved future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve completes the future with a reply. No-op if already resolved.
func (f *Future) Resolve(resp *Response) {
	f.once.Do(func() {
		f.resp = resp
		close(f.done)
	})
}

// Fail completes the future with an error. No-op if already resolved.
func (f *Future) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves or ctx is cancelled. On ctx
// cancellation the future itself stays unresolved — the caller is responsible
// for removing its pending entry.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
