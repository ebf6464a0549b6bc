// Package transport implements the two halves of the RPC transport: the
// asynchronous HTTP unary invoker and the WebSocket socket session with its
// single-goroutine inbound dispatcher.
//
// Multiple caller goroutines issue calls concurrently; exactly one dispatcher
// goroutine processes inbound socket frames serially. The PendingTable and
// SubscriptionRegistry are the only shared mutable state between them:
//
//	caller-1 ──Send(id=7)──┐
//	caller-2 ──Send(id=8)──┼──→ single WebSocket ──→ node
//	caller-3 ──Send(id=9)──┘
//
//	readLoop: ←── reply(id=8) → pending[8].Resolve → caller-2 wakes up
//	          ←── push(sub=42) → sinks[42] → subscriber callback
package transport

import (
	"fmt"
	"sync"

	"sui-rpc/jsonrpc"
)

// PendingTable correlates outstanding request ids with their result slots.
//
// Contract: Add is insert-if-absent (a duplicate id is a caller bug and is
// rejected, keeping the at-most-one-entry-per-id invariant at the data
// structure rather than by caller discipline). Remove returns the previous
// entry, so the dispatcher and a timing-out caller can race on the same id
// and exactly one of them wins ownership of the future.
type PendingTable struct {
	mu    sync.Mutex
	calls map[int64]*jsonrpc.Future
}

func NewPendingTable() *PendingTable {
	return &PendingTable{calls: make(map[int64]*jsonrpc.Future)}
}

// Add registers a fresh future for id. Fails if id is already outstanding.
func (t *PendingTable) Add(id int64) (*jsonrpc.Future, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.calls[id]; ok {
		return nil, fmt.Errorf("pending: request id %d already in flight", id)
	}
	f := jsonrpc.NewFuture()
	t.calls[id] = f
	return f, nil
}

// Remove deletes and returns the entry for id, reporting whether it existed.
func (t *PendingTable) Remove(id int64) (*jsonrpc.Future, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	return f, ok
}

// Len reports the number of outstanding entries.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// FailAll resolves every outstanding entry with err and empties the table.
// Called when the connection breaks so no caller blocks forever.
func (t *PendingTable) FailAll(err error) {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[int64]*jsonrpc.Future)
	t.mu.Unlock()

	for _, f := range calls {
		f.Fail(err)
	}
}
