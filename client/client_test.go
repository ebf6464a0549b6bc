package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"sui-rpc/config"
	"sui-rpc/jsonrpc"
)

func newTestClient(t *testing.T, node *mockNode) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint = node.URL()
	cfg.CallTimeout = 5 * time.Second

	c, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWebSocketEndpoint(t *testing.T) {
	cases := []struct {
		base, want string
	}{
		{"http://127.0.0.1:9000", "ws://127.0.0.1:9000"},
		{"https://fullnode.mainnet.example.io:443", "wss://fullnode.mainnet.example.io:443"},
	}
	for _, tc := range cases {
		if got := WebSocketEndpoint(tc.base); got != tc.want {
			t.Errorf("WebSocketEndpoint(%q): expect %q, got %q", tc.base, tc.want, got)
		}
	}
}

// Concurrently issued unary calls must each resolve with the reply whose id
// matches, whatever the arrival interleaving.
func TestUnaryCallsConcurrent(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Call(context.Background(), "sui_getObject", "0x1")
			if err != nil {
				t.Error(err)
				return
			}
			if resp.Error != nil {
				t.Errorf("unexpected error reply: %v", resp.Error)
				return
			}
			var result struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(resp.Result, &result); err != nil {
				t.Error(err)
				return
			}
			if result.ID != resp.ID {
				t.Errorf("reply correlation broken: future for id %d got result for id %d", resp.ID, result.ID)
			}
		}()
	}
	wg.Wait()
}

func TestUnaryBadStatus(t *testing.T) {
	node := newMockNode(t)
	node.httpHandler = func(w http.ResponseWriter, req *jsonrpc.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}
	c := newTestClient(t, node)

	resp, err := c.Call(context.Background(), "bar")
	if err != nil {
		t.Fatalf("expect completed call, got failure %v", err)
	}
	if resp.Error == nil || resp.Error.Kind() != jsonrpc.CodeBadStatus {
		t.Fatalf("expect bad status reply, got %v", resp.Error)
	}
}

func TestCallInto(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)

	var result struct {
		Method string `json:"method"`
	}
	if err := c.CallInto(context.Background(), &result, "sui_getLatestCheckpointSequenceNumber"); err != nil {
		t.Fatal(err)
	}
	if result.Method != "sui_getLatestCheckpointSequenceNumber" {
		t.Fatalf("unexpected decoded result: %+v", result)
	}
}

func TestCallIntoErrorReply(t *testing.T) {
	node := newMockNode(t)
	node.httpHandler = func(w http.ResponseWriter, req *jsonrpc.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	}
	c := newTestClient(t, node)

	err := c.CallInto(context.Background(), nil, "bar", "bogus")
	rpcErr, ok := err.(*jsonrpc.Error)
	if !ok || rpcErr.Kind() != jsonrpc.CodeInvalidParams {
		t.Fatalf("expect invalid params error, got %v", err)
	}
}

// Subscribe, receive events, unsubscribe: afterwards no bookkeeping entry
// for the request ids or the subscription id may remain.
func TestSubscriptionLifecycle(t *testing.T) {
	node := newMockNode(t)
	node.pushOnSubscribe = 2
	c := newTestClient(t, node)

	events := make(chan jsonrpc.PushEvent, 4)
	sub, err := c.Subscribe(context.Background(), "suix_subscribeEvent", []any{map[string]any{"All": []any{}}},
		func(ev jsonrpc.PushEvent) { events <- ev },
		func(err error) { t.Errorf("unexpected sink error: %v", err) })
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID() != 42 {
		t.Fatalf("expect server-assigned subscription id 42, got %d", sub.ID())
	}

	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			if ev.Params.Subscription != 42 {
				t.Fatalf("event for wrong subscription: %d", ev.Params.Subscription)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expect push event %d", i+1)
		}
	}

	sub.Unsubscribe(context.Background())

	calls := node.unsubscribeCalls()
	if len(calls) != 1 {
		t.Fatalf("expect exactly one unsubscribe request, got %d", len(calls))
	}
	if calls[0].Method != "suix_unsubscribeEvent" {
		t.Fatalf("expect table-derived unsubscribe method, got %q", calls[0].Method)
	}
	if len(calls[0].Params) != 1 {
		t.Fatalf("expect subscription id param, got %v", calls[0].Params)
	}
	if id, ok := calls[0].Params[0].(float64); !ok || int64(id) != 42 {
		t.Fatalf("expect unsubscribe param 42, got %v", calls[0].Params[0])
	}

	if n := c.session.Pending().Len(); n != 0 {
		t.Fatalf("expect empty pending table, got %d entries", n)
	}
	provisional, live := c.session.Subscriptions().Len()
	if provisional != 0 || live != 0 {
		t.Fatalf("expect empty registry, got %d provisional, %d live", provisional, live)
	}
}

// Disposing a stream from inside its own event handler — receive the one
// event of interest, then unsubscribe — must complete promptly: the handler
// runs off the dispatcher goroutine, so the unsubscribe ack can still be
// read and routed while the handler waits for it.
func TestUnsubscribeFromEventHandler(t *testing.T) {
	node := newMockNode(t)
	node.pushOnSubscribe = 1
	c := newTestClient(t, node)

	// The first event can beat the Subscribe return, so the handler takes the
	// handle from a channel instead of a captured variable.
	ready := make(chan *Subscription, 1)
	done := make(chan struct{})
	sub, err := c.Subscribe(context.Background(), "suix_subscribeTransaction", nil,
		func(jsonrpc.PushEvent) {
			s := <-ready
			s.Unsubscribe(context.Background())
			close(done)
		},
		func(err error) { t.Errorf("unexpected sink error: %v", err) })
	if err != nil {
		t.Fatal(err)
	}
	ready <- sub

	// Well under the 5s CallTimeout: a handler-blocked dispatcher would sit
	// on the full timeout and trip this deadline instead.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe from the event handler stalled")
	}

	if calls := node.unsubscribeCalls(); len(calls) != 1 {
		t.Fatalf("expect exactly one unsubscribe request, got %d", len(calls))
	}
	if n := c.session.Pending().Len(); n != 0 {
		t.Fatalf("expect empty pending table, got %d entries", n)
	}
	provisional, live := c.session.Subscriptions().Len()
	if provisional != 0 || live != 0 {
		t.Fatalf("expect empty registry, got %d provisional, %d live", provisional, live)
	}
}

// Disposing twice sends exactly one unsubscribe request.
func TestUnsubscribeIdempotent(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)

	sub, err := c.Subscribe(context.Background(), "suix_subscribeTransaction", nil,
		func(jsonrpc.PushEvent) {}, nil)
	if err != nil {
		t.Fatal(err)
	}

	sub.Unsubscribe(context.Background())
	sub.Unsubscribe(context.Background())

	if calls := node.unsubscribeCalls(); len(calls) != 1 {
		t.Fatalf("expect exactly one unsubscribe request, got %d", len(calls))
	}
}

// A subscribe whose socket send is rejected must clean up both tables and
// report the failure to the error callback.
func TestSubscribeSendFailure(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	sinkErrs := make(chan error, 1)
	_, err := c.Subscribe(context.Background(), "suix_subscribeEvent", nil,
		func(jsonrpc.PushEvent) {}, func(err error) { sinkErrs <- err })
	if err == nil {
		t.Fatal("expect subscribe to fail on a closed session")
	}

	select {
	case <-sinkErrs:
	case <-time.After(time.Second):
		t.Fatal("expect send failure delivered to the error callback")
	}

	if n := c.session.Pending().Len(); n != 0 {
		t.Fatalf("expect no dangling pending entry, got %d", n)
	}
	provisional, live := c.session.Subscriptions().Len()
	if provisional != 0 || live != 0 {
		t.Fatalf("expect no dangling registry entry, got %d provisional, %d live", provisional, live)
	}
}

// An unsubscribe whose socket send is rejected still removes the pending
// entry and the live sink; the failure is only logged.
func TestUnsubscribeSendFailure(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)

	sinkErrs := make(chan error, 1)
	sub, err := c.Subscribe(context.Background(), "suix_subscribeEvent", nil,
		func(jsonrpc.PushEvent) {}, func(err error) { sinkErrs <- err })
	if err != nil {
		t.Fatal(err)
	}

	if err := c.session.Close(); err != nil {
		t.Fatal(err)
	}
	<-c.session.Done()

	sub.Unsubscribe(context.Background())

	if calls := node.unsubscribeCalls(); len(calls) != 0 {
		t.Fatalf("expect no unsubscribe request on a closed session, got %d", len(calls))
	}
	if n := c.session.Pending().Len(); n != 0 {
		t.Fatalf("expect no dangling pending entry, got %d", n)
	}
	provisional, live := c.session.Subscriptions().Len()
	if provisional != 0 || live != 0 {
		t.Fatalf("expect no dangling registry entry, got %d provisional, %d live", provisional, live)
	}
}

func TestSubscribeUnknownMethod(t *testing.T) {
	node := newMockNode(t)
	c := newTestClient(t, node)

	_, err := c.Subscribe(context.Background(), "sui_getObject", nil, func(jsonrpc.PushEvent) {}, nil)
	if err == nil {
		t.Fatal("expect rejection of a method without an unsubscribe counterpart")
	}
}
