package client

import (
	"context"
	"fmt"
	"sync"

	"sui-rpc/jsonrpc"
	"sui-rpc/transport"
)

// Subscription is a live push-event stream. Unsubscribing is the only
// cancellation primitive; it is idempotent and never panics into caller
// code.
type Subscription struct {
	client            *Client
	id                int64 // server-assigned subscription id
	method            string
	unsubscribeMethod string
	once              sync.Once
}

// ID returns the server-assigned subscription identifier.
func (s *Subscription) ID() int64 { return s.id }

// Subscribe sends a subscribe request and, once the node acks it, returns a
// live Subscription. onEvent receives each push event in wire order, on a
// per-subscription delivery goroutine — never on the dispatcher — so the
// handler may block, call Subscribe, or call Unsubscribe without stalling
// inbound dispatch. onError receives at most one terminal transport error.
//
// Push events can be delivered before Subscribe returns: a handler that
// needs the Subscription handle must obtain it through its own
// synchronization rather than a captured variable.
//
// The ack wait runs on the calling goroutine, never on the dispatcher, and
// honors ctx (plus the configured CallTimeout): a subscribe against a node
// that never acks does not leak its pending entry forever.
func (c *Client) Subscribe(ctx context.Context, method string, params []any, onEvent func(jsonrpc.PushEvent), onError func(error)) (*Subscription, error) {
	unsubMethod, ok := c.methods.UnsubscribeMethod(method)
	if !ok {
		return nil, fmt.Errorf("client: %q is not a subscribe-capable method", method)
	}

	req := c.newRequest(method, params)
	future, err := c.session.Pending().Add(req.ID)
	if err != nil {
		return nil, err
	}

	sink := transport.NewSink(onEvent, onError)
	if err := c.session.Subscriptions().AddProvisional(req.ID, sink); err != nil {
		c.session.Pending().Remove(req.ID)
		sink.Close()
		return nil, err
	}

	if err := c.session.Send(req); err != nil {
		// The send never reached the wire: tear down both entries
		// synchronously so nothing dangles, and report through the sink as
		// well so a callback-driven subscriber is not left waiting.
		c.session.Pending().Remove(req.ID)
		c.session.Subscriptions().RemoveProvisional(req.ID)
		sendErr := fmt.Errorf("client: subscribe send failed: %w", err)
		sink.Fail(sendErr)
		c.logger.Warn("subscribe request send failed", "method", method, "id", req.ID, "err", err)
		return nil, sendErr
	}

	ackCtx, cancel := c.ackContext(ctx)
	defer cancel()

	resp, err := future.Await(ackCtx)
	if err != nil {
		if _, removed := c.session.Pending().Remove(req.ID); removed {
			// We timed out before the dispatcher resolved the ack; the
			// provisional sink is still ours to clean up.
			c.session.Subscriptions().RemoveProvisional(req.ID)
			sink.Close()
			return nil, fmt.Errorf("client: subscribe %s: %w", method, err)
		}
		// The ack raced our deadline: the dispatcher got there first and the
		// future is already resolved. Take its outcome instead of leaking a
		// just-activated subscription.
		resp, err = future.Await(context.Background())
		if err != nil {
			return nil, fmt.Errorf("client: subscribe %s: %w", method, err)
		}
	}

	// The dispatcher re-keyed the registry entry to the subscription id
	// before resolving the future, so the stream is already live here.
	var subID int64
	if decodeErr := c.codec.Decode(resp.Result, &subID); decodeErr != nil {
		return nil, fmt.Errorf("client: subscribe %s: malformed ack result: %w", method, decodeErr)
	}

	return &Subscription{
		client:            c,
		id:                subID,
		method:            method,
		unsubscribeMethod: unsubMethod,
	}, nil
}

// Unsubscribe sends the unsubscribe request and removes the local stream
// state. Exactly one unsubscribe request is sent no matter how many times it
// is called. Failures are logged, not returned: once the subscriber has
// disposed of the stream there is no one left to deliver them to, and the
// local state is torn down either way.
func (s *Subscription) Unsubscribe(ctx context.Context) {
	s.once.Do(func() {
		s.client.unsubscribe(ctx, s)
	})
}

func (c *Client) unsubscribe(ctx context.Context, sub *Subscription) {
	req := c.newRequest(sub.unsubscribeMethod, []any{sub.id})
	future, err := c.session.Pending().Add(req.ID)
	if err != nil {
		c.removeSubscription(sub.id)
		c.logger.Error("unsubscribe bookkeeping failed", "method", sub.unsubscribeMethod, "subscription", sub.id, "err", err)
		return
	}

	if err := c.session.Send(req); err != nil {
		c.session.Pending().Remove(req.ID)
		c.removeSubscription(sub.id)
		c.logger.Error("unsubscribe request send failed",
			"method", sub.unsubscribeMethod, "id", req.ID, "subscription", sub.id, "err", err)
		return
	}

	ackCtx, cancel := c.ackContext(ctx)
	defer cancel()

	resp, err := future.Await(ackCtx)
	// Local state goes regardless of the outcome: the sink is unreachable
	// once disposed, so there is nothing useful to keep.
	c.session.Pending().Remove(req.ID)
	c.removeSubscription(sub.id)

	if err != nil {
		c.logger.Warn("unsubscribe ack not received",
			"method", sub.unsubscribeMethod, "id", req.ID, "subscription", sub.id, "err", err)
		return
	}

	var success bool
	if decodeErr := c.codec.Decode(resp.Result, &success); decodeErr != nil {
		c.logger.Warn("unsubscribe ack malformed",
			"method", sub.unsubscribeMethod, "id", req.ID, "subscription", sub.id, "err", decodeErr)
		return
	}
	if !success {
		c.logger.Warn("node reported unsubscribe failure",
			"method", sub.unsubscribeMethod, "id", req.ID, "subscription", sub.id)
	}
}

func (c *Client) removeSubscription(subID int64) {
	if sink, ok := c.session.Subscriptions().Remove(subID); ok {
		sink.Close()
		c.metrics.SubscriptionsAdd(-1)
	}
}

// ackContext bounds a subscribe/unsubscribe ack wait with the configured
// per-call timeout, if any.
func (c *Client) ackContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}
