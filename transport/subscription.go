package transport

import (
	"fmt"
	"sync"

	"sui-rpc/jsonrpc"
)

// Sink is the per-subscription destination for decoded push events. Each
// sink owns a delivery goroutine: the dispatcher only enqueues, so a
// subscriber callback is free to block — or to subscribe and unsubscribe —
// without stalling inbound dispatch. Events for one subscription are
// delivered in enqueue order.
type Sink struct {
	onEvent func(jsonrpc.PushEvent)
	onError func(error)

	mu     sync.Mutex
	queue  []jsonrpc.PushEvent
	err    error // terminal error, delivered once the queue drains
	closed bool
	wake   chan struct{} // buffered 1, coalesces enqueue signals
}

// NewSink wraps the subscriber's callbacks and starts the delivery
// goroutine. Either callback may be nil. The goroutine runs until Fail or
// Close is called.
func NewSink(onEvent func(jsonrpc.PushEvent), onError func(error)) *Sink {
	s := &Sink{onEvent: onEvent, onError: onError, wake: make(chan struct{}, 1)}
	go s.deliverLoop()
	return s
}

// Deliver enqueues one push event for the subscriber. It never blocks the
// caller; events enqueued after Fail or Close are dropped.
func (s *Sink) Deliver(ev jsonrpc.PushEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.signal()
}

// Fail records a terminal transport-level error, at most once. The
// subscriber sees it after any already-queued events; the delivery goroutine
// exits afterwards. Disposal after Fail is still safe.
func (s *Sink) Fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()
	s.signal()
}

// Close stops the delivery goroutine once queued events drain, without
// reporting an error. Used when the subscriber disposed of the stream
// itself.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Sink) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sink) deliverLoop() {
	for range s.wake {
		for {
			s.mu.Lock()
			if len(s.queue) > 0 {
				ev := s.queue[0]
				s.queue = s.queue[1:]
				s.mu.Unlock()
				if s.onEvent != nil {
					s.onEvent(ev)
				}
				continue
			}
			closed, err := s.closed, s.err
			s.mu.Unlock()
			if closed {
				if err != nil && s.onError != nil {
					s.onError(err)
				}
				return
			}
			break
		}
	}
}

// SubscriptionRegistry tracks push-event sinks through their two lifecycle
// keys: while the subscribe call is in flight the sink is keyed by request
// id; once the node acks with a subscription id the entry is atomically
// re-keyed and becomes live.
//
// Invariant held here: a request id appears under at most one key, and a
// subscription id, once assigned, maps to at most one live sink.
type SubscriptionRegistry struct {
	mu          sync.Mutex
	provisional map[int64]*Sink // keyed by request id, pre-ack
	live        map[int64]*Sink // keyed by subscription id, post-ack
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		provisional: make(map[int64]*Sink),
		live:        make(map[int64]*Sink),
	}
}

// AddProvisional registers a sink under its subscribe request id.
// Insert-if-absent, same as PendingTable.Add.
func (r *SubscriptionRegistry) AddProvisional(requestID int64, sink *Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.provisional[requestID]; ok {
		return fmt.Errorf("subscription: request id %d already registered", requestID)
	}
	r.provisional[requestID] = sink
	return nil
}

// Activate atomically re-keys the provisional entry for requestID to
// subscriptionID. Reports false if no provisional entry exists (the subscribe
// was already cleaned up locally).
func (r *SubscriptionRegistry) Activate(requestID, subscriptionID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.provisional[requestID]
	if !ok {
		return false
	}
	delete(r.provisional, requestID)
	r.live[subscriptionID] = sink
	return true
}

// HasProvisional reports whether a pre-ack entry exists for requestID. Only
// the dispatcher re-keys entries, so a check-then-Activate sequence on the
// dispatcher goroutine cannot race another re-key.
func (r *SubscriptionRegistry) HasProvisional(requestID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.provisional[requestID]
	return ok
}

// RemoveProvisional deletes and returns the pre-ack entry for requestID.
func (r *SubscriptionRegistry) RemoveProvisional(requestID int64) (*Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.provisional[requestID]
	if ok {
		delete(r.provisional, requestID)
	}
	return sink, ok
}

// Remove deletes and returns the live entry for subscriptionID.
func (r *SubscriptionRegistry) Remove(subscriptionID int64) (*Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.live[subscriptionID]
	if ok {
		delete(r.live, subscriptionID)
	}
	return sink, ok
}

// Get looks up the live sink for subscriptionID.
func (r *SubscriptionRegistry) Get(subscriptionID int64) (*Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.live[subscriptionID]
	return sink, ok
}

// Len reports provisional and live entry counts.
func (r *SubscriptionRegistry) Len() (provisional, live int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.provisional), len(r.live)
}

// FailAll reports err to every sink and empties the registry. Called when the
// connection breaks.
func (r *SubscriptionRegistry) FailAll(err error) {
	r.mu.Lock()
	provisional := r.provisional
	live := r.live
	r.provisional = make(map[int64]*Sink)
	r.live = make(map[int64]*Sink)
	r.mu.Unlock()

	for _, s := range provisional {
		s.Fail(err)
	}
	for _, s := range live {
		s.Fail(err)
	}
}
