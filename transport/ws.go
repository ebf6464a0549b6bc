package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sui-rpc/codec"
	"sui-rpc/jsonrpc"
	"sui-rpc/metrics"
)

// ConnState is the socket session's connection state.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
	StateFailed // terminal, reached from any non-terminal state on a transport fault
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotOpen is returned by Send while the session is not in StateOpen.
var ErrNotOpen = errors.New("transport: socket session not open")

// SessionOptions configures a SocketSession.
type SessionOptions struct {
	// PingInterval is how often a ping frame is written to keep the
	// connection alive. ReadTimeout/WriteTimeout are deadlines on the
	// underlying connection, not on individual RPC calls.
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Codec   codec.Codec
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (o *SessionOptions) withDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 15 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 15 * time.Second
	}
	if o.Codec == nil {
		o.Codec = codec.Default()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// SocketSession owns the one persistent WebSocket connection to the node.
//
// A single readLoop goroutine is the dispatcher: it classifies each inbound
// frame as a reply (has an id) or a push event (no id) and routes it to the
// PendingTable or the SubscriptionRegistry. Frames are processed one at a
// time, in arrival order, never concurrently with each other — everything
// else about the session follows from that.
type SocketSession struct {
	conn    *websocket.Conn
	codec   codec.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics

	pending *PendingTable
	subs    *SubscriptionRegistry

	writeMu      sync.Mutex // one conn shared by all senders and the ping loop
	writeTimeout time.Duration
	readTimeout  time.Duration
	pingInterval time.Duration

	stateMu sync.Mutex
	state   ConnState

	done chan struct{} // closed when the readLoop exits
}

// Dial connects to wsURL and starts the dispatcher and keep-alive goroutines.
func Dial(ctx context.Context, wsURL string, opts SessionOptions) (*SocketSession, error) {
	opts.withDefaults()

	s := &SocketSession{
		codec:        opts.Codec,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		pending:      NewPendingTable(),
		subs:         NewSubscriptionRegistry(),
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		pingInterval: opts.PingInterval,
		state:        StateConnecting,
		done:         make(chan struct{}),
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		s.transition(StateFailed)
		return nil, fmt.Errorf("transport: dial %s: %w", wsURL, err)
	}
	s.conn = conn
	s.transition(StateOpen)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout + s.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.readTimeout + s.pingInterval))
	})

	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

// Pending exposes the pending-call table shared with the dispatcher.
func (s *SocketSession) Pending() *PendingTable { return s.pending }

// Subscriptions exposes the subscription registry shared with the dispatcher.
func (s *SocketSession) Subscriptions() *SubscriptionRegistry { return s.subs }

// State returns the current connection state.
func (s *SocketSession) State() ConnState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// transition moves to next unless the session is already terminal.
func (s *SocketSession) transition(next ConnState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == StateClosed || s.state == StateFailed {
		return
	}
	s.logger.Debug("socket state change", "from", s.state.String(), "to", next.String())
	s.state = next
}

// Send encodes and writes one request frame. It fails synchronously while the
// session is not open — callers own the cleanup of any pending entry they
// registered for the request.
func (s *SocketSession) Send(req *jsonrpc.Request) error {
	if s.State() != StateOpen {
		return ErrNotOpen
	}
	data, err := s.codec.Encode(req)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: send request id %d: %w", req.ID, err)
	}
	return nil
}

// Close performs the closing handshake and tears down the session. Pending
// calls and live sinks are failed so no caller blocks forever.
func (s *SocketSession) Close() error {
	if st := s.State(); st == StateClosed || st == StateFailed {
		return nil
	}
	s.transition(StateClosing)

	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	err := s.conn.Close()
	s.transition(StateClosed)
	return err
}

// Done is closed once the dispatcher has exited.
func (s *SocketSession) Done() <-chan struct{} { return s.done }

// readLoop is the dispatcher. One goroutine reads frames sequentially; a
// broken connection fails every outstanding call and sink, then the loop
// exits.
func (s *SocketSession) readLoop() {
	defer close(s.done)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(err)
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout + s.pingInterval))
		s.dispatch(frame)
	}
}

// inboundFrame is the generic probe decoded from every inbound frame. The id
// field decides the frame's kind: present means reply, absent means push
// event.
type inboundFrame struct {
	ID     *int64              `json:"id"`
	Method string              `json:"method"`
	Error  *jsonrpc.Error      `json:"error"`
	Result json.RawMessage     `json:"result"`
	Params *jsonrpc.PushParams `json:"params"`
}

// dispatch routes one frame. Protocol anomalies — an unknown id, an unknown
// subscription, an undecodable frame — are logged and dropped, never allowed
// to take down the dispatcher.
func (s *SocketSession) dispatch(frame []byte) {
	var in inboundFrame
	if err := s.codec.Decode(frame, &in); err != nil {
		s.logger.Warn("dropping undecodable frame", "err", err)
		return
	}

	if in.ID != nil {
		s.dispatchReply(&in)
		return
	}
	s.dispatchPush(&in)
}

func (s *SocketSession) dispatchReply(in *inboundFrame) {
	id := *in.ID
	future, ok := s.pending.Remove(id)
	if !ok {
		// Can happen when an unsubscribe ack arrives after the call already
		// timed out locally.
		s.logger.Debug("dropping reply with no pending call", "id", id)
		return
	}

	if in.Error != nil {
		if sink, had := s.subs.RemoveProvisional(id); had {
			// Subscribe was rejected by the node; the provisional sink will
			// never go live.
			s.logger.Debug("subscribe rejected", "id", id, "code", in.Error.Code)
			sink.Close()
		}
		future.Fail(in.Error)
		return
	}

	if s.subs.HasProvisional(id) {
		// Subscribe ack: result is the server-assigned subscription id.
		// Re-key the registry entry before resolving, so the subscription is
		// live by the time the subscriber observes the ack.
		var subID int64
		if err := s.codec.Decode(in.Result, &subID); err != nil {
			if sink, had := s.subs.RemoveProvisional(id); had {
				sink.Close()
			}
			future.Fail(fmt.Errorf("transport: malformed subscription id in ack for request %d: %w", id, err))
			return
		}
		if s.subs.Activate(id, subID) {
			s.metrics.SubscriptionsAdd(1)
		}
	}

	future.Resolve(&jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: id, Result: in.Result})
}

func (s *SocketSession) dispatchPush(in *inboundFrame) {
	if in.Params == nil {
		s.logger.Warn("dropping push event without params", "method", in.Method)
		return
	}
	sink, ok := s.subs.Get(in.Params.Subscription)
	if !ok {
		// The event raced a still-in-flight unsubscribe after local disposal.
		s.logger.Debug("dropping push event for unknown subscription",
			"method", in.Method, "subscription", in.Params.Subscription)
		return
	}
	s.metrics.ObservePushEvent(in.Method)
	sink.Deliver(jsonrpc.PushEvent{
		JSONRPC: jsonrpc.Version,
		Method:  in.Method,
		Params:  *in.Params,
	})
}

// fail marks the session failed (or closed, if a close was already under
// way) and wakes every outstanding caller and subscriber with the cause.
func (s *SocketSession) fail(cause error) {
	s.stateMu.Lock()
	switch s.state {
	case StateClosing:
		s.state = StateClosed
	case StateClosed, StateFailed:
	default:
		s.logger.Warn("socket session failed", "err", cause)
		s.state = StateFailed
	}
	s.stateMu.Unlock()

	err := fmt.Errorf("transport: connection lost: %w", cause)
	s.pending.FailAll(err)
	_, live := s.subs.Len()
	s.subs.FailAll(err)
	s.metrics.SubscriptionsAdd(-float64(live))
}

// pingLoop keeps the connection alive with periodic ping frames. It stops
// when the dispatcher exits or a ping write fails.
func (s *SocketSession) pingLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
