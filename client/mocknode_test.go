package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"sui-rpc/jsonrpc"
)

// mockNode serves JSON-RPC over HTTP POST and over a WebSocket upgrade on
// the same endpoint, the way a fullnode does.
type mockNode struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	// httpHandler, when set, replaces the default echo behavior for unary
	// calls.
	httpHandler func(w http.ResponseWriter, req *jsonrpc.Request)

	// pushOnSubscribe is how many events are pushed right after each
	// subscribe ack.
	pushOnSubscribe int

	mu           sync.Mutex
	nextSubID    int64
	unsubscribes []jsonrpc.Request
}

func newMockNode(t *testing.T) *mockNode {
	n := &mockNode{t: t, nextSubID: 42}
	n.srv = httptest.NewServer(http.HandlerFunc(n.handle))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *mockNode) URL() string { return n.srv.URL }

func (n *mockNode) unsubscribeCalls() []jsonrpc.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]jsonrpc.Request(nil), n.unsubscribes...)
}

func (n *mockNode) handle(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		n.handleWS(w, r)
		return
	}
	n.handleHTTP(w, r)
}

func (n *mockNode) handleHTTP(w http.ResponseWriter, r *http.Request) {
	var req jsonrpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if n.httpHandler != nil {
		n.httpHandler(w, &req)
		return
	}
	// Default: echo the request id back in the result so callers can verify
	// reply correlation.
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0", "id": req.ID,
		"result": map[string]any{"id": req.ID, "method": req.Method},
	})
}

func (n *mockNode) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.t.Error(err)
		return
	}
	defer conn.Close()

	for {
		var req jsonrpc.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		switch {
		case strings.Contains(req.Method, "_unsubscribe"):
			n.mu.Lock()
			n.unsubscribes = append(n.unsubscribes, req)
			n.mu.Unlock()
			conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": true})

		case strings.Contains(req.Method, "_subscribe"):
			n.mu.Lock()
			subID := n.nextSubID
			n.nextSubID++
			n.mu.Unlock()
			conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": subID})
			for i := 0; i < n.pushOnSubscribe; i++ {
				conn.WriteJSON(map[string]any{
					"jsonrpc": "2.0", "method": req.Method,
					"params": map[string]any{"subscription": subID, "result": map[string]any{"seq": i}},
				})
			}

		default:
			conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "ok"})
		}
	}
}
