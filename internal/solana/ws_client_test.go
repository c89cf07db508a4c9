package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// newWSServer upgrades every request and hands the connection to serve.
func newWSServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
}

// drain keeps a server connection open until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWSClient_Connect(t *testing.T) {
	server := newWSServer(t, drain)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	server := newWSServer(t, func(c *websocket.Conn) {
		id, params, ok := readSubscribe(t, c)
		if !ok {
			return
		}
		if len(params) == 0 || !strings.Contains(string(params[0]), `"mentions":["WalletA"]`) {
			t.Errorf("expected mentions filter, got %v", params)
		}

		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": 12345})

		time.Sleep(50 * time.Millisecond)
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"subscription": 12345,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 100},
					"value": map[string]interface{}{
						"signature": "testsig",
						"logs":      []string{"Program log: Test"},
						"err":       nil,
					},
				},
			},
		})

		drain(c)
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"WalletA"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "testsig" {
			t.Errorf("expected testsig, got %s", notif.Signature)
		}
		if len(notif.Logs) != 1 {
			t.Errorf("expected 1 log, got %d", len(notif.Logs))
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if notif.Failed() {
			t.Error("expected successful transaction")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

// readSubscribe reads one logsSubscribe request from the server side.
func readSubscribe(t *testing.T, c *websocket.Conn) (uint64, []json.RawMessage, bool) {
	t.Helper()
	_, msg, err := c.ReadMessage()
	if err != nil {
		return 0, nil, false
	}
	var req struct {
		ID     uint64            `json:"id"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal request: %v", err)
		return 0, nil, false
	}
	return req.ID, req.Params, true
}

func notification(sub int64, sig string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": sub,
			"result": map[string]interface{}{
				"value": map[string]interface{}{"signature": sig, "logs": []string{}, "err": nil},
			},
		},
	}
}

func TestWSClient_NotificationRightAfterReply(t *testing.T) {
	server := newWSServer(t, func(c *websocket.Conn) {
		id, _, ok := readSubscribe(t, c)
		if !ok {
			return
		}
		// No gap between the reply and the first notification.
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": 7})
		c.WriteJSON(notification(7, "first"))
		drain(c)
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"WalletA"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "first" {
			t.Errorf("expected first, got %s", notif.Signature)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification sent right after the reply was lost")
	}
}

func TestWSClient_AbandonUndoesLateReply(t *testing.T) {
	server := newWSServer(t, drain)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	sub := &logsSubscription{ch: make(chan LogNotification, 1)}
	p := &pendingSubscribe{sub: sub, reply: make(chan subscribeReply, 1)}
	client.pendingMu.Lock()
	client.pending[99] = p
	client.pendingMu.Unlock()

	client.resolvePending(99, subscribeReply{id: 7})
	client.subsMu.RLock()
	registered := client.subs[7] == sub
	client.subsMu.RUnlock()
	if !registered {
		t.Fatal("reply must register the subscription before the next read")
	}

	// The caller timed out after the reply landed.
	client.abandon(99, p)
	client.subsMu.RLock()
	_, still := client.subs[7]
	client.subsMu.RUnlock()
	if still {
		t.Error("abandoned subscription must be unregistered")
	}
}

func TestWSClient_ResubscribesAfterReconnect(t *testing.T) {
	var connections atomic.Int32

	server := newWSServer(t, func(c *websocket.Conn) {
		n := connections.Add(1)
		id, params, ok := readSubscribe(t, c)
		if !ok {
			return
		}
		if len(params) == 0 || !strings.Contains(string(params[0]), "WalletA") {
			t.Errorf("connection %d: filter not re-sent: %v", n, params)
		}

		subID := int64(100 * n)
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": subID})
		if n == 1 {
			// Drop the first connection right after the subscription.
			return
		}
		c.WriteJSON(notification(subID, "after-reconnect"))
		drain(c)
	})
	defer server.Close()

	opts := DefaultWSOptions()
	opts.ReconnectDelay = 10 * time.Millisecond

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), &opts)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"WalletA"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Signature != "after-reconnect" {
			t.Errorf("expected after-reconnect, got %s", notif.Signature)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no notification after reconnect")
	}
	if got := connections.Load(); got < 2 {
		t.Errorf("expected a second connection, got %d", got)
	}
}

func TestWSClient_Commitment(t *testing.T) {
	got := make(chan string, 1)
	server := newWSServer(t, func(c *websocket.Conn) {
		id, params, ok := readSubscribe(t, c)
		if !ok {
			return
		}
		if len(params) > 1 {
			got <- string(params[1])
		}
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": 1})
		drain(c)
	})
	defer server.Close()

	opts := DefaultWSOptions()
	opts.Commitment = "finalized"

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), &opts)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeLogs(ctx, LogsFilter{}); err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}
	select {
	case p := <-got:
		if p != `{"commitment":"finalized"}` {
			t.Errorf("unexpected commitment param %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe request not seen")
	}
}

func TestWSClient_SubscribeError(t *testing.T) {
	server := newWSServer(t, func(c *websocket.Conn) {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		json.Unmarshal(msg, &req)

		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid param"},
		})
		drain(c)
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"bad"}})
	if err == nil {
		t.Fatal("expected subscription error")
	}
	var rpcErr *rpcError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32602 {
		t.Errorf("expected rpc error -32602, got %v", err)
	}
}

func TestWSClient_Close(t *testing.T) {
	server := newWSServer(t, drain)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := newWSServer(t, drain)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	_, err = client.SubscribeLogs(ctx, LogsFilter{})
	if !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

func TestWSClient_CustomOptions(t *testing.T) {
	server := newWSServer(t, drain)
	defer server.Close()

	opts := DefaultWSOptions()
	opts.PingInterval = 5 * time.Second
	opts.BufferSize = 0

	client, err := NewWSClient(context.Background(), wsURL(server), &opts)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.opts.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.opts.PingInterval)
	}
	if client.opts.BufferSize != 1 {
		t.Errorf("expected BufferSize clamped to 1, got %d", client.opts.BufferSize)
	}
}

func TestLogsFilterParam(t *testing.T) {
	if got := logsFilterParam(LogsFilter{}); got != "all" {
		t.Errorf("expected all, got %v", got)
	}
	got, ok := logsFilterParam(LogsFilter{Mentions: []string{"A"}}).(map[string]interface{})
	if !ok {
		t.Fatalf("expected map filter")
	}
	if m, _ := got["mentions"].([]string); len(m) != 1 || m[0] != "A" {
		t.Errorf("unexpected mentions %v", got["mentions"])
	}
}
