package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-wallet-inspector/internal/observability"
)

// ErrClientClosed is returned by a closed WSLogsClient.
var ErrClientClosed = errors.New("client closed")

// errConnectionLost fails subscribe calls whose connection dropped before the reply.
var errConnectionLost = errors.New("websocket connection lost")

// WSOptions configures WSLogsClient.
type WSOptions struct {
	ReconnectDelay    time.Duration // first wait after a dropped connection, doubled per failed dial
	MaxReconnectDelay time.Duration
	DialTimeout       time.Duration
	PingInterval      time.Duration
	// ReadTimeout is extended by every message and pong; a silent
	// connection is considered dead once it passes.
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	SubscribeTimeout time.Duration
	// Commitment is sent with every logsSubscribe. Default: confirmed.
	Commitment string
	// BufferSize is the capacity of each notification channel.
	BufferSize int
	Logger     *log.Logger
}

// DefaultWSOptions returns default WebSocket options.
func DefaultWSOptions() WSOptions {
	return WSOptions{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		DialTimeout:       10 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Commitment:        "confirmed",
		BufferSize:        1024,
	}
}

// WSLogsClient implements WSClient over gorilla/websocket.
//
// One supervisor goroutine owns reading: it reads a connection until it fails,
// redials with backoff, and re-sends every active subscription on the new
// connection. Subscriber channels stay the same across reconnects.
type WSLogsClient struct {
	endpoint string
	opts     WSOptions
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	subs   map[int64]*logsSubscription
	subsMu sync.RWMutex

	pending   map[uint64]*pendingSubscribe
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

type logsSubscription struct {
	filter LogsFilter
	ch     chan LogNotification
}

type subscribeReply struct {
	id  int64
	err error
}

// pendingSubscribe is an in-flight logsSubscribe. The reader installs sub under
// the new id before reading on, so notifications that follow the reply are routed.
type pendingSubscribe struct {
	sub   *logsSubscription
	rekey bool  // replaces the entry at oldID after a reconnect
	oldID int64 // valid when rekey
	reply chan subscribeReply
}

var _ WSClient = (*WSLogsClient)(nil)

// NewWSClient dials endpoint and starts the supervisor and ping loops.
func NewWSClient(ctx context.Context, endpoint string, opts *WSOptions) (*WSLogsClient, error) {
	o := DefaultWSOptions()
	if opts != nil {
		o = *opts
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1
	}
	if o.Commitment == "" {
		o.Commitment = "confirmed"
	}
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &WSLogsClient{
		endpoint: endpoint,
		opts:     o,
		logger:   logger,
		subs:     make(map[int64]*logsSubscription),
		pending:  make(map[uint64]*pendingSubscribe),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.supervise()
	go c.pingLoop()

	return c, nil
}

func (c *WSLogsClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})
	return conn, nil
}

func (c *WSLogsClient) current() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// SubscribeLogs sends logsSubscribe and waits for the subscription id.
func (c *WSLogsClient) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	sub := &logsSubscription{
		filter: filter,
		ch:     make(chan LogNotification, c.opts.BufferSize),
	}
	if err := c.subscribe(ctx, &pendingSubscribe{sub: sub}); err != nil {
		return nil, err
	}
	return sub.ch, nil
}

// subscribe performs the logsSubscribe round trip. On success the reader has
// already registered p.sub under the returned id.
func (c *WSLogsClient) subscribe(ctx context.Context, p *pendingSubscribe) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	reqID := c.requestID.Add(1)
	p.reply = make(chan subscribeReply, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = p
	c.pendingMu.Unlock()

	err := c.send(wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			logsFilterParam(p.sub.filter),
			map[string]string{"commitment": c.opts.Commitment},
		},
	})
	if err != nil {
		c.abandon(reqID, p)
		return err
	}

	timer := time.NewTimer(c.opts.SubscribeTimeout)
	defer timer.Stop()

	select {
	case reply, ok := <-p.reply:
		if !ok {
			return ErrClientClosed
		}
		return reply.err
	case <-timer.C:
		c.abandon(reqID, p)
		return fmt.Errorf("logsSubscribe: no reply after %s", c.opts.SubscribeTimeout)
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		c.abandon(reqID, p)
		return ctx.Err()
	}
}

func logsFilterParam(filter LogsFilter) interface{} {
	if len(filter.Mentions) == 0 {
		return "all"
	}
	return map[string]interface{}{"mentions": filter.Mentions}
}

func (c *WSLogsClient) send(req wsRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return errConnectionLost
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", req.Method, err)
	}
	return nil
}

// abandon withdraws a subscribe the caller gave up on. A reply that already
// arrived is undone so no channel without a reader stays registered.
func (c *WSLogsClient) abandon(reqID uint64, p *pendingSubscribe) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if _, ok := c.pending[reqID]; ok {
		delete(c.pending, reqID)
		return
	}
	select {
	case reply, ok := <-p.reply:
		if !ok || reply.err != nil {
			return
		}
		c.subsMu.Lock()
		if c.subs[reply.id] == p.sub {
			delete(c.subs, reply.id)
		}
		if p.rekey {
			c.subs[p.oldID] = p.sub
		}
		c.subsMu.Unlock()
	default:
	}
}

// failPending answers every in-flight subscribe with err.
func (c *WSLogsClient) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, p := range c.pending {
		p.reply <- subscribeReply{err: err}
		delete(c.pending, id)
	}
}

// Close closes the connection and every subscription channel.
func (c *WSLogsClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		deadline := time.Now().Add(c.opts.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()
	}
	c.connMu.Unlock()

	// The supervisor may still be sending on subscriber channels.
	c.wg.Wait()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, p := range c.pending {
		close(p.reply)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	return nil
}

// supervise reads the current connection and replaces it when it fails.
func (c *WSLogsClient) supervise() {
	defer c.wg.Done()

	for {
		conn := c.current()
		err := c.read(conn)
		if c.closed.Load() {
			return
		}

		c.logger.Printf("[ws] connection lost: %v", err)
		c.failPending(errConnectionLost)
		if !c.redial(conn) {
			return
		}
		observability.RecordWSReconnect()

		// Replies arrive through read, so resubscription runs beside it.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.resubscribeAll()
		}()
	}
}

// read handles messages from conn until it fails.
func (c *WSLogsClient) read(conn *websocket.Conn) error {
	for {
		conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(message)
	}
}

// redial swaps dead for a fresh connection, backing off between failed dials.
// It reports false once the client is closed.
func (c *WSLogsClient) redial(dead *websocket.Conn) bool {
	c.connMu.Lock()
	if c.conn == dead {
		c.conn = nil
	}
	c.connMu.Unlock()
	dead.Close()

	delay := c.opts.ReconnectDelay
	for {
		if !c.sleep(delay) {
			return false
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			delay = min(delay*2, c.opts.MaxReconnectDelay)
			c.logger.Printf("[ws] reconnect failed, next attempt in %s: %v", delay, err)
			continue
		}

		c.connMu.Lock()
		if c.closed.Load() {
			c.connMu.Unlock()
			conn.Close()
			return false
		}
		c.conn = conn
		c.connMu.Unlock()

		c.logger.Printf("[ws] reconnected to %s", c.endpoint)
		return true
	}
}

// sleep waits for d and reports false if the client closed meanwhile.
func (c *WSLogsClient) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case <-timer.C:
		return true
	}
}

// resubscribeAll re-sends every filter; the reader re-keys each channel to its new id.
func (c *WSLogsClient) resubscribeAll() {
	c.subsMu.RLock()
	old := make(map[int64]*logsSubscription, len(c.subs))
	for id, sub := range c.subs {
		old[id] = sub
	}
	c.subsMu.RUnlock()

	for oldID, sub := range old {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.SubscribeTimeout)
		err := c.subscribe(ctx, &pendingSubscribe{sub: sub, rekey: true, oldID: oldID})
		cancel()
		if err != nil {
			c.logger.Printf("[ws] resubscribe %v failed: %v", sub.filter.Mentions, err)
		}
	}
}

func (c *WSLogsClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Printf("[ws] malformed message: %v", err)
		return
	}

	switch {
	case msg.Method == "logsNotification" && msg.Params != nil:
		c.dispatch(msg.Params)
	case msg.ID != 0 && msg.Error != nil:
		c.resolvePending(msg.ID, subscribeReply{err: msg.Error})
	case msg.ID != 0 && msg.Result != nil:
		c.resolvePending(msg.ID, subscribeReply{id: *msg.Result})
	}
}

// resolvePending runs on the reader. Registration and the reply happen under
// pendingMu so abandon sees either both or neither.
func (c *WSLogsClient) resolvePending(reqID uint64, reply subscribeReply) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	p, ok := c.pending[reqID]
	if !ok {
		return
	}
	delete(c.pending, reqID)

	if reply.err == nil {
		c.subsMu.Lock()
		if p.rekey {
			delete(c.subs, p.oldID)
		}
		c.subs[reply.id] = p.sub
		c.subsMu.Unlock()
	}
	p.reply <- reply
}

// dispatch blocks until the subscriber takes the notification. Subscriptions are
// registered before the reader moves past their reply, so an unknown id only
// means a subscription this client no longer holds.
func (c *WSLogsClient) dispatch(params *wsNotificationParams) {
	observability.RecordWSNotification()

	value := params.Result.Value
	notif := LogNotification{Signature: value.Signature, Logs: value.Logs, Err: value.Err}
	if params.Result.Context != nil {
		notif.Slot = params.Result.Context.Slot
	}

	c.subsMu.RLock()
	sub, ok := c.subs[params.Subscription]
	c.subsMu.RUnlock()
	if !ok {
		c.logger.Printf("[ws] notification for unknown subscription %d", params.Subscription)
		return
	}

	select {
	case sub.ch <- notif:
	case <-c.done:
	}
}

// pingLoop keeps the read deadline alive through pongs.
func (c *WSLogsClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if conn := c.current(); conn != nil {
				// A dead connection surfaces as a read error in the supervisor.
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			}
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsMessage covers subscription replies, errors and notifications.
type wsMessage struct {
	ID     uint64                `json:"id"`
	Result *int64                `json:"result"`
	Error  *rpcError             `json:"error"`
	Method string                `json:"method"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context *struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Logs      []string    `json:"logs"`
			Err       interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
