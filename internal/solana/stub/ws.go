package stub

import (
	"context"
	"sync"

	"solana-wallet-inspector/internal/solana"
)

// WSClient implements solana.WSClient over an in-memory channel.
type WSClient struct {
	// SubscribeErr, when set, fails every SubscribeLogs call.
	SubscribeErr error

	mu      sync.Mutex
	ch      chan solana.LogNotification
	filters []solana.LogsFilter
	closed  bool
}

// NewWSClient creates a stub subscription client.
func NewWSClient() *WSClient {
	return &WSClient{ch: make(chan solana.LogNotification, 64)}
}

var _ solana.WSClient = (*WSClient)(nil)

// SubscribeLogs records filter and returns the shared notification channel.
// After Close the channel still yields the notifications pushed before it,
// then reports closed, like a live stream that ends.
func (c *WSClient) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, filter)
	return c.ch, nil
}

// Push delivers a notification to subscribers.
func (c *WSClient) Push(n solana.LogNotification) {
	c.ch <- n
}

// Filters returns every filter subscribed so far.
func (c *WSClient) Filters() []solana.LogsFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.LogsFilter(nil), c.filters...)
}

// Close closes the notification channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}
