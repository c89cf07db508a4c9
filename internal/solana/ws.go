package solana

import "context"

// WSClient is the live subscription surface used by watch mode.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs that mention any address in the filter.
	// The returned channel is closed when the client is closed.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter selects which transactions a logs subscription reports.
type LogsFilter struct {
	// Mentions limits notifications to transactions mentioning these addresses.
	// Empty subscribes to all transactions.
	Mentions []string
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// Failed reports whether the notified transaction failed on-chain.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
