// Package watch follows a wallet live and publishes every transfer touching it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/retry"
	"solana-wallet-inspector/internal/sink"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/transfer"
)

// Fetch retry defaults for notified transactions that the node has not indexed yet.
const (
	DefaultFetchAttempts = 3
	DefaultFetchDelay    = 500 * time.Millisecond
)

// maxSeen bounds the dedup set; it is reset once full.
const maxSeen = 10000

// ErrSubscriptionClosed is returned when the logs channel closes before ctx is done.
var ErrSubscriptionClosed = errors.New("logs subscription closed")

// errNotIndexed marks a notified transaction the node returned as absent.
var errNotIndexed = errors.New("transaction not yet available")

// Stats counts what a Watcher has processed.
type Stats struct {
	Notifications int
	Skipped       int // failed on-chain or never fetched
	Published     int
}

// Watcher subscribes to logs mentioning a wallet and publishes its transfers.
type Watcher struct {
	ws     solana.WSClient
	rpc    solana.RPCClient
	sink   sink.Sink
	fetch  retry.Policy
	logger *log.Logger

	seen  map[string]struct{}
	stats Stats
}

// Options configures a Watcher.
type Options struct {
	FetchAttempts int           // Default: 3
	FetchDelay    time.Duration // first retry delay, doubled each attempt; Default: 500ms
	Logger        *log.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(ws solana.WSClient, rpc solana.RPCClient, out sink.Sink, opts Options) *Watcher {
	attempts := opts.FetchAttempts
	if attempts <= 0 {
		attempts = DefaultFetchAttempts
	}
	delay := opts.FetchDelay
	if delay <= 0 {
		delay = DefaultFetchDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		ws:     ws,
		rpc:    rpc,
		sink:   out,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
	w.fetch = retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   delay,
		MaxDelay:    delay << (attempts - 1),
		OnRetry: func(attempt int, wait time.Duration, err error) {
			w.logger.Printf("[watch] retry %d/%d after %v: %v", attempt, attempts-1, wait, err)
		},
	}
	return w
}

// Run watches wallet until ctx is cancelled. It returns ctx.Err() on cancellation,
// ErrSubscriptionClosed if the stream ends, or the first sink failure.
func (w *Watcher) Run(ctx context.Context, wallet string) error {
	if err := address.Validate(wallet); err != nil {
		return err
	}

	logsCh, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{wallet}})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	w.logger.Printf("[watch] subscribed to %s", wallet)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-logsCh:
			if !ok {
				return ErrSubscriptionClosed
			}
			if err := w.handle(ctx, wallet, notif); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}

// Stats returns the counters so far. Not safe to call concurrently with Run.
func (w *Watcher) Stats() Stats {
	return w.stats
}

func (w *Watcher) handle(ctx context.Context, wallet string, notif solana.LogNotification) error {
	w.stats.Notifications++

	if notif.Failed() {
		w.stats.Skipped++
		return nil
	}

	var tx *solana.ParsedTransaction
	err := retry.Do(ctx, w.fetch, func(ctx context.Context) error {
		var err error
		tx, err = w.rpc.GetParsedTransaction(ctx, notif.Signature)
		if err == nil && tx == nil {
			return errNotIndexed
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.stats.Skipped++
		w.logger.Printf("[watch] dropping %s: %v", notif.Signature, err)
		return nil
	}

	for _, ev := range transfer.Touching(tx, wallet) {
		if !w.markSeen(ev) {
			continue
		}
		if err := w.sink.Publish(ctx, wallet, ev); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Signature, err)
		}
		w.stats.Published++
		w.logger.Printf("[watch] %s %s -> %s %s %s", directionOf(wallet, ev), ev.From, ev.To, formatAmount(ev), ev.Asset)
	}
	return nil
}

// markSeen reports whether ev is new. Reconnects can replay notifications.
func (w *Watcher) markSeen(ev domain.TransferEvent) bool {
	if _, ok := w.seen[ev.ID]; ok {
		return false
	}
	if len(w.seen) >= maxSeen {
		w.seen = make(map[string]struct{})
	}
	w.seen[ev.ID] = struct{}{}
	return true
}

func directionOf(wallet string, ev domain.TransferEvent) string {
	switch {
	case ev.From == wallet && ev.To == wallet:
		return "self"
	case ev.From == wallet:
		return "out"
	default:
		return "in"
	}
}

func formatAmount(ev domain.TransferEvent) string {
	return fmt.Sprintf("%g", ev.Amount)
}
