package watch

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/solana/stub"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.TransferEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, _ string, ev domain.TransferEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func testOptions() Options {
	return Options{FetchAttempts: 2, FetchDelay: time.Millisecond, Logger: log.New(io.Discard, "", 0)}
}

func TestWatcher_PublishesTouchingTransfers(t *testing.T) {
	wallet, peer, other := stub.Address(1), stub.Address(2), stub.Address(3)

	rpc := stub.NewRPCClient()
	rpc.AddTransaction(stub.Tx("in", 100, stub.SystemTransfer(peer, wallet, 1_000_000_000)))
	rpc.AddTransaction(stub.Tx("mixed", 101,
		stub.SystemTransfer(other, peer, 5),
		stub.SystemTransfer(wallet, other, 500_000_000),
	))
	rpc.AddTransaction(stub.Tx("failed", 102, stub.SystemTransfer(wallet, peer, 1)))

	ws := stub.NewWSClient()
	ws.Push(solana.LogNotification{Signature: "in"})
	ws.Push(solana.LogNotification{Signature: "mixed"})
	ws.Push(solana.LogNotification{Signature: "failed", Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}})
	ws.Push(solana.LogNotification{Signature: "in"}) // replay after reconnect
	require.NoError(t, ws.Close())

	out := &recordingSink{}
	w := NewWatcher(ws, rpc, out, testOptions())
	err := w.Run(context.Background(), wallet)
	assert.ErrorIs(t, err, ErrSubscriptionClosed)

	require.Len(t, out.events, 2)
	assert.Equal(t, "in", out.events[0].Signature)
	assert.InDelta(t, 1.0, out.events[0].Amount, 1e-12)
	assert.Equal(t, "mixed", out.events[1].Signature)
	assert.Equal(t, other, out.events[1].To)

	assert.Equal(t, Stats{Notifications: 4, Skipped: 1, Published: 2}, w.Stats())
	assert.Zero(t, rpc.TransactionCalls("failed"))

	filters := ws.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, []string{wallet}, filters[0].Mentions)
}

func TestWatcher_RetriesAbsentTransaction(t *testing.T) {
	wallet := stub.Address(1)
	rpc := stub.NewRPCClient()

	ws := stub.NewWSClient()
	ws.Push(solana.LogNotification{Signature: "unindexed"})
	require.NoError(t, ws.Close())

	w := NewWatcher(ws, rpc, &recordingSink{}, testOptions())
	assert.ErrorIs(t, w.Run(context.Background(), wallet), ErrSubscriptionClosed)

	assert.Equal(t, 2, rpc.TransactionCalls("unindexed"))
	assert.Equal(t, 1, w.Stats().Skipped)
}

func TestWatcher_StreamEndsWhileRunning(t *testing.T) {
	wallet, peer := stub.Address(1), stub.Address(2)
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(stub.Tx("live", 100, stub.SystemTransfer(peer, wallet, 2_000_000_000)))

	ws := stub.NewWSClient()
	out := &recordingSink{}
	w := NewWatcher(ws, rpc, out, testOptions())

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), wallet) }()

	require.Eventually(t, func() bool { return len(ws.Filters()) == 1 }, time.Second, time.Millisecond)
	ws.Push(solana.LogNotification{Signature: "live"})
	require.NoError(t, ws.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the stream closed")
	}

	require.Len(t, out.events, 1)
	assert.Equal(t, "live", out.events[0].Signature)
	assert.Equal(t, Stats{Notifications: 1, Published: 1}, w.Stats())
}

func TestWatcher_SinkFailureStops(t *testing.T) {
	wallet, peer := stub.Address(1), stub.Address(2)
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(stub.Tx("in", 100, stub.SystemTransfer(peer, wallet, 1)))

	ws := stub.NewWSClient()
	ws.Push(solana.LogNotification{Signature: "in"})

	boom := errors.New("broker down")
	w := NewWatcher(ws, rpc, &recordingSink{err: boom}, testOptions())
	assert.ErrorIs(t, w.Run(context.Background(), wallet), boom)
}

func TestWatcher_Cancellation(t *testing.T) {
	ws := stub.NewWSClient()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewWatcher(ws, stub.NewRPCClient(), &recordingSink{}, testOptions()).Run(ctx, stub.Address(1))
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_Errors(t *testing.T) {
	w := NewWatcher(stub.NewWSClient(), stub.NewRPCClient(), &recordingSink{}, testOptions())
	assert.ErrorIs(t, w.Run(context.Background(), "nope"), domain.ErrInvalidAddress)

	ws := stub.NewWSClient()
	ws.SubscribeErr = errors.New("handshake failed")
	w = NewWatcher(ws, stub.NewRPCClient(), &recordingSink{}, testOptions())
	assert.ErrorContains(t, w.Run(context.Background(), stub.Address(1)), "handshake failed")
}
