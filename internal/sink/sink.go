// Package sink publishes transfers observed in watch mode.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
)

// EnvelopeTypeTransfer tags envelopes carrying a domain.TransferEvent.
const EnvelopeTypeTransfer = "transfer"

// Sink receives transfers touching a watched wallet.
type Sink interface {
	Publish(ctx context.Context, wallet string, ev domain.TransferEvent) error
	Close() error
}

// Envelope is the wire form of one published message.
type Envelope struct {
	Type   string          `json:"type"`
	TS     int64           `json:"ts"` // unix milli
	Wallet string          `json:"wallet"`
	Data   json.RawMessage `json:"data"`
}

func encode(wallet string, ev domain.TransferEvent, now time.Time) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal transfer: %w", err)
	}
	return json.Marshal(Envelope{
		Type:   EnvelopeTypeTransfer,
		TS:     now.UnixMilli(),
		Wallet: wallet,
		Data:   data,
	})
}

// WriterSink writes one JSON envelope per line.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewWriterSink creates a sink writing to w, typically os.Stdout.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, now: time.Now}
}

var _ Sink = (*WriterSink)(nil)

// Publish writes ev as a single line.
func (s *WriterSink) Publish(_ context.Context, wallet string, ev domain.TransferEvent) error {
	b, err := encode(wallet, ev, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write transfer: %w", err)
	}
	observability.RecordTransferPublished("stdout")
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (s *WriterSink) Close() error {
	return nil
}
