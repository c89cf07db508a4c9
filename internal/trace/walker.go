// Package trace follows outbound transfers from an origin address through its recipients.
package trace

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/transfer"
)

// DefaultSignatureLimit is how many recent signatures are fetched per visited address.
const DefaultSignatureLimit = 10

// Walker performs bounded-depth, deduplicated depth-first traces.
// A Walker holds no per-run state and is safe for concurrent use.
type Walker struct {
	client         solana.RPCClient
	signatureLimit int
	onVisit        func(level int, addr string)
	logger         *log.Logger
}

// Options contains configuration for creating a Walker.
type Options struct {
	SignatureLimit int // Default: 10

	// OnVisit is called every time walk is entered, including at the
	// terminal level where nothing is fetched.
	OnVisit func(level int, addr string)
	Logger  *log.Logger
}

// NewWalker creates a Walker over client.
func NewWalker(client solana.RPCClient, opts Options) *Walker {
	limit := opts.SignatureLimit
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Walker{
		client:         client,
		signatureLimit: limit,
		onVisit:        opts.OnVisit,
		logger:         logger,
	}
}

// run is the state of one Trace call. It is never shared between calls.
type run struct {
	*Walker
	maxDepth int
	visited  map[string]struct{}
	result   domain.TraceResult
	fetched  int
}

// Trace walks outbound transfers from origin up to maxDepth hops and returns them
// in discovery order. maxDepth 0 explores only the origin's own transactions.
//
// Any ledger failure aborts the trace with a *domain.FetchError and no partial result.
// An origin without outbound transfers yields an empty, non-nil result.
func (w *Walker) Trace(ctx context.Context, origin string, maxDepth int) (domain.TraceResult, error) {
	if err := address.Validate(origin); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDepth, maxDepth)
	}

	start := time.Now()
	r := &run{
		Walker:   w,
		maxDepth: maxDepth,
		visited:  make(map[string]struct{}),
		result:   domain.TraceResult{},
	}

	err := r.walk(ctx, origin, 0)
	observability.RecordTraceRun(time.Since(start), len(r.result), r.fetched, err)
	if err != nil {
		return nil, err
	}

	w.logger.Printf("[trace] %s depth=%d: %d transfers across %d addresses in %s",
		origin, maxDepth, len(r.result), r.fetched, time.Since(start).Round(time.Millisecond))
	return r.result, nil
}

func (r *run) walk(ctx context.Context, addr string, level int) error {
	if r.onVisit != nil {
		r.onVisit(level, addr)
	}
	if level > r.maxDepth {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	txs, err := r.fetch(ctx, addr)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		for _, ev := range transfer.Outbound(tx, addr) {
			if _, seen := r.visited[ev.ID]; seen {
				continue
			}
			r.visited[ev.ID] = struct{}{}
			r.result = append(r.result, ev)

			if err := r.walk(ctx, ev.To, level+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetch loads the most recent transactions of addr. Absent transactions are nil.
func (r *run) fetch(ctx context.Context, addr string) ([]*solana.ParsedTransaction, error) {
	r.fetched++

	infos, err := r.client.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{Limit: r.signatureLimit})
	if err != nil {
		return nil, domain.NewFetchError("get signatures", addr, err)
	}
	if len(infos) == 0 {
		return nil, nil
	}
	if len(infos) > r.signatureLimit {
		infos = infos[:r.signatureLimit]
	}

	txs, err := r.client.GetParsedTransactions(ctx, solana.Signatures(infos))
	if err != nil {
		return nil, domain.NewFetchError("get transactions", addr, err)
	}
	return txs, nil
}
