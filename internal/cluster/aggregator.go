// Package cluster aggregates the direct counterparties of an address.
package cluster

import (
	"context"
	"log"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/transfer"
)

// DefaultSignatureLimit is how many recent signatures of the origin are inspected.
const DefaultSignatureLimit = 100

// Aggregator collects counterparties from an origin's recent history.
// Only direct counterparties are collected; there is no recursion.
type Aggregator struct {
	client         solana.RPCClient
	signatureLimit int
	logger         *log.Logger
}

// Options contains configuration for creating an Aggregator.
type Options struct {
	SignatureLimit int // Default: 100
	Logger         *log.Logger
}

// NewAggregator creates an Aggregator over client.
func NewAggregator(client solana.RPCClient, opts Options) *Aggregator {
	limit := opts.SignatureLimit
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Aggregator{
		client:         client,
		signatureLimit: limit,
		logger:         logger,
	}
}

// observation is what one pass over the origin's history yields.
type observation struct {
	set   *domain.ClusterSet
	links []domain.ClusterLink
}

// ClusterAddresses returns the origin plus every source and destination found in
// its recent transactions. The origin is always present, even with no history.
func (a *Aggregator) ClusterAddresses(ctx context.Context, origin string) (*domain.ClusterSet, error) {
	obs, err := a.observe(ctx, origin)
	if err != nil {
		observability.RecordClusterRun("set", 0, err)
		return nil, err
	}
	observability.RecordClusterRun("set", obs.set.Len(), nil)
	return obs.set, nil
}

// ClusterGraph derives a node/link graph from the same observation.
// Nodes follow set order. The origin is group 0, on-curve wallets group 1 and
// off-curve accounts (token accounts, program-derived accounts) group 2.
// Links are the distinct source -> destination pairs in discovery order.
func (a *Aggregator) ClusterGraph(ctx context.Context, origin string) (*domain.ClusterGraph, error) {
	obs, err := a.observe(ctx, origin)
	if err != nil {
		observability.RecordClusterRun("graph", 0, err)
		return nil, err
	}

	graph := &domain.ClusterGraph{
		Nodes: make([]domain.ClusterNode, 0, obs.set.Len()),
		Links: obs.links,
	}
	for _, addr := range obs.set.Addresses() {
		graph.Nodes = append(graph.Nodes, domain.ClusterNode{ID: addr, Group: group(origin, addr)})
	}

	observability.RecordClusterRun("graph", obs.set.Len(), nil)
	return graph, nil
}

func group(origin, addr string) int {
	switch {
	case addr == origin:
		return domain.GroupOrigin
	case address.IsWallet(addr):
		return domain.GroupWallet
	default:
		return domain.GroupOffCurve
	}
}

// observe fetches the origin's history one transaction at a time.
// Any fetch failure aborts with a *domain.FetchError.
func (a *Aggregator) observe(ctx context.Context, origin string) (*observation, error) {
	if err := address.Validate(origin); err != nil {
		return nil, err
	}

	infos, err := a.client.GetSignaturesForAddress(ctx, origin, &solana.SignaturesOpts{Limit: a.signatureLimit})
	if err != nil {
		return nil, domain.NewFetchError("get signatures", origin, err)
	}
	if len(infos) > a.signatureLimit {
		infos = infos[:a.signatureLimit]
	}

	obs := &observation{
		set:   domain.NewClusterSet(origin),
		links: []domain.ClusterLink{},
	}
	seenLinks := make(map[domain.ClusterLink]struct{})

	for _, info := range infos {
		tx, err := a.client.GetParsedTransaction(ctx, info.Signature)
		if err != nil {
			return nil, domain.NewFetchError("get transaction", info.Signature, err)
		}

		for _, pair := range transfer.Endpoints(tx) {
			obs.set.Add(pair[0])
			obs.set.Add(pair[1])

			link := domain.ClusterLink{Source: pair[0], Target: pair[1]}
			if _, ok := seenLinks[link]; ok {
				continue
			}
			seenLinks[link] = struct{}{}
			obs.links = append(obs.links, link)
		}
	}

	a.logger.Printf("[cluster] %s: %d addresses from %d transactions", origin, obs.set.Len(), len(infos))
	return obs, nil
}
