package reporting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
)

// BalanceSource returns the balances of a wallet.
type BalanceSource interface {
	Balances(ctx context.Context, owner string) (*domain.WalletBalances, error)
}

// MemecoinSource scans a wallet for memecoins.
type MemecoinSource interface {
	Scan(ctx context.Context, wallet string) (*domain.MemecoinReport, error)
}

// ExchangeSource scans a wallet for exchange interactions.
type ExchangeSource interface {
	Scan(ctx context.Context, wallet string) (*domain.ExchangeActivity, error)
}

// GhostSource scans a wallet's tokens for dormancy awakenings.
type GhostSource interface {
	Scan(ctx context.Context, wallet string) ([]domain.GhostAwakening, error)
}

// ClusterSource collects the counterparties of an address.
type ClusterSource interface {
	ClusterAddresses(ctx context.Context, origin string) (*domain.ClusterSet, error)
}

// TraceSource traces outbound transfers from an address.
type TraceSource interface {
	Trace(ctx context.Context, origin string, maxDepth int) (domain.TraceResult, error)
}

// Sources are the collaborators a Generator draws from. Nil sources are skipped.
type Sources struct {
	Balances  BalanceSource
	Memecoins MemecoinSource
	Exchange  ExchangeSource
	Ghosts    GhostSource
	Cluster   ClusterSource
	Trace     TraceSource
}

// Generator produces wallet reports.
type Generator struct {
	sources Sources
	logger  *log.Logger
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(sources Sources, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		sources: sources,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate inspects wallet section by section. A failing section is recorded in
// SectionErrors and the remaining sections still run; an invalid address or a
// cancelled context aborts the whole report.
func (g *Generator) Generate(ctx context.Context, wallet string, traceDepth int) (*WalletReport, error) {
	if err := address.Validate(wallet); err != nil {
		return nil, err
	}

	r := &WalletReport{
		GeneratedAt: g.now(),
		Wallet:      wallet,
		TraceDepth:  traceDepth,
	}

	sections := []struct {
		name string
		run  func() error
	}{
		{"balances", func() (err error) {
			if g.sources.Balances != nil {
				r.Balances, err = g.sources.Balances.Balances(ctx, wallet)
			}
			return err
		}},
		{"memecoins", func() (err error) {
			if g.sources.Memecoins != nil {
				r.Memecoins, err = g.sources.Memecoins.Scan(ctx, wallet)
			}
			return err
		}},
		{"exchange", func() (err error) {
			if g.sources.Exchange != nil {
				r.Exchange, err = g.sources.Exchange.Scan(ctx, wallet)
			}
			return err
		}},
		{"ghosts", func() (err error) {
			if g.sources.Ghosts != nil {
				r.Ghosts, err = g.sources.Ghosts.Scan(ctx, wallet)
			}
			return err
		}},
		{"cluster", func() (err error) {
			if g.sources.Cluster != nil {
				r.Cluster, err = g.sources.Cluster.ClusterAddresses(ctx, wallet)
			}
			return err
		}},
		{"trace", func() (err error) {
			if g.sources.Trace != nil {
				r.Trace, err = g.sources.Trace.Trace(ctx, wallet, traceDepth)
			}
			return err
		}},
	}

	for _, s := range sections {
		err := s.run()
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("generate %s: %w", s.name, err)
		}
		g.logger.Printf("[report] %s section failed: %v", s.name, err)
		r.SectionErrors = append(r.SectionErrors, fmt.Sprintf("%s: %v", s.name, err))
	}

	return r, nil
}
