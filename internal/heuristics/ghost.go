package heuristics

import (
	"context"
	"log"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/transfer"
)

// Dormancy scanner defaults.
const (
	DefaultGhostSignatureLimit = 1000
	DefaultDormancy            = 7 * 24 * time.Hour
	DefaultGhostConcurrency    = 4
)

// notAvailable fills transfer fields when the awakening transaction carries no transfer.
const notAvailable = "N/A"

const day = 24 * time.Hour

// GhostScanner detects tokens whose two most recent mint transactions are at least
// the dormancy threshold apart.
type GhostScanner struct {
	client         solana.RPCClient
	tokens         TokenLister
	signatureLimit int
	dormancy       time.Duration
	concurrency    int
	logger         *log.Logger
}

// GhostOptions configures a GhostScanner.
type GhostOptions struct {
	SignatureLimit int           // per mint, defaults to DefaultGhostSignatureLimit
	Dormancy       time.Duration // inclusive threshold, defaults to DefaultDormancy
	Concurrency    int           // mints scanned in parallel, defaults to DefaultGhostConcurrency
	Logger         *log.Logger
}

// NewGhostScanner creates a new dormancy scanner.
func NewGhostScanner(client solana.RPCClient, tokens TokenLister, opts *GhostOptions) *GhostScanner {
	s := &GhostScanner{
		client:         client,
		tokens:         tokens,
		signatureLimit: DefaultGhostSignatureLimit,
		dormancy:       DefaultDormancy,
		concurrency:    DefaultGhostConcurrency,
		logger:         log.Default(),
	}
	if opts != nil {
		if opts.SignatureLimit > 0 {
			s.signatureLimit = opts.SignatureLimit
		}
		if opts.Dormancy > 0 {
			s.dormancy = opts.Dormancy
		}
		if opts.Concurrency > 0 {
			s.concurrency = opts.Concurrency
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

// Scan returns the awakenings among the tokens held by wallet, in token order.
// Any fetch failure aborts the scan.
func (s *GhostScanner) Scan(ctx context.Context, wallet string) ([]domain.GhostAwakening, error) {
	start := time.Now()
	result, err := s.scan(ctx, wallet)
	observability.RecordScan("ghost", time.Since(start), len(result), err)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[ghost] %s: %d awakening(s)", wallet, len(result))
	return result, nil
}

func (s *GhostScanner) scan(ctx context.Context, wallet string) ([]domain.GhostAwakening, error) {
	if err := address.Validate(wallet); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.TokenBalances(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var mints []string
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t.Mint]; ok || t.Mint == "" {
			continue
		}
		seen[t.Mint] = struct{}{}
		mints = append(mints, t.Mint)
	}

	found := make([]*domain.GhostAwakening, len(mints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, mint := range mints {
		i, mint := i, mint
		g.Go(func() error {
			awakening, err := s.scanMint(gctx, mint)
			if err != nil {
				return err
			}
			found[i] = awakening
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]domain.GhostAwakening, 0)
	for _, a := range found {
		if a != nil {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (s *GhostScanner) scanMint(ctx context.Context, mint string) (*domain.GhostAwakening, error) {
	sigInfos, err := s.client.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{Limit: s.signatureLimit})
	if err != nil {
		return nil, domain.NewFetchError("get signatures", mint, err)
	}
	if len(sigInfos) > s.signatureLimit {
		sigInfos = sigInfos[:s.signatureLimit]
	}
	if len(sigInfos) < 2 {
		return nil, nil
	}

	txs, err := s.client.GetParsedTransactions(ctx, solana.Signatures(sigInfos))
	if err != nil {
		return nil, domain.NewFetchError("get transactions", mint, err)
	}
	return DetectAwakening(mint, txs, s.dormancy), nil
}

// DetectAwakening sorts txs by block time (missing counts as 0) and reports an awakening
// when the two most recent are at least dormancy apart. Nil entries are ignored; fewer
// than two transactions never qualify.
func DetectAwakening(mint string, txs []*solana.ParsedTransaction, dormancy time.Duration) *domain.GhostAwakening {
	history := make([]*solana.ParsedTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx != nil {
			history = append(history, tx)
		}
	}
	if len(history) < 2 {
		return nil
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].BlockTimeOrZero() < history[j].BlockTimeOrZero()
	})

	latest := history[len(history)-1]
	previous := history[len(history)-2]
	gap := time.Duration(latest.BlockTimeOrZero()-previous.BlockTimeOrZero()) * time.Second
	if gap < dormancy {
		return nil
	}

	awakening := &domain.GhostAwakening{
		Mint:                 mint,
		DaysDormant:          int(gap / day),
		AwakenedAt:           transfer.Timestamp(latest).Format(time.RFC3339),
		RecentTransferAmount: notAvailable,
		From:                 notAvailable,
		To:                   notAvailable,
	}
	if events := transfer.Extract(latest); len(events) > 0 {
		ev := events[0]
		awakening.RecentTransferAmount = strconv.FormatFloat(ev.Amount, 'f', -1, 64)
		awakening.From = ev.From
		awakening.To = ev.To
	}
	return awakening
}
