// Package wallet reads balances and recent transactions of an address.
package wallet

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/solana"
)

// DefaultTransactionCount is the number of transactions listed when none is requested.
const DefaultTransactionCount = 5

// dateLayout renders instants the way JavaScript's toISOString does.
const dateLayout = "2006-01-02T15:04:05.000Z"

// MetadataResolver resolves mint metadata in bulk. Implemented by metadata.Resolver.
type MetadataResolver interface {
	ResolveMany(ctx context.Context, mints []string) (map[string]*domain.TokenMetadata, error)
}

// Service answers wallet queries against the ledger.
type Service struct {
	client   solana.Client
	resolver MetadataResolver
	logger   *log.Logger
}

// Options configures a Service.
type Options struct {
	// Resolver enriches token balances with name and symbol. Optional.
	Resolver MetadataResolver
	Logger   *log.Logger
}

// NewService creates a new wallet service.
func NewService(client solana.Client, opts *Options) *Service {
	s := &Service{
		client: client,
		logger: log.Default(),
	}
	if opts != nil {
		s.resolver = opts.Resolver
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

// Balances returns the native balance in SOL and every SPL token account of owner.
func (s *Service) Balances(ctx context.Context, owner string) (*domain.WalletBalances, error) {
	if err := address.Validate(owner); err != nil {
		return nil, err
	}

	lamports, err := s.client.GetBalance(ctx, owner)
	if err != nil {
		return nil, domain.NewFetchError("get balance", owner, err)
	}

	tokens, err := s.TokenBalances(ctx, owner)
	if err != nil {
		return nil, err
	}

	return &domain.WalletBalances{
		NativeBalance: lamportsToSOL(lamports),
		TokenAccounts: tokens,
	}, nil
}

// TokenBalances lists the SPL token accounts of owner in the order the node returns them.
// Metadata failures leave name and symbol empty.
func (s *Service) TokenBalances(ctx context.Context, owner string) ([]domain.TokenBalance, error) {
	if err := address.Validate(owner); err != nil {
		return nil, err
	}

	accounts, err := s.client.GetParsedTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return nil, domain.NewFetchError("get token accounts", owner, err)
	}

	resolved := s.resolve(ctx, accounts)
	balances := make([]domain.TokenBalance, 0, len(accounts))
	for _, acct := range accounts {
		meta := resolved[acct.Mint]
		balances = append(balances, domain.TokenBalance{
			Name:     meta.DisplayName(),
			Mint:     acct.Mint,
			Amount:   acct.UIAmount,
			Symbol:   meta.DisplaySymbol(),
			Decimals: acct.Decimals,
		})
	}
	return balances, nil
}

// resolve looks up metadata for the distinct mints of accounts. Failures yield
// an empty map so balances are still listed.
func (s *Service) resolve(ctx context.Context, accounts []solana.TokenAccount) map[string]*domain.TokenMetadata {
	if s.resolver == nil || len(accounts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(accounts))
	mints := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		if _, dup := seen[acct.Mint]; !dup {
			seen[acct.Mint] = struct{}{}
			mints = append(mints, acct.Mint)
		}
	}

	resolved, err := s.resolver.ResolveMany(ctx, mints)
	if err != nil {
		s.logger.Printf("[wallet] resolve metadata for %d mints: %v", len(mints), err)
		return nil
	}
	return resolved
}

// Transactions summarizes the numTx most recent transactions of addr.
// A non-positive numTx lists DefaultTransactionCount.
func (s *Service) Transactions(ctx context.Context, addr string, numTx int) ([]domain.TransactionSummary, error) {
	if err := address.Validate(addr); err != nil {
		return nil, err
	}
	if numTx <= 0 {
		numTx = DefaultTransactionCount
	}

	sigInfos, err := s.client.GetSignaturesForAddress(ctx, addr, &solana.SignaturesOpts{Limit: numTx})
	if err != nil {
		return nil, domain.NewFetchError("get signatures", addr, err)
	}
	if len(sigInfos) > numTx {
		sigInfos = sigInfos[:numTx]
	}

	txs, err := s.client.GetParsedTransactions(ctx, solana.Signatures(sigInfos))
	if err != nil {
		return nil, domain.NewFetchError("get transactions", addr, err)
	}

	summaries := make([]domain.TransactionSummary, len(sigInfos))
	for i, info := range sigInfos {
		var blockTime int64
		if info.BlockTime != nil {
			blockTime = *info.BlockTime
		}
		var tx *solana.ParsedTransaction
		if i < len(txs) {
			tx = txs[i]
		}
		summaries[i] = domain.TransactionSummary{
			Signature:    info.Signature,
			Date:         time.Unix(blockTime, 0).UTC().Format(dateLayout),
			Status:       info.ConfirmationStatus,
			Instructions: summarizeInstructions(tx),
		}
	}
	return summaries, nil
}

func summarizeInstructions(tx *solana.ParsedTransaction) []domain.InstructionSummary {
	out := make([]domain.InstructionSummary, 0)
	if tx == nil {
		return out
	}
	for _, instr := range tx.Instructions {
		switch ix := instr.(type) {
		case solana.ParsedInstruction:
			info := ix.RawInfo
			if info == nil {
				info = map[string]any{}
			}
			out = append(out, domain.InstructionSummary{Program: ix.ProgramName, ProgramID: ix.ProgramID, Info: info})
		case solana.RawInstruction:
			out = append(out, domain.InstructionSummary{ProgramID: ix.ProgramID, Info: map[string]any{}})
		}
	}
	return out
}

func lamportsToSOL(lamports uint64) float64 {
	return decimal.NewFromInt(int64(lamports)).Shift(-solana.NativeDecimals).InexactFloat64()
}
