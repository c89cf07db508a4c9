package heuristics

import (
	"context"
	"log"
	"time"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/transfer"
)

// DefaultExchangeSignatureLimit is how many recent transactions are inspected.
const DefaultExchangeSignatureLimit = 50

// DefaultExchangeWallets are known Binance hot wallets.
var DefaultExchangeWallets = []string{
	"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
	"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9",
}

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ExchangeScanner finds transfers between a wallet's recent transactions and known exchange addresses.
type ExchangeScanner struct {
	client         solana.RPCClient
	exchanges      map[string]struct{}
	signatureLimit int
	logger         *log.Logger
}

// ExchangeOptions configures an ExchangeScanner.
type ExchangeOptions struct {
	Exchanges      []string // defaults to DefaultExchangeWallets
	SignatureLimit int      // defaults to DefaultExchangeSignatureLimit
	Logger         *log.Logger
}

// NewExchangeScanner creates a new exchange interaction scanner.
func NewExchangeScanner(client solana.RPCClient, opts *ExchangeOptions) *ExchangeScanner {
	s := &ExchangeScanner{
		client:         client,
		signatureLimit: DefaultExchangeSignatureLimit,
		logger:         log.Default(),
	}
	exchanges := DefaultExchangeWallets
	if opts != nil {
		if len(opts.Exchanges) > 0 {
			exchanges = opts.Exchanges
		}
		if opts.SignatureLimit > 0 {
			s.signatureLimit = opts.SignatureLimit
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	s.exchanges = make(map[string]struct{}, len(exchanges))
	for _, addr := range exchanges {
		s.exchanges[addr] = struct{}{}
	}
	return s
}

// IsExchange reports whether addr is a known exchange address.
func (s *ExchangeScanner) IsExchange(addr string) bool {
	_, ok := s.exchanges[addr]
	return ok
}

// Scan inspects the recent transfers of wallet. A transfer whose source is an exchange
// counts as received, one whose destination is an exchange counts as sent; a transfer
// between two exchanges counts as both.
func (s *ExchangeScanner) Scan(ctx context.Context, wallet string) (*domain.ExchangeActivity, error) {
	start := time.Now()
	activity, err := s.scan(ctx, wallet)
	findings := 0
	if activity != nil {
		findings = activity.TotalInteractions
	}
	observability.RecordScan("exchange", time.Since(start), findings, err)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[exchange] %s: %d received, %d sent",
		wallet, len(activity.ReceivedFromBinance), len(activity.SentToBinance))
	return activity, nil
}

func (s *ExchangeScanner) scan(ctx context.Context, wallet string) (*domain.ExchangeActivity, error) {
	if err := address.Validate(wallet); err != nil {
		return nil, err
	}

	sigInfos, err := s.client.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: s.signatureLimit})
	if err != nil {
		return nil, domain.NewFetchError("get signatures", wallet, err)
	}
	if len(sigInfos) > s.signatureLimit {
		sigInfos = sigInfos[:s.signatureLimit]
	}

	txs, err := s.client.GetParsedTransactions(ctx, solana.Signatures(sigInfos))
	if err != nil {
		return nil, domain.NewFetchError("get transactions", wallet, err)
	}

	activity := &domain.ExchangeActivity{
		ReceivedFromBinance: make([]domain.ExchangeInteraction, 0),
		SentToBinance:       make([]domain.ExchangeInteraction, 0),
	}
	for _, tx := range txs {
		for _, ev := range transfer.Extract(tx) {
			fromExchange := s.IsExchange(ev.From)
			toExchange := s.IsExchange(ev.To)
			if !fromExchange && !toExchange {
				continue
			}
			interaction := domain.ExchangeInteraction{
				Signature: ev.Signature,
				From:      ev.From,
				To:        ev.To,
				Token:     ev.Asset,
				Amount:    ev.Amount,
				Date:      ev.Timestamp.Format(isoLayout),
			}
			if fromExchange {
				activity.ReceivedFromBinance = append(activity.ReceivedFromBinance, interaction)
			}
			if toExchange {
				activity.SentToBinance = append(activity.SentToBinance, interaction)
			}
		}
	}
	activity.TotalInteractions = len(activity.ReceivedFromBinance) + len(activity.SentToBinance)
	return activity, nil
}
