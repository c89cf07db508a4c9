// Package heuristics implements the wallet scanners: memecoin holdings,
// exchange interactions and dormant token awakenings.
package heuristics

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
)

// DefaultMemecoinKeywords are matched against token symbols and names.
var DefaultMemecoinKeywords = []string{
	"bonk", "wif", "pepe", "dog", "frog", "shiba", "floki", "silly", "toshi", "popcat",
	"meme", "doge", "kitty", "monke", "woof", "based", "troll", "lol", "gm", "wen",
}

// TokenLister lists the token balances of a wallet. Implemented by wallet.Service.
type TokenLister interface {
	TokenBalances(ctx context.Context, owner string) ([]domain.TokenBalance, error)
}

// IsMemecoin reports whether the lowercased symbol or name of token contains any keyword.
func IsMemecoin(token domain.TokenBalance, keywords []string) bool {
	symbol := strings.ToLower(token.Symbol)
	name := strings.ToLower(token.Name)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(symbol, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// DetectMemecoins classifies tokens held by wallet. Tokens keep their input order.
func DetectMemecoins(wallet string, tokens []domain.TokenBalance, keywords []string) *domain.MemecoinReport {
	report := &domain.MemecoinReport{
		Wallet:    wallet,
		Memecoins: make([]domain.TokenBalance, 0),
	}
	for _, token := range tokens {
		if IsMemecoin(token, keywords) {
			report.Memecoins = append(report.Memecoins, token)
		}
	}
	report.Count = len(report.Memecoins)
	report.Summary = MemecoinSummary(wallet, report.Memecoins)
	return report
}

// MemecoinSummary renders the human-readable memecoin listing.
func MemecoinSummary(wallet string, memecoins []domain.TokenBalance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanning for memecoins in wallet: %s\n\n", wallet)
	for _, m := range memecoins {
		fmt.Fprintf(&b, "🚀 Memecoin Detected!\n- Mint Address: %s\n- Symbol: %s\n- Name: %s\n- Amount: %s\n\n",
			m.Mint,
			strings.ToUpper(m.Symbol),
			strings.ToLower(m.Name),
			strconv.FormatFloat(m.Amount, 'f', -1, 64),
		)
	}
	if len(memecoins) == 0 {
		b.WriteString("\nNo memecoins found in this wallet.")
	} else {
		fmt.Fprintf(&b, "\n✅ Found %d memecoin(s).", len(memecoins))
	}
	return b.String()
}

// MemecoinScanner fetches a wallet's tokens and applies DetectMemecoins.
type MemecoinScanner struct {
	tokens   TokenLister
	keywords []string
	logger   *log.Logger
}

// MemecoinOptions configures a MemecoinScanner.
type MemecoinOptions struct {
	Keywords []string // defaults to DefaultMemecoinKeywords
	Logger   *log.Logger
}

// NewMemecoinScanner creates a new memecoin scanner.
func NewMemecoinScanner(tokens TokenLister, opts *MemecoinOptions) *MemecoinScanner {
	s := &MemecoinScanner{
		tokens:   tokens,
		keywords: DefaultMemecoinKeywords,
		logger:   log.Default(),
	}
	if opts != nil {
		if len(opts.Keywords) > 0 {
			s.keywords = opts.Keywords
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

// Scan returns the memecoin report of wallet.
func (s *MemecoinScanner) Scan(ctx context.Context, wallet string) (*domain.MemecoinReport, error) {
	start := time.Now()
	report, err := s.scan(ctx, wallet)
	findings := 0
	if report != nil {
		findings = report.Count
	}
	observability.RecordScan("memecoin", time.Since(start), findings, err)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[memecoin] %s: %d memecoin(s)", wallet, report.Count)
	return report, nil
}

func (s *MemecoinScanner) scan(ctx context.Context, wallet string) (*domain.MemecoinReport, error) {
	if err := address.Validate(wallet); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.TokenBalances(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return DetectMemecoins(wallet, tokens, s.keywords), nil
}
