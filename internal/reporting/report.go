package reporting

import (
	"time"

	"solana-wallet-inspector/internal/domain"
)

// WalletReport is the combined inspection of one wallet.
// Sections whose source is not configured or failed are left nil.
type WalletReport struct {
	// Metadata
	GeneratedAt time.Time `json:"generatedAt"`
	Wallet      string    `json:"wallet"`
	TraceDepth  int       `json:"traceDepth"`

	Balances  *domain.WalletBalances   `json:"balances,omitempty"`
	Memecoins *domain.MemecoinReport   `json:"memecoins,omitempty"`
	Exchange  *domain.ExchangeActivity `json:"exchange,omitempty"`
	Ghosts    []domain.GhostAwakening  `json:"ghostTokens,omitempty"`
	Cluster   *domain.ClusterSet       `json:"cluster,omitempty"`
	Trace     domain.TraceResult       `json:"trace,omitempty"`

	// SectionErrors lists failed sections as "section: error".
	SectionErrors []string `json:"sectionErrors,omitempty"`
}

// Complete reports whether every configured section succeeded.
func (r *WalletReport) Complete() bool {
	return len(r.SectionErrors) == 0
}
