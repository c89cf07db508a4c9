package domain

// TokenBalance is one SPL token account held by a wallet.
type TokenBalance struct {
	Name     string  `json:"name"`
	Mint     string  `json:"mint"`
	Amount   float64 `json:"amount"`
	Symbol   string  `json:"symbol"`
	Decimals int     `json:"decimals"`
}

// WalletBalances is the native balance plus every token account of a wallet.
type WalletBalances struct {
	NativeBalance float64        `json:"nativeBalance"`
	TokenAccounts []TokenBalance `json:"tokenAccounts"`
}

// InstructionSummary is a display form of one instruction.
type InstructionSummary struct {
	Program   string         `json:"program"`
	ProgramID string         `json:"programId"`
	Info      map[string]any `json:"info"`
}

// TransactionSummary is a display form of one recent transaction.
type TransactionSummary struct {
	Signature    string               `json:"signature"`
	Date         string               `json:"date"`
	Status       string               `json:"status"`
	Instructions []InstructionSummary `json:"instructions"`
}

// RecentAddress is an address that was recently inspected.
type RecentAddress struct {
	Address    string `json:"address"`
	LastSeenAt int64  `json:"lastSeenAt"` // ms
	Lookups    int64  `json:"lookups"`
}
