package domain

// MemecoinReport lists the tokens of a wallet matching the memecoin keywords.
type MemecoinReport struct {
	Wallet    string         `json:"wallet"`
	Count     int            `json:"count"`
	Memecoins []TokenBalance `json:"memecoins"`
	Summary   string         `json:"summary"`
}

// ExchangeInteraction is one transfer between a wallet and a known exchange address.
type ExchangeInteraction struct {
	Signature string  `json:"signature"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
}

// ExchangeActivity buckets exchange interactions into received and sent.
type ExchangeActivity struct {
	ReceivedFromBinance []ExchangeInteraction `json:"receivedFromBinance"`
	SentToBinance       []ExchangeInteraction `json:"sentToBinance"`
	TotalInteractions   int                   `json:"totalInteractions"`
}

// GhostAwakening is a token whose last two transactions are separated by at
// least the dormancy threshold.
type GhostAwakening struct {
	Mint                 string `json:"mint"`
	DaysDormant          int    `json:"daysDormant"`
	AwakenedAt           string `json:"awakenedAt"`
	RecentTransferAmount string `json:"recentTransferAmount"`
	From                 string `json:"from"`
	To                   string `json:"to"`
}
