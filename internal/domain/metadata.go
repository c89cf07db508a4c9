package domain

// TokenMetadata represents on-chain token metadata for a mint.
// Corresponds to token_metadata table in PostgreSQL.
type TokenMetadata struct {
	Mint      string   // token mint address (PK)
	Name      *string  // Metaplex name (nullable)
	Symbol    *string  // Metaplex symbol (nullable)
	Decimals  int      // mint decimals
	Supply    *float64 // total supply adjusted for decimals (nullable)
	FetchedAt int64    // when metadata was fetched (ms)
	CreatedAt int64    // record creation timestamp (ms)
}

// DisplayName returns the name or an empty string.
func (m *TokenMetadata) DisplayName() string {
	if m == nil || m.Name == nil {
		return ""
	}
	return *m.Name
}

// DisplaySymbol returns the symbol or an empty string.
func (m *TokenMetadata) DisplaySymbol() string {
	if m == nil || m.Symbol == nil {
		return ""
	}
	return *m.Symbol
}
