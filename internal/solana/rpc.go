package solana

import "context"

// RPCClient is the ledger surface consumed by the analysis core.
type RPCClient interface {
	// GetSignaturesForAddress retrieves signatures for an address, most recent first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetParsedTransaction retrieves a jsonParsed transaction by signature.
	// Returns nil, nil if the transaction is not available.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)

	// GetParsedTransactions retrieves a batch of transactions. The result is
	// aligned with signatures; missing or unparseable entries are nil.
	GetParsedTransactions(ctx context.Context, signatures []string) ([]*ParsedTransaction, error)
}

// AccountClient defines account-level queries used by the wallet and metadata layers.
type AccountClient interface {
	// GetBalance returns the native balance in lamports.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetParsedTokenAccountsByOwner returns the SPL token accounts owned by address.
	GetParsedTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenAccount, error)

	// GetAccountInfo retrieves raw account data. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Client combines the ledger and account surfaces.
type Client interface {
	RPCClient
	AccountClient
}

// Signatures extracts the signature strings from infos, preserving order.
func Signatures(infos []SignatureInfo) []string {
	sigs := make([]string, len(infos))
	for i, info := range infos {
		sigs[i] = info.Signature
	}
	return sigs
}
