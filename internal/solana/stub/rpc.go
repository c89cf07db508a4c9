package stub

import (
	"context"
	"sync"

	"solana-wallet-inspector/internal/solana"
)

// RPCClient implements solana.Client for testing.
// Unknown signatures resolve to nil transactions, unknown addresses to empty histories.
type RPCClient struct {
	Transactions  map[string]*solana.ParsedTransaction
	Signatures    map[string][]solana.SignatureInfo
	Balances      map[string]uint64
	TokenAccounts map[string][]solana.TokenAccount
	Accounts      map[string]*solana.AccountInfo

	// Errors forces a failure for a signature or address, checked before any lookup.
	Errors map[string]error

	mu          sync.Mutex
	sigCalls    map[string]int
	txCalls     map[string]int
	sigRequests []*solana.SignaturesOpts
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:  make(map[string]*solana.ParsedTransaction),
		Signatures:    make(map[string][]solana.SignatureInfo),
		Balances:      make(map[string]uint64),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Accounts:      make(map[string]*solana.AccountInfo),
		Errors:        make(map[string]error),
		sigCalls:      make(map[string]int),
		txCalls:       make(map[string]int),
	}
}

var _ solana.Client = (*RPCClient)(nil)

// GetSignaturesForAddress returns stored signatures, honoring opts.Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.mu.Lock()
	c.sigCalls[address]++
	c.sigRequests = append(c.sigRequests, opts)
	c.mu.Unlock()

	if err := c.Errors[address]; err != nil {
		return nil, err
	}

	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetParsedTransaction returns the stored transaction or nil.
func (c *RPCClient) GetParsedTransaction(_ context.Context, signature string) (*solana.ParsedTransaction, error) {
	c.mu.Lock()
	c.txCalls[signature]++
	c.mu.Unlock()

	if err := c.Errors[signature]; err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetParsedTransactions resolves each signature in order.
func (c *RPCClient) GetParsedTransactions(ctx context.Context, signatures []string) ([]*solana.ParsedTransaction, error) {
	txs := make([]*solana.ParsedTransaction, len(signatures))
	for i, sig := range signatures {
		tx, err := c.GetParsedTransaction(ctx, sig)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return txs, nil
}

// GetBalance returns the stored lamport balance.
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	if err := c.Errors[address]; err != nil {
		return 0, err
	}
	return c.Balances[address], nil
}

// GetParsedTokenAccountsByOwner returns stored token accounts.
func (c *RPCClient) GetParsedTokenAccountsByOwner(_ context.Context, owner string) ([]solana.TokenAccount, error) {
	if err := c.Errors[owner]; err != nil {
		return nil, err
	}
	return c.TokenAccounts[owner], nil
}

// GetAccountInfo returns stored account info or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.Errors[pubkey]; err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// AddTransaction stores tx and appends its signature to the history of every address
// in addresses, most recent first as the node would return it.
func (c *RPCClient) AddTransaction(tx *solana.ParsedTransaction, addresses ...string) {
	c.Transactions[tx.Signature] = tx
	info := solana.SignatureInfo{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}
	for _, addr := range addresses {
		c.Signatures[addr] = append([]solana.SignatureInfo{info}, c.Signatures[addr]...)
	}
}

// AddSignatures sets the signature history for an address.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

// SignatureCalls returns how many times address history was requested.
func (c *RPCClient) SignatureCalls(address string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sigCalls[address]
}

// TransactionCalls returns how many times signature was fetched.
func (c *RPCClient) TransactionCalls(signature string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCalls[signature]
}

// LastSignaturesOpts returns the options of the most recent history request.
func (c *RPCClient) LastSignaturesOpts() *solana.SignaturesOpts {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sigRequests) == 0 {
		return nil
	}
	return c.sigRequests[len(c.sigRequests)-1]
}
