// Package metadata resolves SPL mint metadata: decimals and supply from the mint
// account, name and symbol from the Metaplex metadata account.
package metadata

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/storage"
)

// Account layout constants.
const (
	mintAccountSize    = 82 // SPL Token Mint
	mintSupplyOffset   = 36 // after mintAuthority Option<Pubkey>
	mintDecimalsOffset = 44

	metadataKeyV1      = 4
	metadataNameOffset = 65 // key(1) + updateAuthority(32) + mint(32)
	maxNameLen         = 100
	maxSymbolLen       = 20
)

// Resolver fetches token metadata for mints.
// With a Store configured it reads through it and writes back what it fetched;
// entries older than MaxAge are fetched again.
type Resolver struct {
	client solana.AccountClient
	store  storage.TokenMetadataStore
	maxAge time.Duration
	logger *log.Logger
	now    func() time.Time
}

// Options configures a Resolver.
type Options struct {
	Store  storage.TokenMetadataStore // optional cache
	MaxAge time.Duration              // 0 keeps cached entries forever
	Logger *log.Logger
}

// NewResolver creates a new metadata resolver.
func NewResolver(client solana.AccountClient, opts *Options) *Resolver {
	r := &Resolver{
		client: client,
		logger: log.Default(),
		now:    time.Now,
	}
	if opts != nil {
		r.store = opts.Store
		r.maxAge = opts.MaxAge
		if opts.Logger != nil {
			r.logger = opts.Logger
		}
	}
	return r
}

// Resolve returns metadata for mint, or nil if the mint account does not exist.
// A missing or malformed Metaplex account leaves Name and Symbol nil.
func (r *Resolver) Resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	if r.store != nil {
		cached, err := r.store.GetByMint(ctx, mint)
		switch {
		case err == nil && r.fresh(cached):
			return cached, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			r.logger.Printf("[metadata] cache lookup %s: %v", mint, err)
		}
	}
	return r.fetchAndStore(ctx, mint)
}

// ResolveMany resolves every distinct mint, reading the cache in one batch.
// Mints whose account does not exist are absent from the result. A fetch
// failure for one mint is logged and leaves it absent; only a cancelled
// context is returned as an error.
func (r *Resolver) ResolveMany(ctx context.Context, mints []string) (map[string]*domain.TokenMetadata, error) {
	out := make(map[string]*domain.TokenMetadata, len(mints))
	if r.store != nil && len(mints) > 0 {
		cached, err := r.store.GetByMints(ctx, mints)
		if err != nil {
			r.logger.Printf("[metadata] batch cache lookup: %v", err)
		}
		for mint, meta := range cached {
			if r.fresh(meta) {
				out[mint] = meta
			}
		}
	}

	for _, mint := range mints {
		if _, done := out[mint]; done {
			continue
		}
		meta, err := r.fetchAndStore(ctx, mint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Printf("[metadata] resolve %s: %v", mint, err)
			continue
		}
		if meta != nil {
			out[mint] = meta
		}
	}
	return out, nil
}

func (r *Resolver) fresh(meta *domain.TokenMetadata) bool {
	if r.maxAge <= 0 {
		return true
	}
	return r.now().Sub(time.UnixMilli(meta.FetchedAt)) < r.maxAge
}

func (r *Resolver) fetchAndStore(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	meta, err := r.fetch(ctx, mint)
	if err != nil || meta == nil {
		return nil, err
	}
	if r.store != nil {
		if err := r.store.Upsert(ctx, meta); err != nil {
			r.logger.Printf("[metadata] cache write %s: %v", mint, err)
		}
	}
	return meta, nil
}

func (r *Resolver) fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	mintInfo, err := r.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account info: %w", err)
	}
	if mintInfo == nil {
		return nil, nil
	}

	now := r.now().UnixMilli()
	meta := &domain.TokenMetadata{
		Mint:      mint,
		Decimals:  solana.NativeDecimals,
		FetchedAt: now,
		CreatedAt: now,
	}

	if err := parseMintData(mintInfo.Data, meta); err != nil {
		r.logger.Printf("[metadata] mint %s: %v", mint, err)
	}

	pda, err := MetadataPDA(mint)
	if err != nil {
		return meta, nil
	}
	metaInfo, err := r.client.GetAccountInfo(ctx, pda)
	if err != nil {
		r.logger.Printf("[metadata] metaplex account %s: %v", pda, err)
		return meta, nil
	}
	if metaInfo != nil {
		parseMetaplexData(metaInfo.Data, meta)
	}
	return meta, nil
}

// MetadataPDA derives the Metaplex metadata account of mint.
// Seeds: ["metadata", metaplex program id, mint].
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := address.Decode(mint)
	if err != nil {
		return "", err
	}
	programBytes, err := address.Decode(address.MetaplexProgramID)
	if err != nil {
		return "", err
	}

	pda, _, err := address.FindProgramAddress(
		[][]byte{[]byte("metadata"), programBytes, mintBytes},
		address.MetaplexProgramID,
	)
	return pda, err
}

// parseMintData reads supply (u64 LE) and decimals (u8) from an SPL mint account.
func parseMintData(data string, meta *domain.TokenMetadata) error {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountSize {
		return fmt.Errorf("mint data too short: %d", len(decoded))
	}

	raw := binary.LittleEndian.Uint64(decoded[mintSupplyOffset : mintSupplyOffset+8])
	decimals := int(decoded[mintDecimalsOffset])

	supply := decimal.RequireFromString(strconv.FormatUint(raw, 10)).Shift(int32(-decimals)).InexactFloat64()
	meta.Decimals = decimals
	meta.Supply = &supply
	return nil
}

// parseMetaplexData reads name and symbol from a MetadataV1 account.
// Borsh strings: u32 LE length followed by the bytes, NUL padded.
func parseMetaplexData(data string, meta *domain.TokenMetadata) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(decoded) <= metadataNameOffset || decoded[0] != metadataKeyV1 {
		return
	}

	name, offset, ok := readBorshString(decoded, metadataNameOffset, maxNameLen)
	if !ok {
		return
	}
	if name != "" {
		meta.Name = &name
	}

	symbol, _, ok := readBorshString(decoded, offset, maxSymbolLen)
	if ok && symbol != "" {
		meta.Symbol = &symbol
	}
}

func readBorshString(b []byte, offset, maxLen int) (string, int, bool) {
	if offset+4 > len(b) {
		return "", offset, false
	}
	n := int(binary.LittleEndian.Uint32(b[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(b) {
		return "", offset, false
	}
	s := strings.TrimRight(string(b[offset:offset+n]), "\x00")
	return strings.TrimSpace(s), offset + n, true
}
