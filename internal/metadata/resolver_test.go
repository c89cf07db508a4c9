package metadata

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/solana/stub"
	"solana-wallet-inspector/internal/storage/memory"
)

var quietLogger = log.New(io.Discard, "", 0)

func mintAccount(supply uint64, decimals byte) *solana.AccountInfo {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return &solana.AccountInfo{Owner: address.TokenProgramID, Data: base64.StdEncoding.EncodeToString(data)}
}

func borsh(s string, padTo int) []byte {
	b := make([]byte, 4, 4+padTo)
	binary.LittleEndian.PutUint32(b, uint32(padTo))
	b = append(b, s...)
	for len(b) < 4+padTo {
		b = append(b, 0)
	}
	return b
}

func metaplexAccount(name, symbol string) *solana.AccountInfo {
	data := make([]byte, 65)
	data[0] = 4
	data = append(data, borsh(name, 32)...)
	data = append(data, borsh(symbol, 10)...)
	data = append(data, borsh("https://example.com/meta.json", 200)...)
	return &solana.AccountInfo{Owner: address.MetaplexProgramID, Data: base64.StdEncoding.EncodeToString(data)}
}

func setup(t *testing.T, mint string) *stub.RPCClient {
	t.Helper()
	client := stub.NewRPCClient()
	client.Accounts[mint] = mintAccount(1_000_000_000_000, 6)

	pda, err := MetadataPDA(mint)
	require.NoError(t, err)
	client.Accounts[pda] = metaplexAccount("Bonk", "BONK")
	return client
}

func TestResolver_Resolve(t *testing.T) {
	mint := stub.Address(40)
	r := NewResolver(setup(t, mint), &Options{Logger: quietLogger})

	meta, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, mint, meta.Mint)
	assert.Equal(t, 6, meta.Decimals)
	require.NotNil(t, meta.Supply)
	assert.InDelta(t, 1_000_000.0, *meta.Supply, 1e-6)
	assert.Equal(t, "Bonk", meta.DisplayName())
	assert.Equal(t, "BONK", meta.DisplaySymbol())
	assert.NotZero(t, meta.FetchedAt)
}

func TestResolver_MissingMint(t *testing.T) {
	r := NewResolver(stub.NewRPCClient(), &Options{Logger: quietLogger})

	meta, err := r.Resolve(context.Background(), stub.Address(41))
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestResolver_NoMetaplexAccount(t *testing.T) {
	mint := stub.Address(42)
	client := stub.NewRPCClient()
	client.Accounts[mint] = mintAccount(500, 0)

	meta, err := NewResolver(client, &Options{Logger: quietLogger}).Resolve(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 0, meta.Decimals)
	assert.InDelta(t, 500.0, *meta.Supply, 1e-9)
	assert.Nil(t, meta.Name)
	assert.Nil(t, meta.Symbol)
}

func TestResolver_MalformedMintData(t *testing.T) {
	mint := stub.Address(43)
	client := stub.NewRPCClient()
	client.Accounts[mint] = &solana.AccountInfo{Data: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}

	meta, err := NewResolver(client, &Options{Logger: quietLogger}).Resolve(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, solana.NativeDecimals, meta.Decimals)
	assert.Nil(t, meta.Supply)
}

func TestResolver_FetchError(t *testing.T) {
	mint := stub.Address(44)
	client := stub.NewRPCClient()
	boom := errors.New("boom")
	client.Errors[mint] = boom

	_, err := NewResolver(client, &Options{Logger: quietLogger}).Resolve(context.Background(), mint)
	assert.ErrorIs(t, err, boom)
}

func TestResolver_StoreReadThrough(t *testing.T) {
	ctx := context.Background()
	mint := stub.Address(45)
	client := setup(t, mint)
	store := memory.NewTokenMetadataStore()

	r := NewResolver(client, &Options{Store: store, Logger: quietLogger})
	_, err := r.Resolve(ctx, mint)
	require.NoError(t, err)

	cached, err := store.GetByMint(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "BONK", cached.DisplaySymbol())

	// Served from the store once cached.
	delete(client.Accounts, mint)
	meta, err := r.Resolve(ctx, mint)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Bonk", meta.DisplayName())
}

func TestResolver_StorePrepopulated(t *testing.T) {
	ctx := context.Background()
	mint := stub.Address(46)
	store := memory.NewTokenMetadataStore()
	name := "Cached"
	require.NoError(t, store.Upsert(ctx, &domain.TokenMetadata{Mint: mint, Name: &name, Decimals: 2, FetchedAt: 1}))

	r := NewResolver(stub.NewRPCClient(), &Options{Store: store, Logger: quietLogger})
	meta, err := r.Resolve(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Cached", meta.DisplayName())
	assert.Equal(t, 2, meta.Decimals)
}

func TestResolver_StaleEntryRefetched(t *testing.T) {
	ctx := context.Background()
	mint := stub.Address(48)
	client := setup(t, mint)
	store := memory.NewTokenMetadataStore()
	old := "Old"
	require.NoError(t, store.Upsert(ctx, &domain.TokenMetadata{Mint: mint, Name: &old, Decimals: 6, FetchedAt: 1_000}))

	now := time.UnixMilli(1_000).Add(48 * time.Hour)
	r := NewResolver(client, &Options{Store: store, MaxAge: 24 * time.Hour, Logger: quietLogger})
	r.now = func() time.Time { return now }

	meta, err := r.Resolve(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Bonk", meta.DisplayName())

	cached, err := store.GetByMint(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Bonk", cached.DisplayName())
	assert.Equal(t, now.UnixMilli(), cached.FetchedAt)
	assert.Equal(t, int64(1_000), cached.CreatedAt)
}

func TestResolver_ResolveMany(t *testing.T) {
	ctx := context.Background()
	fetched, cachedMint, missing := stub.Address(49), stub.Address(50), stub.Address(51)
	client := setup(t, fetched)
	store := memory.NewTokenMetadataStore()
	name := "Cached"
	require.NoError(t, store.Upsert(ctx, &domain.TokenMetadata{Mint: cachedMint, Name: &name, Decimals: 2, FetchedAt: 1}))

	r := NewResolver(client, &Options{Store: store, Logger: quietLogger})
	got, err := r.ResolveMany(ctx, []string{fetched, cachedMint, missing})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Bonk", got[fetched].DisplayName())
	assert.Equal(t, "Cached", got[cachedMint].DisplayName())
	assert.NotContains(t, got, missing)

	_, err = store.GetByMint(ctx, fetched)
	assert.NoError(t, err, "fetched metadata is written back")
}

func TestResolver_ResolveManyFetchErrorSkipsMint(t *testing.T) {
	ok, broken := stub.Address(52), stub.Address(53)
	client := setup(t, ok)
	client.Errors[broken] = errors.New("boom")

	got, err := NewResolver(client, &Options{Logger: quietLogger}).ResolveMany(context.Background(), []string{broken, ok})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, ok)
}

func TestMetadataPDA(t *testing.T) {
	mint := stub.Address(47)
	pda, err := MetadataPDA(mint)
	require.NoError(t, err)

	key, err := address.Decode(pda)
	require.NoError(t, err)
	assert.False(t, address.IsOnCurve(key), "PDA must be off curve")

	again, _ := MetadataPDA(mint)
	assert.Equal(t, pda, again)

	_, err = MetadataPDA("not-base58-0OIl")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestParseMetaplexData_WrongKey(t *testing.T) {
	acct := metaplexAccount("Name", "SYM")
	raw, _ := base64.StdEncoding.DecodeString(acct.Data)
	raw[0] = 1

	var meta domain.TokenMetadata
	parseMetaplexData(base64.StdEncoding.EncodeToString(raw), &meta)
	assert.Nil(t, meta.Name)
	assert.Nil(t, meta.Symbol)
}
