package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

// TokenMetadataStore caches mint metadata in the token_metadata table.
type TokenMetadataStore struct {
	pool *Pool
}

// NewTokenMetadataStore creates a new PostgreSQL metadata cache.
func NewTokenMetadataStore(pool *Pool) *TokenMetadataStore {
	return &TokenMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

const tokenMetadataColumns = `mint, name, symbol, decimals, supply, fetched_at, created_at`

// Upsert writes m, refreshing every fetched column of an existing row.
// created_at is only set on insert.
func (s *TokenMetadataStore) Upsert(ctx context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}
	createdAt := m.CreatedAt
	if createdAt == 0 {
		createdAt = m.FetchedAt
	}
	start := time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_metadata (`+tokenMetadataColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mint) DO UPDATE
		SET name = EXCLUDED.name,
		    symbol = EXCLUDED.symbol,
		    decimals = EXCLUDED.decimals,
		    supply = EXCLUDED.supply,
		    fetched_at = EXCLUDED.fetched_at
	`, m.Mint, m.Name, m.Symbol, m.Decimals, m.Supply, m.FetchedAt, createdAt)
	observe("upsert_token_metadata", start, err)
	if err != nil {
		return fmt.Errorf("upsert token metadata: %w", err)
	}
	return nil
}

// GetByMint retrieves metadata by mint address. Returns ErrNotFound if not exists.
func (s *TokenMetadataStore) GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	start := time.Now()

	row := s.pool.QueryRow(ctx, `SELECT `+tokenMetadataColumns+` FROM token_metadata WHERE mint = $1`, mint)
	m, err := scanTokenMetadata(row)
	observe("get_token_metadata", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metadata by mint: %w", err)
	}
	return m, nil
}

// GetByMints loads every cached entry among mints in one query.
func (s *TokenMetadataStore) GetByMints(ctx context.Context, mints []string) (map[string]*domain.TokenMetadata, error) {
	out := make(map[string]*domain.TokenMetadata, len(mints))
	if len(mints) == 0 {
		return out, nil
	}
	start := time.Now()

	rows, err := s.pool.Query(ctx, `SELECT `+tokenMetadataColumns+` FROM token_metadata WHERE mint = ANY($1)`, mints)
	if err != nil {
		observe("get_token_metadata_batch", start, err)
		return nil, fmt.Errorf("query token metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanTokenMetadata(rows)
		if err != nil {
			observe("get_token_metadata_batch", start, err)
			return nil, fmt.Errorf("scan token metadata: %w", err)
		}
		out[m.Mint] = m
	}
	err = rows.Err()
	observe("get_token_metadata_batch", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate token metadata: %w", err)
	}
	return out, nil
}

func scanTokenMetadata(row pgx.Row) (*domain.TokenMetadata, error) {
	var m domain.TokenMetadata
	if err := row.Scan(&m.Mint, &m.Name, &m.Symbol, &m.Decimals, &m.Supply, &m.FetchedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
