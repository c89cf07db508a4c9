package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

// RecentAddressStore is a PostgreSQL implementation of storage.RecentAddressStore.
// One row per address in recent_addresses, upserted on every lookup.
type RecentAddressStore struct {
	pool *Pool
}

// NewRecentAddressStore creates a new PostgreSQL recent address store.
func NewRecentAddressStore(pool *Pool) *RecentAddressStore {
	return &RecentAddressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecentAddressStore = (*RecentAddressStore)(nil)

// Touch records a lookup. Uses upsert so the first lookup inserts and later ones update.
func (s *RecentAddressStore) Touch(ctx context.Context, address string, seenAt int64) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO recent_addresses (address, last_seen_at, lookups)
		VALUES ($1, $2, 1)
		ON CONFLICT (address) DO UPDATE
		SET last_seen_at = GREATEST(recent_addresses.last_seen_at, EXCLUDED.last_seen_at),
		    lookups = recent_addresses.lookups + 1
	`, address, seenAt)
	observe("touch_recent_address", start, err)
	if err != nil {
		return fmt.Errorf("touch recent address: %w", err)
	}
	return nil
}

// ListRecent returns up to limit addresses, most recently seen first.
// A non-positive limit returns every entry.
func (s *RecentAddressStore) ListRecent(ctx context.Context, limit int) ([]domain.RecentAddress, error) {
	start := time.Now()

	query := `
		SELECT address, last_seen_at, lookups
		FROM recent_addresses
		ORDER BY last_seen_at DESC, address ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		observe("list_recent_addresses", start, err)
		return nil, fmt.Errorf("list recent addresses: %w", err)
	}
	defer rows.Close()

	result := make([]domain.RecentAddress, 0)
	for rows.Next() {
		var r domain.RecentAddress
		if err := rows.Scan(&r.Address, &r.LastSeenAt, &r.Lookups); err != nil {
			observe("list_recent_addresses", start, err)
			return nil, fmt.Errorf("scan recent address: %w", err)
		}
		result = append(result, r)
	}
	err = rows.Err()
	observe("list_recent_addresses", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate recent addresses: %w", err)
	}

	return result, nil
}
