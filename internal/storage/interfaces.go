package storage

import (
	"context"

	"solana-wallet-inspector/internal/domain"
)

// TokenMetadataStore caches resolved mint metadata.
// Entries are refreshed in place; CreatedAt keeps the first write.
type TokenMetadataStore interface {
	// Upsert writes metadata for a mint, replacing any previous entry.
	// Returns ErrInvalidInput if Mint is empty.
	Upsert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByMint retrieves metadata by mint address.
	// Returns ErrNotFound if no entry exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenMetadata, error)

	// GetByMints returns the cached entries among mints, keyed by mint.
	// Mints without an entry are absent from the map.
	GetByMints(ctx context.Context, mints []string) (map[string]*domain.TokenMetadata, error)
}

// RecentAddressStore tracks addresses that were recently inspected through the API.
type RecentAddressStore interface {
	// Touch records a lookup of address at seenAt (ms). The first lookup creates the
	// entry, later lookups move LastSeenAt forward and increment Lookups.
	Touch(ctx context.Context, address string, seenAt int64) error

	// ListRecent returns up to limit addresses, most recently seen first.
	ListRecent(ctx context.Context, limit int) ([]domain.RecentAddress, error)
}

// TransferArchive persists trace runs so their results can be fetched later.
// Runs are append-only.
type TransferArchive interface {
	// InsertRun stores a run and all of its events.
	// Returns ErrDuplicateKey if the run ID exists, ErrInvalidInput if ID or Origin is empty.
	InsertRun(ctx context.Context, run *domain.TraceRun) error

	// GetRun retrieves a run with its events in discovery order.
	// Returns ErrNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*domain.TraceRun, error)

	// ListRunsByOrigin returns up to limit runs for an origin, newest first.
	// Events are not loaded.
	ListRunsByOrigin(ctx context.Context, origin string, limit int) ([]*domain.TraceRun, error)
}
