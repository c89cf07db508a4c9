package memory

import (
	"context"
	"sync"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

// TokenMetadataStore is an in-memory metadata cache.
type TokenMetadataStore struct {
	mu     sync.RWMutex
	byMint map[string]domain.TokenMetadata
}

// NewTokenMetadataStore creates an empty cache.
func NewTokenMetadataStore() *TokenMetadataStore {
	return &TokenMetadataStore{
		byMint: make(map[string]domain.TokenMetadata),
	}
}

var _ storage.TokenMetadataStore = (*TokenMetadataStore)(nil)

// Upsert stores a copy of m. An existing entry keeps its CreatedAt.
func (s *TokenMetadataStore) Upsert(_ context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := *m
	if prev, ok := s.byMint[m.Mint]; ok {
		entry.CreatedAt = prev.CreatedAt
	} else if entry.CreatedAt == 0 {
		entry.CreatedAt = entry.FetchedAt
	}
	s.byMint[m.Mint] = entry
	return nil
}

// GetByMint returns a copy of the entry for mint.
func (s *TokenMetadataStore) GetByMint(_ context.Context, mint string) (*domain.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byMint[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &entry, nil
}

// GetByMints returns copies of the cached entries among mints.
func (s *TokenMetadataStore) GetByMints(_ context.Context, mints []string) (map[string]*domain.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.TokenMetadata, len(mints))
	for _, mint := range mints {
		if entry, ok := s.byMint[mint]; ok {
			out[mint] = &entry
		}
	}
	return out, nil
}
