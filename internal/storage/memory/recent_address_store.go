package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

// RecentAddressStore is an in-memory implementation of storage.RecentAddressStore.
type RecentAddressStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RecentAddress
}

// NewRecentAddressStore creates a new in-memory recent address store.
func NewRecentAddressStore() *RecentAddressStore {
	return &RecentAddressStore{
		data: make(map[string]*domain.RecentAddress),
	}
}

// Touch records a lookup. LastSeenAt never moves backwards.
func (s *RecentAddressStore) Touch(_ context.Context, address string, seenAt int64) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[address]
	if !exists {
		s.data[address] = &domain.RecentAddress{Address: address, LastSeenAt: seenAt, Lookups: 1}
		return nil
	}
	entry.Lookups++
	if seenAt > entry.LastSeenAt {
		entry.LastSeenAt = seenAt
	}
	return nil
}

// ListRecent returns up to limit addresses ordered by LastSeenAt descending,
// ties broken by address. A non-positive limit returns every entry.
func (s *RecentAddressStore) ListRecent(_ context.Context, limit int) ([]domain.RecentAddress, error) {
	s.mu.RLock()
	result := make([]domain.RecentAddress, 0, len(s.data))
	for _, entry := range s.data {
		result = append(result, *entry)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastSeenAt != result[j].LastSeenAt {
			return result[i].LastSeenAt > result[j].LastSeenAt
		}
		return result[i].Address < result[j].Address
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.RecentAddressStore = (*RecentAddressStore)(nil)
