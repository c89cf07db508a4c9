package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

// TransferArchive is an in-memory implementation of storage.TransferArchive.
type TransferArchive struct {
	mu   sync.RWMutex
	runs map[string]*domain.TraceRun
}

// NewTransferArchive creates a new in-memory transfer archive.
func NewTransferArchive() *TransferArchive {
	return &TransferArchive{
		runs: make(map[string]*domain.TraceRun),
	}
}

// InsertRun stores a copy of run. Returns ErrDuplicateKey if the ID exists.
func (a *TransferArchive) InsertRun(_ context.Context, run *domain.TraceRun) error {
	if run == nil || run.ID == "" || run.Origin == "" {
		return storage.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.runs[run.ID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *run
	runCopy.Events = append(domain.TraceResult{}, run.Events...)
	a.runs[run.ID] = &runCopy
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (a *TransferArchive) GetRun(_ context.Context, id string) (*domain.TraceRun, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	run, exists := a.runs[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *run
	runCopy.Events = append(domain.TraceResult{}, run.Events...)
	return &runCopy, nil
}

// ListRunsByOrigin returns runs for origin ordered by CreatedAt descending, without events.
func (a *TransferArchive) ListRunsByOrigin(_ context.Context, origin string, limit int) ([]*domain.TraceRun, error) {
	a.mu.RLock()
	var result []*domain.TraceRun
	for _, run := range a.runs {
		if run.Origin != origin {
			continue
		}
		runCopy := *run
		runCopy.Events = nil
		result = append(result, &runCopy)
	}
	a.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.TransferArchive = (*TransferArchive)(nil)
