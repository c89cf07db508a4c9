package memory

import (
	"context"
	"errors"
	"testing"

	"solana-wallet-inspector/internal/storage"
)

func TestRecentAddressStore_TouchAndList(t *testing.T) {
	store := NewRecentAddressStore()
	ctx := context.Background()

	touches := []struct {
		addr string
		at   int64
	}{
		{"addrA", 1000},
		{"addrB", 2000},
		{"addrA", 3000},
		{"addrC", 1500},
	}
	for _, tc := range touches {
		if err := store.Touch(ctx, tc.addr, tc.at); err != nil {
			t.Fatalf("Touch %s failed: %v", tc.addr, err)
		}
	}

	result, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(result))
	}

	wantOrder := []string{"addrA", "addrB", "addrC"}
	for i, want := range wantOrder {
		if result[i].Address != want {
			t.Errorf("position %d: got %s, want %s", i, result[i].Address, want)
		}
	}
	if result[0].Lookups != 2 {
		t.Errorf("addrA lookups: got %d, want 2", result[0].Lookups)
	}
	if result[0].LastSeenAt != 3000 {
		t.Errorf("addrA last seen: got %d, want 3000", result[0].LastSeenAt)
	}
}

func TestRecentAddressStore_OutOfOrderTouch(t *testing.T) {
	store := NewRecentAddressStore()
	ctx := context.Background()

	_ = store.Touch(ctx, "addrA", 5000)
	_ = store.Touch(ctx, "addrA", 1000)

	result, _ := store.ListRecent(ctx, 0)
	if result[0].LastSeenAt != 5000 {
		t.Errorf("LastSeenAt moved backwards: %d", result[0].LastSeenAt)
	}
	if result[0].Lookups != 2 {
		t.Errorf("lookups: got %d, want 2", result[0].Lookups)
	}
}

func TestRecentAddressStore_Limit(t *testing.T) {
	store := NewRecentAddressStore()
	ctx := context.Background()

	for i, addr := range []string{"a", "b", "c", "d"} {
		_ = store.Touch(ctx, addr, int64(i))
	}

	result, _ := store.ListRecent(ctx, 2)
	if len(result) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result))
	}
	if result[0].Address != "d" || result[1].Address != "c" {
		t.Errorf("unexpected order: %v", result)
	}
}

func TestRecentAddressStore_Empty(t *testing.T) {
	store := NewRecentAddressStore()
	ctx := context.Background()

	if err := store.Touch(ctx, "", 1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	result, err := store.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if result == nil || len(result) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", result)
	}
}
