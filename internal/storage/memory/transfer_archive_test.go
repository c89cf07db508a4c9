package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/storage"
)

func testRun(id, origin string, createdAt int64) *domain.TraceRun {
	return &domain.TraceRun{
		ID:        id,
		Origin:    origin,
		MaxDepth:  2,
		CreatedAt: createdAt,
		Events: domain.TraceResult{
			{ID: id + "-e1", From: origin, To: "B", Asset: domain.NativeAsset, Amount: 1, Timestamp: time.Unix(100, 0).UTC(), Signature: "sig1"},
			{ID: id + "-e2", From: "B", To: "C", Asset: "mintX", Amount: 2.5, Timestamp: time.Unix(200, 0).UTC(), Signature: "sig2"},
		},
	}
}

func TestTransferArchive_InsertAndGet(t *testing.T) {
	archive := NewTransferArchive()
	ctx := context.Background()

	run := testRun("run1", "A", 1000)
	if err := archive.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	got, err := archive.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Origin != "A" || got.MaxDepth != 2 {
		t.Errorf("unexpected run header: %+v", got)
	}
	if len(got.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got.Events))
	}
	if got.Events[0].ID != "run1-e1" || got.Events[1].ID != "run1-e2" {
		t.Errorf("events out of order: %v", got.Events)
	}
}

func TestTransferArchive_Duplicate(t *testing.T) {
	archive := NewTransferArchive()
	ctx := context.Background()

	if err := archive.InsertRun(ctx, testRun("run1", "A", 1000)); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	err := archive.InsertRun(ctx, testRun("run1", "B", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransferArchive_InvalidInput(t *testing.T) {
	archive := NewTransferArchive()
	ctx := context.Background()

	for _, run := range []*domain.TraceRun{nil, {Origin: "A"}, {ID: "run1"}} {
		if err := archive.InsertRun(ctx, run); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %+v, got %v", run, err)
		}
	}
}

func TestTransferArchive_NotFound(t *testing.T) {
	archive := NewTransferArchive()

	_, err := archive.GetRun(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransferArchive_IsolatedFromCaller(t *testing.T) {
	archive := NewTransferArchive()
	ctx := context.Background()

	run := testRun("run1", "A", 1000)
	_ = archive.InsertRun(ctx, run)
	run.Events[0].Amount = 99

	got, _ := archive.GetRun(ctx, "run1")
	if got.Events[0].Amount != 1 {
		t.Errorf("archived event was mutated: %v", got.Events[0].Amount)
	}
}

func TestTransferArchive_ListRunsByOrigin(t *testing.T) {
	archive := NewTransferArchive()
	ctx := context.Background()

	_ = archive.InsertRun(ctx, testRun("run1", "A", 1000))
	_ = archive.InsertRun(ctx, testRun("run2", "A", 3000))
	_ = archive.InsertRun(ctx, testRun("run3", "B", 2000))
	_ = archive.InsertRun(ctx, testRun("run4", "A", 2000))

	runs, err := archive.ListRunsByOrigin(ctx, "A", 2)
	if err != nil {
		t.Fatalf("ListRunsByOrigin failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run2" || runs[1].ID != "run4" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Events != nil {
		t.Error("listing should not carry events")
	}

	none, _ := archive.ListRunsByOrigin(ctx, "Z", 10)
	if len(none) != 0 {
		t.Errorf("expected no runs, got %d", len(none))
	}
}
