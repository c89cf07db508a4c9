package reporting

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/solana/stub"
)

type fakeBalances struct{ err error }

func (f fakeBalances) Balances(context.Context, string) (*domain.WalletBalances, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.WalletBalances{
		NativeBalance: 1.5,
		TokenAccounts: []domain.TokenBalance{{Mint: "mintBonk", Symbol: "BONK", Name: "Bonk", Amount: 100}},
	}, nil
}

type fakeMemecoins struct{}

func (fakeMemecoins) Scan(_ context.Context, wallet string) (*domain.MemecoinReport, error) {
	return &domain.MemecoinReport{
		Wallet:    wallet,
		Count:     1,
		Memecoins: []domain.TokenBalance{{Mint: "mintBonk", Symbol: "bonk", Amount: 100}},
	}, nil
}

type fakeGhosts struct{ err error }

func (f fakeGhosts) Scan(context.Context, string) ([]domain.GhostAwakening, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.GhostAwakening{{Mint: "mintOld", DaysDormant: 9, AwakenedAt: "2024-01-01T00:00:00Z", RecentTransferAmount: "N/A"}}, nil
}

type fakeCluster struct{}

func (fakeCluster) ClusterAddresses(_ context.Context, origin string) (*domain.ClusterSet, error) {
	s := domain.NewClusterSet(origin)
	s.Add("peer")
	return s, nil
}

type fakeTrace struct{ depth int }

func (f *fakeTrace) Trace(_ context.Context, origin string, maxDepth int) (domain.TraceResult, error) {
	f.depth = maxDepth
	return domain.TraceResult{{ID: "e1", From: origin, To: "peer", Asset: domain.NativeAsset, Amount: 1, Signature: "sig1"}}, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_AllSections(t *testing.T) {
	wallet := stub.Address(1)
	tracer := &fakeTrace{}

	gen := NewGenerator(Sources{
		Balances:  fakeBalances{},
		Memecoins: fakeMemecoins{},
		Ghosts:    fakeGhosts{},
		Cluster:   fakeCluster{},
		Trace:     tracer,
	}, log.New(io.Discard, "", 0)).WithClock(fixedClock)

	r, err := gen.Generate(context.Background(), wallet, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.Complete() {
		t.Errorf("expected complete report, got errors %v", r.SectionErrors)
	}
	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
	if tracer.depth != 3 {
		t.Errorf("trace depth = %d, want 3", tracer.depth)
	}
	if r.Exchange != nil {
		t.Error("unconfigured exchange section should stay nil")
	}
	if r.Cluster.Len() != 2 {
		t.Errorf("cluster size = %d, want 2", r.Cluster.Len())
	}

	md := RenderMarkdown(r)
	for _, want := range []string{
		"# Wallet Report",
		"Generated: 2024-06-01T12:00:00Z",
		"Native balance: 1.5 SOL",
		"| mintBonk | BONK | 100 |",
		"No exchange interactions found.",
		"| mintOld | 9 | 2024-01-01T00:00:00Z | N/A |",
		"2 address(es) including the wallet.",
		"## Trace (depth 3)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Errors") {
		t.Error("complete report should not render an errors section")
	}
}

func TestGenerator_SectionFailureContinues(t *testing.T) {
	boom := errors.New("node down")
	gen := NewGenerator(Sources{
		Balances: fakeBalances{err: boom},
		Ghosts:   fakeGhosts{err: boom},
		Cluster:  fakeCluster{},
	}, log.New(io.Discard, "", 0))

	r, err := gen.Generate(context.Background(), stub.Address(1), 1)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(r.SectionErrors) != 2 {
		t.Fatalf("expected 2 section errors, got %v", r.SectionErrors)
	}
	if r.SectionErrors[0] != "balances: node down" || r.SectionErrors[1] != "ghosts: node down" {
		t.Errorf("unexpected section errors: %v", r.SectionErrors)
	}
	if r.Cluster == nil {
		t.Error("cluster section should still run")
	}

	md := RenderMarkdown(r)
	if !strings.Contains(md, "## Errors\n\n- balances: node down\n- ghosts: node down\n") {
		t.Errorf("errors section not rendered:\n%s", md)
	}
}

func TestGenerator_Aborts(t *testing.T) {
	gen := NewGenerator(Sources{Cluster: fakeCluster{}}, log.New(io.Discard, "", 0))

	if _, err := gen.Generate(context.Background(), "not-an-address", 1); !errors.Is(err, domain.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}

	cancelled := NewGenerator(Sources{Balances: fakeBalances{err: context.Canceled}}, log.New(io.Discard, "", 0))
	if _, err := cancelled.Generate(context.Background(), stub.Address(1), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
