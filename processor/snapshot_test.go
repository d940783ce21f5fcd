package processor

import (
	"context"
	"fmt"
	"testing"

	"walletflow/models"
)

type fakeTraderSource struct {
	traders []models.TopTrader
	err     error
}

func (f *fakeTraderSource) TopTraders(_ context.Context, limit int) ([]models.TopTrader, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.traders) > limit {
		return f.traders[:limit], nil
	}
	return f.traders, nil
}

func richHoldings(n int) []models.HoldingEntry {
	entries := make([]models.HoldingEntry, n)
	for i := range entries {
		entries[i] = models.HoldingEntry{
			Symbol:   fmt.Sprintf("TK%d", i),
			ValueUsd: float64(1000000 * (n - i)),
		}
	}
	return entries
}

func TestBuildDedupesFirstSeen(t *testing.T) {
	source := &fakeTraderSource{traders: []models.TopTrader{
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 10},
		{Address: "A", PnL: 999999, Volume: 1000, TradeCount: 10},
		{Address: "B", PnL: 50000, Volume: 200000, TradeCount: 10},
	}}
	lister := &fakeTokenLister{holdings: map[string][]models.HoldingEntry{
		"A": richHoldings(2),
		"B": richHoldings(2),
	}}

	cfg := testAnalysisConfig()
	b := NewSnapshotBuilder(cfg, source, NewHoldingsFetcher(cfg, lister))
	snapshot, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot) != 2 {
		t.Fatalf("expected 2 traders after dedupe, got %d", len(snapshot))
	}
	for _, m := range snapshot {
		if m.Address == "A" && m.PnL != 100000 {
			t.Errorf("duplicate did not keep first occurrence: pnl = %f", m.PnL)
		}
	}
}

func TestBuildRejectedRecordDoesNotClaimAddress(t *testing.T) {
	// A bot-like first occurrence must not shadow a later valid record for
	// the same address.
	source := &fakeTraderSource{traders: []models.TopTrader{
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 0},
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 10},
	}}
	lister := &fakeTokenLister{holdings: map[string][]models.HoldingEntry{
		"A": richHoldings(2),
	}}

	cfg := testAnalysisConfig()
	b := NewSnapshotBuilder(cfg, source, NewHoldingsFetcher(cfg, lister))
	snapshot, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot) != 1 || snapshot[0].Address != "A" {
		t.Fatalf("expected the valid duplicate to survive, got %+v", snapshot)
	}
	if snapshot[0].TradeCount != 10 {
		t.Errorf("wrong occurrence kept: %+v", snapshot[0])
	}
}

func TestBuildSortsDescendingStable(t *testing.T) {
	// C and A tie on every input, so they tie on trading score; fetch order
	// must survive the sort.
	source := &fakeTraderSource{traders: []models.TopTrader{
		{Address: "C", PnL: 100000, Volume: 200000, TradeCount: 10},
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 10},
		{Address: "B", PnL: 900000, Volume: 1000000, TradeCount: 20},
	}}
	lister := &fakeTokenLister{holdings: map[string][]models.HoldingEntry{
		"A": richHoldings(2),
		"B": richHoldings(2),
		"C": richHoldings(2),
	}}

	cfg := testAnalysisConfig()
	b := NewSnapshotBuilder(cfg, source, NewHoldingsFetcher(cfg, lister))
	snapshot, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var order []string
	for _, m := range snapshot {
		order = append(order, m.Address)
	}
	want := []string{"B", "C", "A"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].TradingScore > snapshot[i-1].TradingScore {
			t.Fatalf("snapshot not non-increasing at %d", i)
		}
	}
}

func TestBuildFiltersByHoldingsCount(t *testing.T) {
	source := &fakeTraderSource{traders: []models.TopTrader{
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 10},
		{Address: "B", PnL: 100000, Volume: 200000, TradeCount: 10},
		{Address: "C", PnL: 100000, Volume: 200000, TradeCount: 10},
	}}
	lister := &fakeTokenLister{holdings: map[string][]models.HoldingEntry{
		"A": richHoldings(2),
		"B": richHoldings(1),
		// C has no holdings at all.
	}}

	cfg := testAnalysisConfig()
	b := NewSnapshotBuilder(cfg, source, NewHoldingsFetcher(cfg, lister))
	snapshot, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot) != 1 || snapshot[0].Address != "A" {
		t.Fatalf("expected only trader A to qualify, got %+v", snapshot)
	}
}

func TestBuildCapsDisplayHoldings(t *testing.T) {
	source := &fakeTraderSource{traders: []models.TopTrader{
		{Address: "A", PnL: 100000, Volume: 200000, TradeCount: 10},
	}}
	lister := &fakeTokenLister{holdings: map[string][]models.HoldingEntry{
		"A": richHoldings(8),
	}}

	cfg := testAnalysisConfig()
	b := NewSnapshotBuilder(cfg, source, NewHoldingsFetcher(cfg, lister))
	snapshot, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshot[0].TopHoldings) != maxDisplayHoldings {
		t.Errorf("expected %d display holdings, got %d", maxDisplayHoldings, len(snapshot[0].TopHoldings))
	}
	if snapshot[0].TopHoldings[0] != "TK0 8.00m" {
		t.Errorf("holdings not ordered by value: %v", snapshot[0].TopHoldings)
	}
}

func TestBuildFailsWhenNothingFetched(t *testing.T) {
	cfg := testAnalysisConfig()
	lister := &fakeTokenLister{}

	b := NewSnapshotBuilder(cfg, &fakeTraderSource{err: fmt.Errorf("upstream down")}, NewHoldingsFetcher(cfg, lister))
	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected error when fetch fails outright")
	}

	b = NewSnapshotBuilder(cfg, &fakeTraderSource{}, NewHoldingsFetcher(cfg, lister))
	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected error when zero traders are fetched")
	}
}
