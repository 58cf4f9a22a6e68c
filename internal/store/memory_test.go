package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestMemoryStore_SeedAndLoadCompetitors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	loaded, err := s.LoadCompetitors(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("fresh store should be empty, got %d", len(loaded))
	}

	roster := []model.Competitor{
		{Name: "Alpha", Color: "#111111", Percent: 40},
		{Name: "Beta", Color: "#222222", Percent: 20},
	}
	if err := s.SeedCompetitors(ctx, roster); err != nil {
		t.Fatalf("seed: %v", err)
	}

	loaded, _ = s.LoadCompetitors(ctx)
	if len(loaded) != 2 {
		t.Fatalf("expected 2 competitors, got %d", len(loaded))
	}
}

func TestMemoryStore_SaveCompetitorPercent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.SeedCompetitors(ctx, []model.Competitor{{Name: "Alpha", Percent: 40}})

	if err := s.SaveCompetitorPercent(ctx, "Alpha", 33); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, _ := s.LoadCompetitors(ctx)
	if loaded[0].Percent != 33 {
		t.Errorf("expected percent 33, got %d", loaded[0].Percent)
	}
}

func TestMemoryStore_PriceHistoryOldestFirstWithLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for p := 1; p <= 10; p++ {
		if err := s.AppendPriceHistory(ctx, "Alpha", p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.LoadPriceHistory(ctx, "Alpha", 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []int{7, 8, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMemoryStore_LoadOrCreateParticipant(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p, err := s.LoadOrCreateParticipant(ctx, "user1", d(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.Cash.Equal(d(1000)) {
		t.Errorf("expected endowment 1000, got %s", p.Cash)
	}

	// A second load must not re-endow.
	s.SaveParticipantCash(ctx, "user1", d(250))
	p, _ = s.LoadOrCreateParticipant(ctx, "user1", d(1000))
	if !p.Cash.Equal(d(250)) {
		t.Errorf("expected persisted cash 250, got %s", p.Cash)
	}
}

func TestMemoryStore_PositionUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	pos, err := s.LoadPosition(ctx, "user1", "Alpha")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pos != nil {
		t.Fatal("expected absent position to be nil")
	}

	if err := s.SavePosition(ctx, &model.Position{
		ParticipantID: "user1",
		Competitor:    "Alpha",
		YesShares:     d(250),
		AvgYesPrice:   d(0.40),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SavePosition(ctx, &model.Position{
		ParticipantID: "user1",
		Competitor:    "Alpha",
		YesShares:     d(400),
		AvgYesPrice:   d(0.38),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pos, _ = s.LoadPosition(ctx, "user1", "Alpha")
	if pos == nil || !pos.YesShares.Equal(d(400)) {
		t.Errorf("expected upserted shares 400, got %+v", pos)
	}
}

func TestMemoryStore_TradesNewestFirstAndVolume(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i, amount := range []decimal.Decimal{d(10), d(20), d(30)} {
		if err := s.AppendTrade(ctx, &model.Trade{
			ID:        string(rune('a' + i)),
			Amount:    amount,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	trades, err := s.ListRecentTrades(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if !trades[0].Amount.Equal(d(30)) || !trades[1].Amount.Equal(d(20)) {
		t.Errorf("expected newest first, got %s then %s", trades[0].Amount, trades[1].Amount)
	}

	volume, err := s.TotalTradedVolume(ctx)
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if !volume.Equal(d(60)) {
		t.Errorf("expected volume 60, got %s", volume)
	}
}
