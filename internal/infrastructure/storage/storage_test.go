package storage

import (
	"context"
	"strconv"
	"testing"
)

func TestInMemoryRepositoryPreferences(t *testing.T) {
	repo := NewInMemoryRepository(0)
	ctx := context.Background()

	if _, ok, _ := repo.GetPreference(ctx, "chart_interval"); ok {
		t.Fatal("expected no preference")
	}
	_ = repo.SetPreference(ctx, "chart_interval", "1d")
	if v, ok, _ := repo.GetPreference(ctx, "chart_interval"); !ok || v != "1d" {
		t.Errorf("expected 1d, got %q", v)
	}
}

func TestInMemoryRepositoryLatestPrice(t *testing.T) {
	repo := NewInMemoryRepository(0)
	ctx := context.Background()

	_ = repo.UpsertLatestPrice(ctx, "BTCUSDT", "1", 1)
	_ = repo.UpsertLatestPrice(ctx, "BTCUSDT", "2", 2)
	p, ok := repo.LatestPrice("BTCUSDT")
	if !ok || p.Price != "2" || p.Ts != 2 {
		t.Errorf("unexpected latest price %+v", p)
	}
}

func TestInMemoryRepositorySnapshotRetention(t *testing.T) {
	repo := NewInMemoryRepository(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_ = repo.InsertSnapshot(ctx, int64(i), "BTCUSDT", "1m", strconv.Itoa(i))
	}
	snaps := repo.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].Ts != 3 || snaps[2].Ts != 5 {
		t.Errorf("expected oldest snapshots dropped, got %+v", snaps)
	}
}
