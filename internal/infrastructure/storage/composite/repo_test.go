package composite

import (
	"context"
	"errors"
	"testing"

	"xfeed/internal/infrastructure/storage"
)

type failingRepo struct {
	*storage.InMemoryRepository
}

func (f failingRepo) GetPreference(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("unavailable")
}

func (f failingRepo) UpsertLatestPrice(ctx context.Context, instrument, price string, ts int64) error {
	return errors.New("unavailable")
}

func TestCompositeFanOutAndFirstError(t *testing.T) {
	a := storage.NewInMemoryRepository(0)
	b := storage.NewInMemoryRepository(0)
	bad := failingRepo{storage.NewInMemoryRepository(0)}
	repo := New(bad, nil, a, b)
	ctx := context.Background()

	if repo.Len() != 3 {
		t.Fatalf("expected nil repos filtered, got %d", repo.Len())
	}

	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", "1", 1); err == nil {
		t.Error("expected first error to be returned")
	}
	for i, r := range []*storage.InMemoryRepository{a, b} {
		if _, ok := r.LatestPrice("BTCUSDT"); !ok {
			t.Errorf("repo %d: expected write despite earlier failure", i)
		}
	}

	if err := repo.SetPreference(ctx, "chart_interval", "1h"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	v, ok, err := repo.GetPreference(ctx, "chart_interval")
	if err != nil || !ok || v != "1h" {
		t.Errorf("expected 1h from healthy repo, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestCompositeGetPreferenceMissing(t *testing.T) {
	bad := failingRepo{storage.NewInMemoryRepository(0)}
	repo := New(bad, storage.NewInMemoryRepository(0))

	_, ok, err := repo.GetPreference(context.Background(), "chart_interval")
	if ok {
		t.Fatal("expected missing preference")
	}
	if err == nil {
		t.Error("expected read error to be reported when nothing found")
	}
}
