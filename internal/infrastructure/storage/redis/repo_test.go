package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"xfeed/internal/domain"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*Repo, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test", ttl, "", ""), rdb, mr
}

func TestRepoPreference(t *testing.T) {
	repo, _, _ := newTestRepo(t, 0)
	ctx := context.Background()

	if _, ok, err := repo.GetPreference(ctx, "chart_interval"); err != nil || ok {
		t.Fatalf("missing preference: ok=%v err=%v", ok, err)
	}
	if err := repo.SetPreference(ctx, "chart_interval", "1h"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	v, ok, err := repo.GetPreference(ctx, "chart_interval")
	if err != nil || !ok || v != "1h" {
		t.Fatalf("GetPreference = %q, %v, %v", v, ok, err)
	}
}

func TestRepoUpsertLatestPrice(t *testing.T) {
	repo, rdb, mr := newTestRepo(t, time.Minute)
	ctx := context.Background()

	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", "65000.5", 1000); err != nil {
		t.Fatalf("UpsertLatestPrice: %v", err)
	}
	raw, err := rdb.HGet(ctx, "test:latest", "BTCUSDT").Result()
	if err != nil {
		t.Fatalf("HGet: %v", err)
	}
	var lp LatestPrice
	if err := json.Unmarshal([]byte(raw), &lp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if lp.Price != "65000.5" || lp.Ts != 1000 {
		t.Errorf("latest = %+v", lp)
	}
	if ttl := mr.TTL("test:latest"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	// 空价格不写入
	if err := repo.UpsertLatestPrice(ctx, "ETHUSDT", " ", 1); err != nil {
		t.Fatalf("UpsertLatestPrice empty: %v", err)
	}
	if n, _ := rdb.HLen(ctx, "test:latest").Result(); n != 1 {
		t.Errorf("hash len = %d, want 1", n)
	}
}

func TestRepoInsertSnapshot(t *testing.T) {
	repo, rdb, _ := newTestRepo(t, 0)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "test:snapshots:pub")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := repo.InsertSnapshot(ctx, 42, "BTCUSDT", "1m", `{"current_price":"1"}`); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}

	if n, err := rdb.XLen(ctx, "test:snapshots").Result(); err != nil || n != 1 {
		t.Fatalf("XLen = %d, %v", n, err)
	}

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var got struct {
		Ts          int64           `json:"ts_ms"`
		Instrument  string          `json:"instrument"`
		Granularity string          `json:"granularity"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Ts != 42 || got.Instrument != "BTCUSDT" || got.Granularity != "1m" {
		t.Errorf("published = %+v", got)
	}
}

func TestViewPublisher(t *testing.T) {
	_, rdb, _ := newTestRepo(t, 0)
	ctx := context.Background()

	pub := NewViewPublisher(rdb, "test:view")
	sub := rdb.Subscribe(ctx, pub.Channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub.OnView(domain.NewView(domain.ViewInput{
		Selection: domain.Selection{Instrument: "BTCUSDT", Granularity: domain.GranularityTick},
		Series:    domain.NewSeries(0, domain.PricePoint{Price: "7", Time: 1}),
	}))

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var v domain.View
	if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.CurrentPrice != "7" || v.Selection.Granularity != domain.GranularityTick {
		t.Errorf("view = %+v", v)
	}
}
